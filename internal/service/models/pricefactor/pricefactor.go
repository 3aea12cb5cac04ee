package pricefactor

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Calculation determines how a factor value is applied to the subtotal.
type Calculation string

const (
	// CalculationComplement adds or subtracts an absolute amount in cents.
	CalculationComplement Calculation = "complement"
	// CalculationPercent applies a percentage of the running total.
	CalculationPercent Calculation = "percent"
)

// Factor is one adjustment line (discount, surcharge, shipping fee)
// applied on top of the base article pricing.
type Factor struct {
	Identifier  string      `json:"identifier"`
	Title       string      `json:"title"`
	Calculation Calculation `json:"calculation"`
	// Value is an amount in cents for complement factors and a percentage
	// for percent factors. Negative values are discounts.
	Value   decimal.Decimal `json:"value"`
	Visible bool            `json:"visible"`
}

// SumCents returns the factor's contribution for the given running total.
func (f Factor) SumCents(runningTotalCents int64) int64 {
	switch f.Calculation {
	case CalculationPercent:
		sum := decimal.NewFromInt(runningTotalCents).
			Mul(f.Value).
			Div(decimal.NewFromInt(100))

		return sum.Round(0).IntPart()
	default:
		return f.Value.Round(0).IntPart()
	}
}

// List is an ordered set of factors. Order matters: each percent factor
// applies to the total produced by the factors before it.
type List []Factor

// Applied is one calculated factor line kept on the order for display.
type Applied struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	SumCents   int64  `json:"sum"`
	Visible    bool   `json:"visible"`
}

// Apply runs all factors against a subtotal and returns the final total
// together with the per-factor sums.
func (l List) Apply(subtotalCents int64) (int64, []Applied) {
	total := subtotalCents
	applied := make([]Applied, 0, len(l))

	for _, f := range l {
		sum := f.SumCents(total)
		total += sum

		applied = append(applied, Applied{
			Identifier: f.Identifier,
			Title:      f.Title,
			SumCents:   sum,
			Visible:    f.Visible,
		})
	}

	if total < 0 {
		total = 0
	}

	return total, applied
}

// ListFromJSON decodes a persisted factor list. Invalid JSON degrades to
// an empty list.
func ListFromJSON(data []byte) List {
	if len(data) == 0 {
		return List{}
	}

	var l List
	if err := json.Unmarshal(data, &l); err != nil {
		return List{}
	}

	return l
}
