package article

import (
	"encoding/json"
	"errors"

	"github.com/shopkit/order/internal/service/models/currency"
	"github.com/shopkit/order/internal/service/models/pricefactor"
	"github.com/shopkit/order/internal/service/models/product"
)

var ErrPositionOutOfRange = errors.New("article position out of range")

// Article is one calculated line item of an order. It carries every
// field the compare key of the originating product is built from, so a
// basket view rebuilt from the order lines merges the same way as the
// basket the lines came from.
type Article struct {
	ProductID        int64          `json:"productId"`
	Title            string         `json:"title"`
	ArticleNo        string         `json:"articleNo"`
	Description      string         `json:"description"`
	UnitPriceCents   int64          `json:"unitPrice"`
	DisplayPrice     string         `json:"displayPrice"`
	DisplayUnitPrice string         `json:"display_unitPrice"`
	Quantity         int            `json:"quantity"`
	SumCents         int64          `json:"sum"`
	Class            string         `json:"class"`
	CustomFields     map[string]any `json:"customFields,omitempty"`
	CustomData       map[string]any `json:"customData,omitempty"`
}

// FromProduct builds an order article from a basket product.
func FromProduct(p product.Product) Article {
	p.NormalizeQuantity()

	return Article{
		ProductID:        p.ID,
		Title:            p.Title,
		ArticleNo:        p.ArticleNo,
		Description:      p.Description,
		UnitPriceCents:   p.UnitPriceCents,
		DisplayPrice:     p.DisplayPrice,
		DisplayUnitPrice: p.DisplayUnitPrice,
		Quantity:         p.Quantity,
		SumCents:         p.UnitPriceCents * int64(p.Quantity),
		Class:            p.Class,
		CustomFields:     p.CustomFields,
		CustomData:       p.CustomData,
	}
}

// List owns the articles of one order. Mutation goes through the list,
// callers never touch the slice directly.
type List struct {
	Articles      []Article           `json:"articles"`
	PriceFactors  pricefactor.List    `json:"priceFactors"`
	Factors       []pricefactor.Applied `json:"calculations"`
	Currency      currency.Currency   `json:"currency"`
	SubtotalCents int64               `json:"subtotal"`
	TotalCents    int64               `json:"total"`
}

// NewList returns an empty calculated list in the given currency.
func NewList(cur currency.Currency) *List {
	l := &List{
		Articles: []Article{},
		Currency: cur,
	}
	l.Calc()

	return l
}

func (l *List) Count() int {
	return len(l.Articles)
}

func (l *List) Add(a Article) {
	l.Articles = append(l.Articles, a)
	l.Calc()
}

// RemoveAt removes one article by zero-based position.
func (l *List) RemoveAt(pos int) error {
	if pos < 0 || pos >= len(l.Articles) {
		return ErrPositionOutOfRange
	}

	l.Articles = append(l.Articles[:pos], l.Articles[pos+1:]...)
	l.Calc()

	return nil
}

// ReplaceAt swaps the article at the given zero-based position.
func (l *List) ReplaceAt(pos int, a Article) error {
	if pos < 0 || pos >= len(l.Articles) {
		return ErrPositionOutOfRange
	}

	l.Articles[pos] = a
	l.Calc()

	return nil
}

func (l *List) Clear() {
	l.Articles = []Article{}
	l.PriceFactors = pricefactor.List{}
	l.Calc()
}

// SetPriceFactors replaces the factor list and recalculates.
func (l *List) SetPriceFactors(factors pricefactor.List) {
	l.PriceFactors = factors
	l.Calc()
}

// Calc recomputes line sums, the subtotal and the factored total.
func (l *List) Calc() {
	var subtotal int64
	for i := range l.Articles {
		if l.Articles[i].Quantity <= 0 {
			l.Articles[i].Quantity = 1
		}
		l.Articles[i].SumCents = l.Articles[i].UnitPriceCents * int64(l.Articles[i].Quantity)
		subtotal += l.Articles[i].SumCents
	}

	l.SubtotalCents = subtotal
	l.TotalCents, l.Factors = l.PriceFactors.Apply(subtotal)
}

// FromJSON decodes a persisted article list. Invalid JSON degrades to an
// empty list in the given currency.
func FromJSON(data []byte, cur currency.Currency) *List {
	if len(data) == 0 {
		return NewList(cur)
	}

	var l List
	if err := json.Unmarshal(data, &l); err != nil {
		return NewList(cur)
	}

	if l.Articles == nil {
		l.Articles = []Article{}
	}
	if l.Currency == "" {
		l.Currency = cur
	}
	l.Calc()

	return &l
}

// ToJSON encodes the list for persistence.
func (l *List) ToJSON() []byte {
	data, err := json.Marshal(l)
	if err != nil {
		return []byte("{}")
	}

	return data
}
