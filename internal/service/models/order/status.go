package order

import "fmt"

// Stage tags which lifecycle an order instance is in. A draft lives in
// the orders_process table, a final order in the orders table. The two
// stages share the same data shape and are joined by the hash.
type Stage string

const (
	StageDraft Stage = "draft"
	StageFinal Stage = "final"
)

// PaymentStatus is the calculated paid state of an order. The numeric
// values are part of the persisted schema and the wire contract.
type PaymentStatus int

const (
	PaymentStatusOpen     PaymentStatus = 0
	PaymentStatusPaid     PaymentStatus = 1
	PaymentStatusPart     PaymentStatus = 2
	PaymentStatusError    PaymentStatus = 4
	PaymentStatusCanceled PaymentStatus = 5
)

// IsTerminal reports whether the status latches the order against
// further payment additions.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusCanceled
}

// ParsePaymentStatus validates a stored status value. Unknown values are
// a hard error, they are not coerced.
func ParsePaymentStatus(v int) (PaymentStatus, error) {
	switch s := PaymentStatus(v); s {
	case PaymentStatusOpen, PaymentStatusPaid, PaymentStatusPart,
		PaymentStatusError, PaymentStatusCanceled:
		return s, nil
	default:
		return PaymentStatusError, fmt.Errorf("unknown payment status %d", v)
	}
}
