package transaction

import (
	"time"

	"github.com/shopkit/order/internal/service/models/currency"
)

// Transaction is one payment applied to an order, as reported by a
// payment provider. TxID is the provider-side identifier and the
// deduplication key.
type Transaction struct {
	TxID        string            `json:"txid"`
	OrderHash   string            `json:"hash"`
	AmountCents int64             `json:"amount"`
	Currency    currency.Currency `json:"currency"`
	Date        time.Time         `json:"date"`
}
