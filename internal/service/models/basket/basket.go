package basket

import (
	"time"

	"github.com/shopkit/order/internal/service/models/currency"
	"github.com/shopkit/order/internal/service/models/product"
)

// Basket is the persisted pre-checkout product list of a logged-in user.
// The hash links it to an in-process order once checkout starts; it is
// detached again when that order finalizes.
type Basket struct {
	ID       int64             `json:"id"`
	UserID   int64             `json:"uid"`
	Hash     string            `json:"hash,omitempty"`
	Products []product.Product `json:"products"`
	Currency currency.Currency `json:"currency"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Basket) Count() int {
	var n int
	for _, p := range b.Products {
		n += p.Quantity
	}

	return n
}

// HasOrder reports whether the basket is bound to an in-process order.
func (b *Basket) HasOrder() bool {
	return b.Hash != ""
}
