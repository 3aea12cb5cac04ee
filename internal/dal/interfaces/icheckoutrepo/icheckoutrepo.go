package icheckoutrepo

import (
	"context"

	"github.com/shopkit/order/internal/service/models/checkoutstate"
)

// ICheckoutRepository persists the checkout context of a draft order,
// keyed by the order hash.
type ICheckoutRepository interface {
	Get(ctx context.Context, hash string) (*checkoutstate.State, error)
	Save(ctx context.Context, state *checkoutstate.State) error
	Delete(ctx context.Context, hash string) error
}
