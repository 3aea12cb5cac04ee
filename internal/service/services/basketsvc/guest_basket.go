package basketsvc

import (
	"context"
	"log/slog"

	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/service/models/product"
	"github.com/shopkit/order/internal/service/ordererr"
)

// GuestBasket is the session-local basket of an unauthenticated visitor.
// It is never persisted and never produces an order; its contents move
// into a real basket at registration or login.
type GuestBasket struct {
	svc      *Service
	products []product.Product
}

// NewGuestBasket opens an empty guest basket.
func (s *Service) NewGuestBasket() *GuestBasket {
	return &GuestBasket{svc: s, products: []product.Product{}}
}

func (b *GuestBasket) Count() int {
	var n int
	for _, p := range b.products {
		n += p.Quantity
	}

	return n
}

func (b *GuestBasket) Products() []product.Product {
	return b.products
}

func (b *GuestBasket) AddProduct(_ context.Context, p product.Product) error {
	b.products = addOrMerge(b.products, p)

	return nil
}

// Import re-validates every product against the live catalog. Inactive
// and unknown products are skipped, quantities are clamped to a positive
// value.
func (b *GuestBasket) Import(ctx context.Context, products []product.Product) error {
	b.products = []product.Product{}

	for _, p := range products {
		if b.svc.catalog != nil {
			live, err := b.svc.catalog.Get(ctx, p.ID)
			if err != nil {
				slog.Debug("skipping unknown product on guest import", "product_id", p.ID)
				continue
			}
			if !live.Active {
				slog.Debug("skipping inactive product on guest import", "product_id", p.ID)
				continue
			}
		}

		p.NormalizeQuantity()
		b.products = append(b.products, p)
	}

	return nil
}

func (b *GuestBasket) ToArray() map[string]any {
	return map[string]any{
		"products": b.products,
	}
}

// HasOrder is always false for guests.
func (b *GuestBasket) HasOrder() bool {
	return false
}

// Order always fails: a guest basket cannot be bound to an order.
func (b *GuestBasket) Order(_ context.Context) (*order.Order, error) {
	return nil, ordererr.ErrGuestHasNoOrder
}
