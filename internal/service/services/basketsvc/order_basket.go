package basketsvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopkit/order/internal/service/events"
	"github.com/shopkit/order/internal/service/models/article"
	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/service/models/product"
	"github.com/shopkit/order/internal/service/services/ordersvc"
)

var errNotAuthenticated = errors.New("order basket requires an authenticated user")

// OrderBasket is a basket-shaped view over the article list of an
// in-process order, used mid-checkout. Edits flow through to the order;
// the view resynchronizes from the authoritative order state after
// destructive operations.
type OrderBasket struct {
	svc      *Service
	user     ordersvc.Identity
	draft    *order.Order
	products []product.Product
}

// NewOrderBasket binds a basket view to the draft behind the given
// hash. It fails when the draft does not exist or the caller is not a
// real authenticated user.
func (s *Service) NewOrderBasket(ctx context.Context, user ordersvc.Identity, hash string) (*OrderBasket, error) {
	if user.UserID == 0 && !user.System {
		return nil, errNotAuthenticated
	}

	draft, err := s.orders.GetDraft(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("no in-process order for hash %s: %w", hash, err)
	}

	b := &OrderBasket{svc: s, user: user, draft: draft}
	b.rebuildView()

	return b, nil
}

func (b *OrderBasket) Count() int {
	var n int
	for _, p := range b.products {
		n += p.Quantity
	}

	return n
}

func (b *OrderBasket) Products() []product.Product {
	return b.products
}

// AddProduct adds a product to the order. With mergeSameProducts set, a
// product matching an existing line by compare key is folded into that
// line's quantity instead of adding a duplicate row.
func (b *OrderBasket) AddProduct(ctx context.Context, p product.Product) error {
	b.products = addOrMerge(b.products, p)

	return b.UpdateOrder(ctx)
}

// Import replaces the basket contents with the given products,
// pre-merging the batch when merging is enabled. A recalculation
// failure fails the import, stale totals are never kept.
func (b *OrderBasket) Import(ctx context.Context, products []product.Product) error {
	if mergeEnabled() {
		products = product.MergeList(products)
	} else {
		for i := range products {
			products[i].NormalizeQuantity()
		}
	}

	data, err := b.svc.events.RunInterceptors(ctx, events.Event{
		Name:      events.BasketToOrderBegin,
		OrderHash: b.draft.Hash,
	}, map[string]any{"products": products})
	if err != nil {
		return fmt.Errorf("basket import vetoed: %w", err)
	}
	if modified, ok := data["products"].([]product.Product); ok {
		products = modified
	}

	b.products = products

	if err := b.UpdateOrder(ctx); err != nil {
		return fmt.Errorf("basket import failed: %w", err)
	}

	b.svc.events.Dispatch(ctx, events.Event{
		Name:      events.BasketToOrderEnd,
		OrderHash: b.draft.Hash,
	})

	return nil
}

// UpdateOrder pushes the current product list back onto the owning
// order's article list (full clear and re-add), reapplies the price
// factors and persists the order.
func (b *OrderBasket) UpdateOrder(ctx context.Context) error {
	factors := b.draft.Articles.PriceFactors
	b.draft.Articles.Clear()
	for _, p := range b.products {
		b.draft.Articles.Add(article.FromProduct(p))
	}
	b.draft.Articles.SetPriceFactors(factors)

	return b.svc.orders.Update(ctx, b.user, b.draft)
}

// RemovePosition removes a single article by zero-based position
// directly on the order, then re-reads the order so the view cannot
// diverge from the authoritative state.
func (b *OrderBasket) RemovePosition(ctx context.Context, pos int) error {
	if err := b.draft.Articles.RemoveAt(pos); err != nil {
		return err
	}

	if err := b.svc.orders.Update(ctx, b.user, b.draft); err != nil {
		return err
	}

	draft, err := b.svc.orders.GetDraft(ctx, b.draft.Hash)
	if err != nil {
		return err
	}
	b.draft = draft
	b.rebuildView()

	return nil
}

func (b *OrderBasket) ToArray() map[string]any {
	return map[string]any{
		"hash":     b.draft.Hash,
		"products": b.products,
		"currency": b.draft.Currency.String(),
	}
}

func (b *OrderBasket) HasOrder() bool {
	return true
}

func (b *OrderBasket) Order(_ context.Context) (*order.Order, error) {
	return b.draft, nil
}

// rebuildView derives the product list from the order articles.
func (b *OrderBasket) rebuildView() {
	products := make([]product.Product, 0, b.draft.Articles.Count())
	for _, a := range b.draft.Articles.Articles {
		products = append(products, product.Product{
			ID:               a.ProductID,
			Title:            a.Title,
			ArticleNo:        a.ArticleNo,
			Description:      a.Description,
			UnitPriceCents:   a.UnitPriceCents,
			DisplayPrice:     a.DisplayPrice,
			DisplayUnitPrice: a.DisplayUnitPrice,
			Quantity:         a.Quantity,
			Class:            a.Class,
			CustomFields:     a.CustomFields,
			CustomData:       a.CustomData,
		})
	}
	b.products = products
}
