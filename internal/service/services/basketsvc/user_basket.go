package basketsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/shopkit/order/internal/service/events"
	"github.com/shopkit/order/internal/service/models/article"
	"github.com/shopkit/order/internal/service/models/basket"
	"github.com/shopkit/order/internal/service/models/currency"
	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/service/models/product"
	"github.com/shopkit/order/internal/service/ordererr"
	"github.com/shopkit/order/internal/service/services/ordersvc"
)

// UserBasket is the persisted basket of a logged-in user.
type UserBasket struct {
	svc  *Service
	data *basket.Basket
}

// GetUserBasket loads a basket by id, checking it belongs to the user.
func (s *Service) GetUserBasket(ctx context.Context, basketID, userID int64) (*UserBasket, error) {
	b, err := s.baskets.GetByID(ctx, basketID)
	if err != nil {
		return nil, ordererr.NotFound(ordererr.CodeBasketNotFound, "basket %d not found", basketID)
	}
	if b.UserID != userID {
		return nil, ordererr.ErrPermissionDenied
	}

	return &UserBasket{svc: s, data: b}, nil
}

// OpenUserBasket returns the user's basket, creating an empty one on
// first use.
func (s *Service) OpenUserBasket(ctx context.Context, userID int64) (*UserBasket, error) {
	b, err := s.baskets.GetByUser(ctx, userID)
	if err == nil {
		return &UserBasket{svc: s, data: b}, nil
	}

	now := time.Now()
	b = &basket.Basket{
		UserID:    userID,
		Products:  []product.Product{},
		Currency:  currency.Default,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if b.ID, err = s.baskets.Insert(ctx, b); err != nil {
		return nil, err
	}

	return &UserBasket{svc: s, data: b}, nil
}

func (b *UserBasket) ID() int64 {
	return b.data.ID
}

func (b *UserBasket) Count() int {
	return b.data.Count()
}

func (b *UserBasket) Products() []product.Product {
	return b.data.Products
}

func (b *UserBasket) AddProduct(ctx context.Context, p product.Product) error {
	b.data.Products = addOrMerge(b.data.Products, p)

	return b.save(ctx)
}

// Import clears the current contents and re-imports the given products.
func (b *UserBasket) Import(ctx context.Context, products []product.Product) error {
	b.data.Products = []product.Product{}
	for _, p := range products {
		p.NormalizeQuantity()
		b.data.Products = append(b.data.Products, p)
	}

	return b.save(ctx)
}

func (b *UserBasket) ToArray() map[string]any {
	return map[string]any{
		"id":       b.data.ID,
		"uid":      b.data.UserID,
		"hash":     b.data.Hash,
		"products": b.data.Products,
		"currency": b.data.Currency.String(),
	}
}

func (b *UserBasket) HasOrder() bool {
	return b.data.HasOrder()
}

func (b *UserBasket) Order(ctx context.Context) (*order.Order, error) {
	if !b.data.HasOrder() {
		return nil, ordererr.NotFound(ordererr.CodeOrderNotFound, "basket %d has no order", b.data.ID)
	}

	return b.svc.orders.GetByHash(ctx, b.data.Hash)
}

// ToOrder replaces the target order's articles with the basket contents.
// This is a destructive replace, not a merge: existing order articles do
// not survive. Price factors are reapplied after the replace.
func (b *UserBasket) ToOrder(ctx context.Context, ord *order.Order) error {
	data, err := b.svc.events.RunInterceptors(ctx, events.Event{
		Name:      events.BasketToOrderBegin,
		OrderHash: ord.Hash,
	}, map[string]any{"products": b.data.Products})
	if err != nil {
		return fmt.Errorf("basket to order vetoed: %w", err)
	}
	products := b.data.Products
	if modified, ok := data["products"].([]product.Product); ok {
		products = modified
	}

	factors := ord.Articles.PriceFactors
	ord.Articles.Clear()
	for _, p := range products {
		ord.Articles.Add(article.FromProduct(p))
	}
	ord.Articles.SetPriceFactors(factors)

	b.svc.events.Dispatch(ctx, events.Event{Name: events.BasketToOrder, OrderHash: ord.Hash})

	if err := b.svc.orders.Update(ctx, ordersvc.Identity{UserID: b.data.UserID}, ord); err != nil {
		return err
	}

	b.data.Hash = ord.Hash
	if err := b.save(ctx); err != nil {
		return err
	}

	b.svc.events.Dispatch(ctx, events.Event{Name: events.BasketToOrderEnd, OrderHash: ord.Hash})

	return nil
}

// Successful is the terminal transition once the linked order finalized:
// the product list is cleared and the hash detached. Idempotent.
func (b *UserBasket) Successful(ctx context.Context) error {
	if !b.data.HasOrder() && len(b.data.Products) == 0 {
		return nil
	}

	b.data.Products = []product.Product{}
	b.data.Hash = ""

	return b.save(ctx)
}

func (b *UserBasket) save(ctx context.Context) error {
	b.data.UpdatedAt = time.Now()

	return b.svc.baskets.Update(ctx, b.data)
}
