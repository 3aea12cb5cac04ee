package ibasketrepo

import (
	"context"

	"github.com/shopkit/order/internal/service/models/basket"
)

// IBasketRepository persists per-user baskets.
type IBasketRepository interface {
	Insert(ctx context.Context, b *basket.Basket) (int64, error)
	GetByID(ctx context.Context, id int64) (*basket.Basket, error)
	GetByUser(ctx context.Context, userID int64) (*basket.Basket, error)
	GetByHash(ctx context.Context, hash string) (*basket.Basket, error)
	Update(ctx context.Context, b *basket.Basket) error
	Delete(ctx context.Context, id int64) error
}
