package iorderrepo

import (
	"context"

	"github.com/shopkit/order/internal/service/models/order"
)

// SearchParams filters the final orders table.
type SearchParams struct {
	CustomerIDs []int64
	PaidStatus  *order.PaymentStatus
	Successful  *bool
	Limit       int
	Offset      int
}

// IOrderRepository is the single source of truth for order rows in both
// lifecycle tables. Final orders live in orders, drafts in orders_process.
type IOrderRepository interface {
	// Final orders.
	Insert(ctx context.Context, o *order.Order) (int64, error)
	GetByID(ctx context.Context, id int64) (*order.Order, error)
	GetByHash(ctx context.Context, hash string) (*order.Order, error)
	Update(ctx context.Context, o *order.Order) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, params SearchParams) ([]order.Order, error)

	// In-process drafts.
	InsertDraft(ctx context.Context, o *order.Order) (int64, error)
	GetDraftByHash(ctx context.Context, hash string) (*order.Order, error)
	UpdateDraft(ctx context.Context, o *order.Order) error
	DeleteDraft(ctx context.Context, hash string) error
	LinkDraft(ctx context.Context, hash string, orderID int64) error
	ListDraftsByCustomer(ctx context.Context, customerID int64) ([]order.Order, error)
}
