// Package uow binds the order and outbox repositories to one database
// transaction so multi-statement changes commit or roll back together.
package uow

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopkit/order/internal/dal/interfaces/iorderrepo"
	"github.com/shopkit/order/internal/dal/interfaces/ioutboxrepo"
	orderrepo "github.com/shopkit/order/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/shopkit/order/internal/dal/repositories/outbox/postgres"
)

type unitOfWork struct {
	pool       *pgxpool.Pool
	tx         pgx.Tx
	orderRepo  iorderrepo.IOrderRepository
	outboxRepo ioutboxrepo.IOutboxRepository
}

//goland:noinspection GoExportedFuncWithUnexportedType
func NewUnitOfWork(pool *pgxpool.Pool) *unitOfWork {
	return &unitOfWork{
		pool:       pool,
		orderRepo:  orderrepo.NewPostgresOrderRepository(pool),
		outboxRepo: outboxrepo.NewOutboxRepository(pool),
	}
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.orderRepo = orderrepo.NewPostgresOrderRepository(tx)
	u.outboxRepo = outboxrepo.NewOutboxRepository(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Commit(ctx)
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Rollback(ctx)
}
