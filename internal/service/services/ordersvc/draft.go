package ordersvc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopkit/order/internal/dal/interfaces/iorderrepo"
	"github.com/shopkit/order/internal/service/events"
	"github.com/shopkit/order/internal/service/models/article"
	"github.com/shopkit/order/internal/service/models/currency"
	"github.com/shopkit/order/internal/service/models/customer"
	"github.com/shopkit/order/internal/service/models/order"
)

// CreateDraft opens a new in-process order for a customer. The hash
// assigned here is permanent and later identifies the final order too.
func (s *Service) CreateDraft(ctx context.Context, id Identity, customerID int64) (*order.Order, error) {
	draft := &order.Order{
		Hash:       uuid.NewString(),
		Stage:      order.StageDraft,
		CustomerID: customerID,
		Currency:   currency.Default,
		Articles:   article.NewList(currency.Default),
		Data:       map[string]any{},
		CreatedBy:  id.UserID,
		CreatedAt:  time.Now(),
	}
	draft.Customer = customer.Resolve(ctx, nil, nil, customerID, s.customers)
	draft.AddHistory("order in process created")

	if _, err := s.repo.InsertDraft(ctx, draft); err != nil {
		return nil, err
	}

	return draft, nil
}

// CreateOrder promotes a draft into a final order. Promotion is
// idempotent: a second call for the same hash, even a racing double
// submit, returns the already created order instead of duplicating it.
func (s *Service) CreateOrder(ctx context.Context, id Identity, draft *order.Order) (*order.Order, error) {
	if err := mayMutate(id, draft); err != nil {
		return nil, err
	}

	if draft.Stage == order.StageFinal {
		return draft, nil
	}

	if draft.OrderID != 0 {
		return s.Get(ctx, draft.OrderID)
	}

	// Re-read authoritative state: another request may have promoted
	// this hash already.
	if existing, err := s.repo.GetByHash(ctx, draft.Hash); err == nil {
		draft.OrderID = existing.ID
		_ = s.repo.LinkDraft(ctx, draft.Hash, existing.ID)

		return existing, nil
	}

	draft.Articles.Calc()

	final := *draft
	final.ID = 0
	final.OrderID = 0
	final.Stage = order.StageFinal
	final.AddHistory(fmt.Sprintf("order created from in-process order %s", draft.Hash))

	var becameSuccessful bool
	err := s.atomically(ctx, func(repo iorderrepo.IOrderRepository, record func(events.Event)) error {
		orderID, err := repo.Insert(ctx, &final)
		if err != nil {
			return fmt.Errorf("failed to create order for hash %s: %w", draft.Hash, err)
		}
		final.ID = orderID

		draft.OrderID = orderID
		if err := repo.LinkDraft(ctx, draft.Hash, orderID); err != nil {
			return err
		}

		// Payment status starts over on the final row and is derived
		// from the carried transaction history.
		final.PaidStatus = order.PaymentStatusOpen
		final.Successful = false
		ok, err := s.recalcPayments(ctx, &final, repo, record)
		if err != nil {
			return err
		}
		becameSuccessful = ok

		record(events.Event{Name: events.OrderCreated, OrderHash: final.Hash})

		return repo.DeleteDraft(ctx, draft.Hash)
	})
	if err != nil {
		return nil, err
	}

	if becameSuccessful {
		s.invoiceOnSuccess(ctx, &final)
	}

	if !final.NoAutoInvoice {
		s.autoInvoice(ctx, &final)
	}

	s.mu.Lock()
	s.cache[final.ID] = &final
	s.mu.Unlock()

	return &final, nil
}

// ClearDraft logically resets a draft: the current row is deleted and a
// fresh empty draft is created under the same hash, so external
// references to the hash stay valid while all content is discarded.
func (s *Service) ClearDraft(ctx context.Context, id Identity, draft *order.Order) (*order.Order, error) {
	if err := mayMutate(id, draft); err != nil {
		return nil, err
	}

	if _, err := s.events.RunInterceptors(ctx, events.Event{
		Name:      events.OrderClearBegin,
		OrderHash: draft.Hash,
	}, draft.ToRow()); err != nil {
		return nil, fmt.Errorf("order clear vetoed: %w", err)
	}

	fresh := &order.Order{
		Hash:       draft.Hash,
		Stage:      order.StageDraft,
		CustomerID: draft.CustomerID,
		Customer:   draft.Customer,
		Currency:   draft.Currency,
		Articles:   article.NewList(draft.Currency),
		Data:       map[string]any{},
		CreatedBy:  draft.CreatedBy,
		CreatedAt:  time.Now(),
	}
	fresh.AddHistory("order in process cleared")

	err := s.atomically(ctx, func(repo iorderrepo.IOrderRepository, record func(events.Event)) error {
		if err := repo.DeleteDraft(ctx, draft.Hash); err != nil {
			return err
		}

		if _, err := repo.InsertDraft(ctx, fresh); err != nil {
			return err
		}

		record(events.Event{Name: events.OrderClear, OrderHash: fresh.Hash})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return fresh, nil
}
