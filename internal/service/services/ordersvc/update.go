package ordersvc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopkit/order/internal/dal/interfaces/iorderrepo"
	"github.com/shopkit/order/internal/service/events"
	"github.com/shopkit/order/internal/service/models/order"
)

// Update persists the in-memory state of an order. Only the session's
// own customer or a system identity may update. When a non-system caller
// updates an already successful order, only the whitelisted subset of
// fields (payment data, comments, history, frontend messages, status
// mails) is taken over; everything else stays as stored.
func (s *Service) Update(ctx context.Context, id Identity, o *order.Order) error {
	if err := mayMutate(id, o); err != nil {
		return err
	}

	// A promoted draft is a read-through proxy: the real order receives
	// the update.
	if o.IsPromoted() {
		final, err := s.Get(ctx, o.OrderID)
		if err != nil {
			return err
		}
		copyRestrictedFields(o, final)

		return s.Update(ctx, id, final)
	}

	stored, err := s.Refresh(ctx, &order.Order{ID: o.ID, Hash: o.Hash, Stage: o.Stage})
	if err != nil {
		return err
	}
	prevPaymentID, prevPaymentMethod := stored.PaymentID, stored.PaymentMethod

	if !id.System && stored.Successful {
		copyRestrictedFields(o, stored)
		o = stored
	}

	row, err := s.events.RunInterceptors(ctx, events.Event{
		Name:      events.OrderUpdateBegin,
		OrderHash: o.Hash,
	}, o.ToRow())
	if err != nil {
		return fmt.Errorf("order update vetoed: %w", err)
	}

	updated, err := order.FromRow(row, o.Stage)
	if err != nil {
		return fmt.Errorf("order update produced an invalid row: %w", err)
	}
	updated.ID = o.ID

	return s.atomically(ctx, func(repo iorderrepo.IOrderRepository, record func(events.Event)) error {
		if err := s.saveWith(ctx, repo, updated); err != nil {
			return err
		}
		*o = *updated

		record(events.Event{Name: events.OrderUpdate, OrderHash: o.Hash})

		if updated.PaymentID != prevPaymentID || updated.PaymentMethod != prevPaymentMethod {
			record(events.Event{
				Name:      events.PaymentChanged,
				OrderHash: o.Hash,
				Payload: map[string]any{
					"paymentId":     updated.PaymentID,
					"paymentMethod": updated.PaymentMethod,
				},
			})
		}

		return nil
	})
}

// copyRestrictedFields takes over the fields a restricted context is
// allowed to change.
func copyRestrictedFields(from, to *order.Order) {
	to.Paid = from.Paid
	to.PaidStatus = from.PaidStatus
	to.PaidDate = from.PaidDate
	to.PaymentID = from.PaymentID
	to.PaymentMethod = from.PaymentMethod
	to.Comments = from.Comments
	to.History = from.History
	to.FrontendMessages = from.FrontendMessages
	to.StatusMails = from.StatusMails
}

// Delete removes an order row. Promoted drafts delegate to their final
// order.
func (s *Service) Delete(ctx context.Context, id Identity, o *order.Order) error {
	if err := mayMutate(id, o); err != nil {
		return err
	}

	if o.IsPromoted() {
		final, err := s.Get(ctx, o.OrderID)
		if err != nil {
			return err
		}

		return s.Delete(ctx, id, final)
	}

	if _, err := s.events.RunInterceptors(ctx, events.Event{
		Name:      events.OrderDeleteBegin,
		OrderHash: o.Hash,
	}, o.ToRow()); err != nil {
		return fmt.Errorf("order delete vetoed: %w", err)
	}

	return s.atomically(ctx, func(repo iorderrepo.IOrderRepository, record func(events.Event)) error {
		if o.Stage == order.StageDraft {
			if err := repo.DeleteDraft(ctx, o.Hash); err != nil {
				return err
			}
		} else {
			if err := repo.Delete(ctx, o.ID); err != nil {
				return err
			}
			s.RemoveFromInstanceCache(o.ID)
		}

		record(events.Event{Name: events.OrderDelete, OrderHash: o.Hash})

		return nil
	})
}

// Copy duplicates a final order into a fresh draft under a new hash.
// Payment state and audit trails do not travel with the copy.
func (s *Service) Copy(ctx context.Context, id Identity, o *order.Order) (*order.Order, error) {
	if err := mayMutate(id, o); err != nil {
		return nil, err
	}

	if _, err := s.events.RunInterceptors(ctx, events.Event{
		Name:      events.OrderCopyBegin,
		OrderHash: o.Hash,
	}, o.ToRow()); err != nil {
		return nil, fmt.Errorf("order copy vetoed: %w", err)
	}

	draft := *o
	draft.ID = 0
	draft.OrderID = 0
	draft.InvoiceID = 0
	draft.Hash = uuid.NewString()
	draft.Stage = order.StageDraft
	draft.Successful = false
	draft.PaidStatus = order.PaymentStatusOpen
	draft.Paid = nil
	draft.History = nil
	draft.StatusMails = nil
	draft.FrontendMessages = nil
	draft.AddHistory(fmt.Sprintf("order copied from %s", o.Hash))

	err := s.atomically(ctx, func(repo iorderrepo.IOrderRepository, record func(events.Event)) error {
		if _, err := repo.InsertDraft(ctx, &draft); err != nil {
			return err
		}
		record(events.Event{Name: events.OrderCopy, OrderHash: draft.Hash})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &draft, nil
}
