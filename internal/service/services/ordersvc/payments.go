package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/shopkit/order/internal/dal/interfaces/iorderrepo"
	"github.com/shopkit/order/internal/service/events"
	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/service/models/transaction"
	"github.com/shopkit/order/internal/service/ordererr"
)

// ErrUnknownPaymentStatus is returned when payment recalculation cannot
// map the transaction history onto a known status. This is a hard error,
// unknown states are not silently coerced.
var ErrUnknownPaymentStatus = errors.New("payment calculation yielded an unknown status")

// failedProcedureExecute handles a failed payment immediately instead of
// leaving the order in the error status for manual handling.
const failedProcedureExecute = "execute"

// AddTransaction applies a payment transaction at most once. Repeated
// provider callbacks carrying the same transaction id are ignored, as is
// any addition once the order is in a terminal paid state.
func (s *Service) AddTransaction(ctx context.Context, o *order.Order, tx transaction.Transaction) error {
	if tx.OrderHash != o.Hash {
		return ordererr.ErrHashMismatch
	}

	if o.PaidStatus.IsTerminal() {
		slog.Debug("ignoring transaction on terminally paid order",
			"hash", o.Hash, "txid", tx.TxID, "paid_status", o.PaidStatus)

		return nil
	}

	if o.HasPaidEntry(tx.TxID) {
		slog.Debug("ignoring duplicate transaction", "hash", o.Hash, "txid", tx.TxID)

		return nil
	}

	data, err := s.events.RunInterceptors(ctx, events.Event{
		Name:      events.AddTransactionBegin,
		OrderHash: o.Hash,
	}, map[string]any{
		"txid":   tx.TxID,
		"amount": tx.AmountCents,
	})
	if err != nil {
		return fmt.Errorf("transaction vetoed: %w", err)
	}
	if amount, ok := data["amount"].(int64); ok {
		tx.AmountCents = amount
	}

	date := tx.Date
	if date.IsZero() {
		date = time.Now()
	}

	o.Paid = append(o.Paid, order.PaidEntry{
		TxID:        tx.TxID,
		AmountCents: tx.AmountCents,
		Date:        date,
	})
	o.AddHistory(fmt.Sprintf("transaction %s added with amount %d", tx.TxID, tx.AmountCents))

	var becameSuccessful bool
	err = s.atomically(ctx, func(repo iorderrepo.IOrderRepository, record func(events.Event)) error {
		record(events.Event{
			Name:      events.AddTransaction,
			OrderHash: o.Hash,
			Payload:   map[string]any{"txid": tx.TxID},
		})

		ok, rerr := s.recalcPayments(ctx, o, repo, record)
		if rerr != nil {
			return rerr
		}
		becameSuccessful = ok

		record(events.Event{
			Name:      events.AddTransactionEnd,
			OrderHash: o.Hash,
			Payload:   map[string]any{"txid": tx.TxID},
		})

		return nil
	})
	if err != nil {
		return err
	}

	if becameSuccessful {
		s.invoiceOnSuccess(ctx, o)
	}

	return nil
}

// CalculatePayments recomputes the paid state from the full transaction
// history and persists the order. Reaching fully paid triggers the
// successful transition.
func (s *Service) CalculatePayments(ctx context.Context, o *order.Order) error {
	var becameSuccessful bool
	err := s.atomically(ctx, func(repo iorderrepo.IOrderRepository, record func(events.Event)) error {
		ok, rerr := s.recalcPayments(ctx, o, repo, record)
		if rerr != nil {
			return rerr
		}
		becameSuccessful = ok

		return nil
	})
	if err != nil {
		return err
	}

	if becameSuccessful {
		s.invoiceOnSuccess(ctx, o)
	}

	return nil
}

// recalcPayments recomputes and persists the paid state through the
// given repository. It reports whether the order reached the successful
// state during this recalculation. Invoicing stays with the caller, it
// writes through the service connection and must not run inside an open
// transaction.
func (s *Service) recalcPayments(ctx context.Context, o *order.Order, repo iorderrepo.IOrderRepository, record func(events.Event)) (bool, error) {
	if o.PaidStatus == order.PaymentStatusCanceled {
		// Canceled is terminal, recalculation never revives the order.
		return false, s.saveWith(ctx, repo, o)
	}

	o.Articles.Calc()

	status, err := calculateStatus(o)
	if err != nil {
		return false, err
	}

	if status != o.PaidStatus {
		previous := o.PaidStatus
		o.PaidStatus = status
		if status == order.PaymentStatusPaid {
			o.PaidDate = time.Now()
		}
		o.AddHistory(fmt.Sprintf("paid status changed from %d to %d", previous, status))

		record(events.Event{
			Name:      events.PaidStatusChanged,
			OrderHash: o.Hash,
			Payload: map[string]any{
				"from": int(previous),
				"to":   int(status),
			},
		})
	}

	becameSuccessful := false
	if o.PaidStatus == order.PaymentStatusPaid && !o.Successful {
		o.Successful = true
		o.AddHistory("order successful")
		becameSuccessful = true

		record(events.Event{
			Name:      events.OrderSuccessfulCreated,
			OrderHash: o.Hash,
		})
	}

	if err := s.saveWith(ctx, repo, o); err != nil {
		return false, err
	}

	return becameSuccessful, nil
}

// invoiceOnSuccess applies the onPaid invoicing policy after the payment
// state change has been committed.
func (s *Service) invoiceOnSuccess(ctx context.Context, o *order.Order) {
	if o.Stage != order.StageFinal || o.NoAutoInvoice || s.invoicePolicy() != invoiceOnPaid {
		return
	}

	if err := s.CreateInvoice(ctx, o); err != nil {
		slog.Error("auto invoice on paid failed", "hash", o.Hash, "error", err)
	}
}

// calculateStatus maps the transaction history onto a payment status.
func calculateStatus(o *order.Order) (order.PaymentStatus, error) {
	paid := o.PaidSumCents()
	total := o.Articles.TotalCents

	switch {
	case paid < 0:
		return order.PaymentStatusError, fmt.Errorf("%w: negative paid sum %d on order %s",
			ErrUnknownPaymentStatus, paid, o.Hash)
	case len(o.Paid) == 0:
		return order.PaymentStatusOpen, nil
	case paid >= total:
		return order.PaymentStatusPaid, nil
	case paid > 0:
		return order.PaymentStatusPart, nil
	default:
		return order.PaymentStatusOpen, nil
	}
}

// SetPaymentStatus sets the paid status directly, e.g. to cancel an
// order. Terminal states latch, the change is a no-op afterwards. An
// error status additionally runs the configured failed-payment
// procedure.
func (s *Service) SetPaymentStatus(ctx context.Context, id Identity, o *order.Order, status order.PaymentStatus) error {
	if err := mayMutate(id, o); err != nil {
		return err
	}

	if o.IsPromoted() {
		final, err := s.Get(ctx, o.OrderID)
		if err != nil {
			return err
		}

		return s.SetPaymentStatus(ctx, id, final, status)
	}

	if o.PaidStatus.IsTerminal() || status == o.PaidStatus {
		return nil
	}

	previous := o.PaidStatus
	o.PaidStatus = status
	o.AddHistory(fmt.Sprintf("paid status set from %d to %d", previous, status))

	return s.atomically(ctx, func(repo iorderrepo.IOrderRepository, record func(events.Event)) error {
		if status == order.PaymentStatusError {
			s.handleFailedPayment(o, record)
		}

		if err := s.saveWith(ctx, repo, o); err != nil {
			return err
		}

		record(events.Event{
			Name:      events.ProcessStatusChange,
			OrderHash: o.Hash,
			Payload:   map[string]any{"from": int(previous), "to": int(status)},
		})

		return nil
	})
}

// handleFailedPayment runs the payment.failed_procedure setting. With
// "execute" the failed payment method is detached right away and the
// order reopens so the customer can retry with another method. Any other
// value keeps the error status for manual handling.
func (s *Service) handleFailedPayment(o *order.Order, record func(events.Event)) {
	if viper.GetString("payment.failed_procedure") != failedProcedureExecute {
		o.AddHistory("payment failed, handling deferred")

		return
	}

	o.PaymentID = 0
	o.PaymentMethod = ""
	o.PaidStatus = order.PaymentStatusOpen
	o.AddHistory("payment failed, payment method detached")
	o.AddFrontendMessage("payment failed, please choose another payment method")

	record(events.Event{
		Name:      events.PaymentChanged,
		OrderHash: o.Hash,
		Payload:   map[string]any{"paymentId": int64(0), "paymentMethod": ""},
	})
}
