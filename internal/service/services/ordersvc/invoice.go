package ordersvc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
	"github.com/shopkit/order/internal/service/models/order"
)

// Invoicer is the port to the invoicing module. The module is optional,
// a nil invoicer disables invoice creation without failing orders.
type Invoicer interface {
	// CreateInvoice builds a temporary invoice from the order and
	// returns its id. Depending on configuration the module may auto
	// post it to a final invoice.
	CreateInvoice(ctx context.Context, o *order.Order) (int64, error)
	// IsPosted reports whether the referenced invoice was posted.
	IsPosted(ctx context.Context, invoiceID int64) (bool, error)
	// InvoiceOnOrder decides the byPayment policy for a payment method.
	InvoiceOnOrder(paymentID int64) bool
}

// Invoice auto-creation policies, read from configuration.
const (
	invoiceOnOrder   = "onOrder"
	invoiceOnPaid    = "onPaid"
	invoiceByPayment = "byPayment"
)

func (s *Service) invoicePolicy() string {
	return viper.GetString("invoice.auto_create")
}

// CreateInvoice creates an invoice for a final order. Creating twice
// returns the existing reference. Absence of the invoicing module is
// not an error.
func (s *Service) CreateInvoice(ctx context.Context, o *order.Order) error {
	if o.Stage != order.StageFinal {
		return fmt.Errorf("cannot invoice in-process order %s", o.Hash)
	}

	if o.InvoiceID != 0 {
		return nil
	}

	if s.invoicer == nil {
		slog.Warn("invoicing module not available, skipping invoice creation", "hash", o.Hash)

		return nil
	}

	invoiceID, err := s.invoicer.CreateInvoice(ctx, o)
	if err != nil {
		return fmt.Errorf("failed to create invoice for order %s: %w", o.Hash, err)
	}

	o.InvoiceID = invoiceID
	o.AddHistory(fmt.Sprintf("invoice %d created", invoiceID))

	return s.save(ctx, o)
}

// HasInvoice reports whether an invoice reference is resolvable.
func (s *Service) HasInvoice(o *order.Order) bool {
	return o.InvoiceID != 0
}

// IsPosted reports whether the order's invoice was posted. Promoted
// drafts delegate to their final order.
func (s *Service) IsPosted(ctx context.Context, o *order.Order) (bool, error) {
	if o.IsPromoted() {
		final, err := s.Get(ctx, o.OrderID)
		if err != nil {
			return false, err
		}

		return s.IsPosted(ctx, final)
	}

	if o.InvoiceID == 0 || s.invoicer == nil {
		return false, nil
	}

	return s.invoicer.IsPosted(ctx, o.InvoiceID)
}

// autoInvoice applies the configured policy after promotion.
func (s *Service) autoInvoice(ctx context.Context, o *order.Order) {
	switch s.invoicePolicy() {
	case invoiceOnOrder:
		if err := s.CreateInvoice(ctx, o); err != nil {
			slog.Error("auto invoice on order failed", "hash", o.Hash, "error", err)
		}
	case invoiceByPayment:
		if s.invoicer != nil && s.invoicer.InvoiceOnOrder(o.PaymentID) {
			if err := s.CreateInvoice(ctx, o); err != nil {
				slog.Error("auto invoice by payment failed", "hash", o.Hash, "error", err)
			}
		}
	case invoiceOnPaid, "":
		// onPaid triggers from the successful transition instead.
	}
}
