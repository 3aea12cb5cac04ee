package checkout

import (
	"context"

	"github.com/shopkit/order/internal/service/models/order"
)

// ProcessingStatus is the answer of a processing provider to the order
// submission. The state machine treats providers as black boxes and
// never inspects anything beyond this status.
type ProcessingStatus int

const (
	// StatusStart: the provider has nothing pending.
	StatusStart ProcessingStatus = 0
	// StatusProcessing: the provider needs an asynchronous round trip
	// (e.g. a payment redirect); checkout parks on the processing step.
	StatusProcessing ProcessingStatus = 1
	// StatusFinish: the provider completed its part.
	StatusFinish ProcessingStatus = 2
	// StatusAbort: the provider cancels this submission attempt.
	StatusAbort ProcessingStatus = 3
)

// Provider is the extension point for payment, shipping and similar
// modules. Providers may inject their own steps into the checkout and
// intercept the submission flow.
type Provider interface {
	// Steps returns extra checkout steps, placed between customer data
	// and the checkout step.
	Steps(p *Process) []Step
	// OnOrderStart runs at submission. A returned error is treated like
	// StatusAbort.
	OnOrderStart(ctx context.Context, o *order.Order) (ProcessingStatus, error)
	// OnOrderSuccess runs when the provider's part completed.
	OnOrderSuccess(ctx context.Context, o *order.Order) error
	// OnOrderAbort runs when this provider aborted the attempt.
	OnOrderAbort(ctx context.Context, o *order.Order)
	// Display supplies the body of the processing step.
	Display(ctx context.Context, o *order.Order) (map[string]any, error)
}
