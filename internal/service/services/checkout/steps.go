package checkout

import (
	"context"
	"fmt"
)

// Step names. Steps are addressed by name in requests and in the
// per-step message queue.
const (
	StepRegistration = "registration"
	StepBasket       = "basket"
	StepCustomerData = "customerdata"
	StepCheckout     = "checkout"
	StepProcessing   = "processing"
	StepFinish       = "finish"
)

// ValidationError reports an incomplete step. It is a result value, not
// a control-flow panic: the state machine inspects it and redirects to
// the offending step.
type ValidationError struct {
	Step    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %s invalid: %s", e.Step, e.Message)
}

// Step is one state of the checkout. Validate returns nil when the step
// is complete.
type Step interface {
	Name() string
	Validate(ctx context.Context, p *Process) *ValidationError
}

// skipValidation lists the steps the backward-redirect walk does not
// validate.
func skipValidation(name string) bool {
	switch name {
	case StepBasket, StepCheckout, StepFinish, StepProcessing:
		return true
	default:
		return false
	}
}

type registrationStep struct{}

func (registrationStep) Name() string { return StepRegistration }

func (registrationStep) Validate(_ context.Context, p *Process) *ValidationError {
	if p.user.UserID == 0 && !p.user.System {
		return &ValidationError{Step: StepRegistration, Message: "registration or login required"}
	}

	return nil
}

type basketStep struct{}

func (basketStep) Name() string { return StepBasket }

func (basketStep) Validate(_ context.Context, p *Process) *ValidationError {
	if p.order.Articles.Count() == 0 {
		return &ValidationError{Step: StepBasket, Message: "basket is empty"}
	}

	return nil
}

type customerDataStep struct{}

func (customerDataStep) Name() string { return StepCustomerData }

func (customerDataStep) Validate(_ context.Context, p *Process) *ValidationError {
	if p.order.InvoiceAddress.IsEmpty() {
		return &ValidationError{Step: StepCustomerData, Message: "invoice address is missing"}
	}
	if p.order.Customer.Email == "" {
		return &ValidationError{Step: StepCustomerData, Message: "customer email is missing"}
	}

	return nil
}

type checkoutStep struct{}

func (checkoutStep) Name() string { return StepCheckout }

func (checkoutStep) Validate(_ context.Context, p *Process) *ValidationError {
	if !p.state.Flags["termsAccepted"] {
		return &ValidationError{Step: StepCheckout, Message: "terms and conditions not accepted"}
	}

	return nil
}

type processingStep struct{}

func (processingStep) Name() string { return StepProcessing }

func (processingStep) Validate(context.Context, *Process) *ValidationError { return nil }

type finishStep struct{}

func (finishStep) Name() string { return StepFinish }

func (finishStep) Validate(context.Context, *Process) *ValidationError { return nil }
