// Package checkout drives the multi-step checkout of an in-process
// order: an ordered list of pluggable steps, validation with backward
// redirect, and provider hooks around the final submission.
package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopkit/order/internal/dal/interfaces/ibasketrepo"
	"github.com/shopkit/order/internal/dal/interfaces/icheckoutrepo"
	"github.com/shopkit/order/internal/service/models/checkoutstate"
	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/service/models/product"
	"github.com/shopkit/order/internal/service/services/ordersvc"
)

// Process is the checkout state machine of one order. It is built per
// request: steps depend on the caller (guests see a registration step)
// and on the registered providers.
type Process struct {
	orders    *ordersvc.Service
	repo      icheckoutrepo.ICheckoutRepository
	baskets   ibasketrepo.IBasketRepository
	providers []Provider

	user  ordersvc.Identity
	order *order.Order
	state *checkoutstate.State
	steps []Step
}

type option func(*Process)

//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderService(svc *ordersvc.Service) option {
	return func(p *Process) { p.orders = svc }
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithCheckoutRepository(repo icheckoutrepo.ICheckoutRepository) option {
	return func(p *Process) { p.repo = repo }
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithBasketRepository(repo ibasketrepo.IBasketRepository) option {
	return func(p *Process) { p.baskets = repo }
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithProviders(providers ...Provider) option {
	return func(p *Process) { p.providers = append(p.providers, providers...) }
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithUser(user ordersvc.Identity) option {
	return func(p *Process) { p.user = user }
}

// NewProcess builds the state machine for the order behind the hash.
func NewProcess(ctx context.Context, hash string, opts ...option) (*Process, error) {
	p := &Process{}
	for _, opt := range opts {
		opt(p)
	}

	if p.orders == nil {
		return nil, fmt.Errorf("checkout: order service is required")
	}

	o, err := p.orders.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	p.order = o

	p.state = checkoutstate.New(hash)
	if p.repo != nil {
		if saved, err := p.repo.Get(ctx, hash); err == nil {
			p.state = saved
		}
	}

	p.buildSteps()

	return p, nil
}

// buildSteps assembles the ordered step list. The processing step is
// deliberately not part of the positional order; it is reachable by
// name only.
func (p *Process) buildSteps() {
	steps := make([]Step, 0, 6+len(p.providers))

	if p.user.UserID == 0 && !p.user.System {
		steps = append(steps, registrationStep{})
	}
	steps = append(steps, basketStep{}, customerDataStep{})

	for _, provider := range p.providers {
		steps = append(steps, provider.Steps(p)...)
	}

	steps = append(steps, checkoutStep{}, finishStep{})
	p.steps = steps
}

// Order returns the order driven by this checkout.
func (p *Process) Order() *order.Order {
	return p.order
}

// Steps returns the ordered step list.
func (p *Process) Steps() []Step {
	return p.steps
}

// StepByName resolves a step by name, including the non-positional
// processing step. Unknown names resolve to the first step.
func (p *Process) StepByName(name string) Step {
	if name == StepProcessing {
		return processingStep{}
	}

	for _, s := range p.steps {
		if s.Name() == name {
			return s
		}
	}

	return p.steps[0]
}

func (p *Process) indexOf(name string) int {
	for i, s := range p.steps {
		if s.Name() == name {
			return i
		}
	}

	return 0
}

// Next returns the step after the given one, clamped to the last step.
func (p *Process) Next(current string) Step {
	i := p.indexOf(current)
	if i+1 < len(p.steps) {
		return p.steps[i+1]
	}

	return p.steps[len(p.steps)-1]
}

// Previous returns the step before the given one, clamped to the first.
func (p *Process) Previous(current string) Step {
	i := p.indexOf(current)
	if i > 0 {
		return p.steps[i-1]
	}

	return p.steps[0]
}

// Current resolves the step to render for a request. An already
// successful order always lands on finish, guarding against replay
// after completion. Otherwise every positional step before the
// requested one is validated and the first incomplete one wins: a
// request cannot skip ahead past an unfinished step.
func (p *Process) Current(ctx context.Context, requested string) (Step, *ValidationError) {
	if p.order.Successful {
		return finishStep{}, nil
	}

	target := p.StepByName(requested)
	if target.Name() == StepProcessing {
		return target, nil
	}

	for _, s := range p.steps[:p.indexOf(target.Name())] {
		if skipValidation(s.Name()) {
			continue
		}
		if verr := s.Validate(ctx, p); verr != nil {
			return s, verr
		}
	}

	p.state.CurrentStep = target.Name()
	p.saveState(ctx)

	return target, nil
}

// Send completes the checkout step: all steps are validated once more,
// then every provider runs. A provider answering StatusProcessing
// short-circuits into the processing step; an abort skips that provider
// and continues. Afterwards the draft is promoted, at most once.
func (p *Process) Send(ctx context.Context) (Step, *ValidationError, error) {
	for _, s := range p.steps {
		if s.Name() == StepFinish {
			continue
		}
		if verr := s.Validate(ctx, p); verr != nil {
			return s, verr, nil
		}
	}

	for _, provider := range p.providers {
		status, err := provider.OnOrderStart(ctx, p.order)
		if err != nil {
			// Processing failures abort this provider, not the checkout.
			slog.Error("order process provider failed, treating as abort", "hash", p.order.Hash, "error", err)
			provider.OnOrderAbort(ctx, p.order)
			continue
		}

		switch status {
		case StatusProcessing:
			p.state.CurrentStep = StepProcessing
			p.saveState(ctx)

			return processingStep{}, nil, nil
		case StatusAbort:
			provider.OnOrderAbort(ctx, p.order)
		default:
			if err := provider.OnOrderSuccess(ctx, p.order); err != nil {
				slog.Error("order process provider success hook failed", "hash", p.order.Hash, "error", err)
			}
		}
	}

	if p.order.Stage == order.StageDraft {
		final, err := p.orders.CreateOrder(ctx, p.user, p.order)
		if err != nil {
			return nil, nil, err
		}
		p.order = final
	}

	p.Cleanup(ctx)
	p.state.CurrentStep = StepFinish
	p.saveState(ctx)

	return finishStep{}, nil, nil
}

// Cleanup reconciles leftovers once the order is successful: a dangling
// draft under the same hash is removed and the basket bound to the hash
// is emptied and detached.
func (p *Process) Cleanup(ctx context.Context) {
	if !p.order.Successful {
		return
	}

	if draft, err := p.orders.GetDraft(ctx, p.order.Hash); err == nil {
		if err := p.orders.Delete(ctx, ordersvc.SystemUser, draft); err != nil {
			slog.Error("failed to remove leftover draft", "hash", p.order.Hash, "error", err)
		}
	}

	if p.baskets != nil {
		if b, err := p.baskets.GetByHash(ctx, p.order.Hash); err == nil {
			b.Products = []product.Product{}
			b.Hash = ""
			if err := p.baskets.Update(ctx, b); err != nil {
				slog.Error("failed to detach basket", "hash", p.order.Hash, "error", err)
			}
		}
	}

	if p.repo != nil {
		if err := p.repo.Delete(ctx, p.order.Hash); err != nil {
			slog.Debug("no checkout state to clean up", "hash", p.order.Hash)
		}
	}
}

// AddStepMessage queues a one-shot notice for a step.
func (p *Process) AddStepMessage(ctx context.Context, step, msg string) {
	p.state.AddMessage(step, msg)
	p.saveState(ctx)
}

// PopStepMessages delivers and removes the queued notices of a step.
func (p *Process) PopStepMessages(ctx context.Context, step string) []string {
	msgs := p.state.PopMessages(step)
	if len(msgs) > 0 {
		p.saveState(ctx)
	}

	return msgs
}

// AcceptTerms marks the terms checkbox for this checkout.
func (p *Process) AcceptTerms(ctx context.Context) {
	p.state.Flags["termsAccepted"] = true
	p.saveState(ctx)
}

func (p *Process) saveState(ctx context.Context) {
	if p.repo == nil {
		return
	}
	if err := p.repo.Save(ctx, p.state); err != nil {
		slog.Error("failed to persist checkout state", "hash", p.order.Hash, "error", err)
	}
}
