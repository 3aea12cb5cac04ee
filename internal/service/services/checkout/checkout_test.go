package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopkit/order/internal/dal/interfaces/ibasketrepo"
	"github.com/shopkit/order/internal/dal/interfaces/icheckoutrepo"
	"github.com/shopkit/order/internal/dal/interfaces/iorderrepo"
	"github.com/shopkit/order/internal/service/models/address"
	"github.com/shopkit/order/internal/service/models/article"
	"github.com/shopkit/order/internal/service/models/basket"
	"github.com/shopkit/order/internal/service/models/checkoutstate"
	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/service/ordererr"
	"github.com/shopkit/order/internal/service/services/ordersvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID int64
	finals map[int64]*order.Order
	drafts map[string]*order.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{finals: map[int64]*order.Order{}, drafts: map[string]*order.Order{}}
}

func cloneOrder(o *order.Order) *order.Order {
	c := *o
	return &c
}

func (r *fakeOrderRepo) Insert(_ context.Context, o *order.Order) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := cloneOrder(o)
	c.ID = r.nextID
	r.finals[c.ID] = c
	return c.ID, nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id int64) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.finals[id]
	if !ok {
		return nil, ordererr.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *fakeOrderRepo) GetByHash(_ context.Context, hash string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.finals {
		if o.Hash == hash {
			return cloneOrder(o), nil
		}
	}
	return nil, ordererr.ErrOrderNotFound
}

func (r *fakeOrderRepo) Update(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.finals[o.ID]; !ok {
		return ordererr.ErrOrderNotFound
	}
	r.finals[o.ID] = cloneOrder(o)
	return nil
}

func (r *fakeOrderRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.finals, id)
	return nil
}

func (r *fakeOrderRepo) Search(_ context.Context, _ iorderrepo.SearchParams) ([]order.Order, error) {
	return nil, nil
}

func (r *fakeOrderRepo) InsertDraft(_ context.Context, o *order.Order) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := cloneOrder(o)
	c.ID = r.nextID
	r.drafts[c.Hash] = c
	return c.ID, nil
}

func (r *fakeOrderRepo) GetDraftByHash(_ context.Context, hash string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.drafts[hash]
	if !ok {
		return nil, ordererr.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *fakeOrderRepo) UpdateDraft(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drafts[o.Hash]; !ok {
		return ordererr.ErrOrderNotFound
	}
	r.drafts[o.Hash] = cloneOrder(o)
	return nil
}

func (r *fakeOrderRepo) DeleteDraft(_ context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, hash)
	return nil
}

func (r *fakeOrderRepo) LinkDraft(_ context.Context, hash string, orderID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.drafts[hash]; ok {
		o.OrderID = orderID
	}
	return nil
}

func (r *fakeOrderRepo) ListDraftsByCustomer(_ context.Context, _ int64) ([]order.Order, error) {
	return nil, nil
}

var _ iorderrepo.IOrderRepository = (*fakeOrderRepo)(nil)

type fakeCheckoutRepo struct {
	mu     sync.Mutex
	states map[string]*checkoutstate.State
}

func newFakeCheckoutRepo() *fakeCheckoutRepo {
	return &fakeCheckoutRepo{states: map[string]*checkoutstate.State{}}
}

func (r *fakeCheckoutRepo) Get(_ context.Context, hash string) (*checkoutstate.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[hash]
	if !ok {
		return nil, errors.New("state not found")
	}
	return s, nil
}

func (r *fakeCheckoutRepo) Save(_ context.Context, state *checkoutstate.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.OrderHash] = state
	return nil
}

func (r *fakeCheckoutRepo) Delete(_ context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, hash)
	return nil
}

var _ icheckoutrepo.ICheckoutRepository = (*fakeCheckoutRepo)(nil)

type fakeBasketRepo struct {
	mu      sync.Mutex
	baskets map[int64]*basket.Basket
}

func (r *fakeBasketRepo) Insert(_ context.Context, b *basket.Basket) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baskets[b.ID] = b
	return b.ID, nil
}

func (r *fakeBasketRepo) GetByID(_ context.Context, id int64) (*basket.Basket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.baskets[id]
	if !ok {
		return nil, ordererr.ErrBasketNotFound
	}
	return b, nil
}

func (r *fakeBasketRepo) GetByUser(_ context.Context, _ int64) (*basket.Basket, error) {
	return nil, ordererr.ErrBasketNotFound
}

func (r *fakeBasketRepo) GetByHash(_ context.Context, hash string) (*basket.Basket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.baskets {
		if b.Hash == hash {
			return b, nil
		}
	}
	return nil, ordererr.ErrBasketNotFound
}

func (r *fakeBasketRepo) Update(_ context.Context, b *basket.Basket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baskets[b.ID] = b
	return nil
}

func (r *fakeBasketRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.baskets, id)
	return nil
}

var _ ibasketrepo.IBasketRepository = (*fakeBasketRepo)(nil)

// scriptedProvider answers OnOrderStart with a fixed status and counts
// the hook invocations.
type scriptedProvider struct {
	status    ProcessingStatus
	err       error
	started   int
	succeeded int
	aborted   int
}

func (p *scriptedProvider) Steps(*Process) []Step { return nil }

func (p *scriptedProvider) OnOrderStart(context.Context, *order.Order) (ProcessingStatus, error) {
	p.started++
	return p.status, p.err
}

func (p *scriptedProvider) OnOrderSuccess(context.Context, *order.Order) error {
	p.succeeded++
	return nil
}

func (p *scriptedProvider) OnOrderAbort(context.Context, *order.Order) {
	p.aborted++
}

func (p *scriptedProvider) Display(context.Context, *order.Order) (map[string]any, error) {
	return nil, nil
}

type env struct {
	orders    *ordersvc.Service
	orderRepo *fakeOrderRepo
	stateRepo *fakeCheckoutRepo
	user      ordersvc.Identity
}

func newEnv(t *testing.T) *env {
	t.Helper()

	repo := newFakeOrderRepo()
	return &env{
		orders:    ordersvc.MustNewService(ordersvc.WithRepository(repo)),
		orderRepo: repo,
		stateRepo: newFakeCheckoutRepo(),
		user:      ordersvc.Identity{UserID: 7},
	}
}

// readyDraft creates a draft that passes every step except checkout
// (terms are not accepted yet).
func (e *env) readyDraft(t *testing.T) *order.Order {
	t.Helper()
	ctx := context.Background()

	draft, err := e.orders.CreateDraft(ctx, e.user, 7)
	require.NoError(t, err)

	draft.Articles.Add(article.Article{ProductID: 1, UnitPriceCents: 1000, Quantity: 1})
	draft.InvoiceAddress = address.Address{Firstname: "Jo", Lastname: "Doe", Street: "Main St 1", ZIP: "1", City: "Bonn", Country: "DE"}
	draft.Customer.Email = "jo@example.org"
	require.NoError(t, e.orders.Update(ctx, ordersvc.SystemUser, draft))

	return draft
}

func (e *env) process(t *testing.T, hash string, providers ...Provider) *Process {
	t.Helper()

	p, err := NewProcess(context.Background(), hash,
		WithOrderService(e.orders),
		WithCheckoutRepository(e.stateRepo),
		WithUser(e.user),
		WithProviders(providers...),
	)
	require.NoError(t, err)

	return p
}

func stepNames(p *Process) []string {
	names := make([]string, 0, len(p.Steps()))
	for _, s := range p.Steps() {
		names = append(names, s.Name())
	}
	return names
}

func TestBuildSteps(t *testing.T) {
	e := newEnv(t)
	draft := e.readyDraft(t)

	t.Run("authenticated user", func(t *testing.T) {
		p := e.process(t, draft.Hash)
		assert.Equal(t, []string{StepBasket, StepCustomerData, StepCheckout, StepFinish}, stepNames(p))
	})

	t.Run("guest sees registration first", func(t *testing.T) {
		e.user = ordersvc.Identity{}
		defer func() { e.user = ordersvc.Identity{UserID: 7} }()

		p := e.process(t, draft.Hash)
		assert.Equal(t, []string{StepRegistration, StepBasket, StepCustomerData, StepCheckout, StepFinish}, stepNames(p))
	})
}

func TestCurrent(t *testing.T) {
	ctx := context.Background()

	t.Run("incomplete earlier step wins", func(t *testing.T) {
		e := newEnv(t)
		draft, err := e.orders.CreateDraft(ctx, e.user, 7)
		require.NoError(t, err)
		draft.Articles.Add(article.Article{ProductID: 1, UnitPriceCents: 1000, Quantity: 1})
		require.NoError(t, e.orders.Update(ctx, ordersvc.SystemUser, draft))

		p := e.process(t, draft.Hash)

		// Customer data is missing, so requesting checkout redirects back.
		step, verr := p.Current(ctx, StepCheckout)

		require.NotNil(t, verr)
		assert.Equal(t, StepCustomerData, step.Name())
		assert.Equal(t, StepCustomerData, verr.Step)
	})

	t.Run("complete steps let the request through", func(t *testing.T) {
		e := newEnv(t)
		draft := e.readyDraft(t)

		p := e.process(t, draft.Hash)
		step, verr := p.Current(ctx, StepCheckout)

		require.Nil(t, verr)
		assert.Equal(t, StepCheckout, step.Name())
	})

	t.Run("guest is redirected to registration", func(t *testing.T) {
		e := newEnv(t)
		draft := e.readyDraft(t)
		e.user = ordersvc.Identity{}

		p := e.process(t, draft.Hash)
		step, verr := p.Current(ctx, StepCheckout)

		require.NotNil(t, verr)
		assert.Equal(t, StepRegistration, step.Name())
	})

	t.Run("processing is reachable by name only", func(t *testing.T) {
		e := newEnv(t)
		draft := e.readyDraft(t)

		p := e.process(t, draft.Hash)
		step, verr := p.Current(ctx, StepProcessing)

		require.Nil(t, verr)
		assert.Equal(t, StepProcessing, step.Name())
		assert.NotContains(t, stepNames(p), StepProcessing)
	})

	t.Run("successful order always lands on finish", func(t *testing.T) {
		e := newEnv(t)
		draft := e.readyDraft(t)
		p := e.process(t, draft.Hash)
		p.AcceptTerms(ctx)

		_, _, err := p.Send(ctx)
		require.NoError(t, err)

		p2 := e.process(t, draft.Hash)
		p2.order.Successful = true
		step, verr := p2.Current(ctx, StepBasket)

		require.Nil(t, verr)
		assert.Equal(t, StepFinish, step.Name())
	})

	t.Run("unknown step resolves to the first", func(t *testing.T) {
		e := newEnv(t)
		draft := e.readyDraft(t)

		p := e.process(t, draft.Hash)
		step, verr := p.Current(ctx, "bogus")

		require.Nil(t, verr)
		assert.Equal(t, StepBasket, step.Name())
	})
}

func TestNextPrevious(t *testing.T) {
	e := newEnv(t)
	draft := e.readyDraft(t)
	p := e.process(t, draft.Hash)

	assert.Equal(t, StepCustomerData, p.Next(StepBasket).Name())
	assert.Equal(t, StepBasket, p.Previous(StepCustomerData).Name())

	t.Run("clamped at the edges", func(t *testing.T) {
		assert.Equal(t, StepFinish, p.Next(StepFinish).Name())
		assert.Equal(t, StepBasket, p.Previous(StepBasket).Name())
	})
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("validation failure returns the offending step", func(t *testing.T) {
		e := newEnv(t)
		draft := e.readyDraft(t)
		p := e.process(t, draft.Hash)

		step, verr, err := p.Send(ctx)

		require.NoError(t, err)
		require.NotNil(t, verr)
		assert.Equal(t, StepCheckout, step.Name())
		assert.Equal(t, "terms and conditions not accepted", verr.Message)
	})

	t.Run("promotes the draft exactly once", func(t *testing.T) {
		e := newEnv(t)
		draft := e.readyDraft(t)
		p := e.process(t, draft.Hash)
		p.AcceptTerms(ctx)

		step, verr, err := p.Send(ctx)

		require.NoError(t, err)
		require.Nil(t, verr)
		assert.Equal(t, StepFinish, step.Name())
		assert.Equal(t, order.StageFinal, p.Order().Stage)

		// The draft row is gone.
		_, err = e.orders.GetDraft(ctx, draft.Hash)
		assert.Error(t, err)

		// Resending leaves a single final order.
		p2 := e.process(t, draft.Hash)
		p2.AcceptTerms(ctx)
		_, _, err = p2.Send(ctx)
		require.NoError(t, err)
		assert.Len(t, e.orderRepo.finals, 1)
	})

	t.Run("provider success hooks run", func(t *testing.T) {
		e := newEnv(t)
		draft := e.readyDraft(t)
		provider := &scriptedProvider{status: StatusFinish}

		p := e.process(t, draft.Hash, provider)
		p.AcceptTerms(ctx)

		_, verr, err := p.Send(ctx)

		require.NoError(t, err)
		require.Nil(t, verr)
		assert.Equal(t, 1, provider.started)
		assert.Equal(t, 1, provider.succeeded)
		assert.Equal(t, 0, provider.aborted)
	})

	t.Run("processing provider parks the checkout", func(t *testing.T) {
		e := newEnv(t)
		draft := e.readyDraft(t)
		provider := &scriptedProvider{status: StatusProcessing}

		p := e.process(t, draft.Hash, provider)
		p.AcceptTerms(ctx)

		step, verr, err := p.Send(ctx)

		require.NoError(t, err)
		require.Nil(t, verr)
		assert.Equal(t, StepProcessing, step.Name())

		// No promotion happened.
		assert.Empty(t, e.orderRepo.finals)
		_, err = e.orders.GetDraft(ctx, draft.Hash)
		assert.NoError(t, err)
	})

	t.Run("aborting provider does not stop the checkout", func(t *testing.T) {
		e := newEnv(t)
		draft := e.readyDraft(t)
		aborter := &scriptedProvider{status: StatusAbort}
		other := &scriptedProvider{status: StatusFinish}

		p := e.process(t, draft.Hash, aborter, other)
		p.AcceptTerms(ctx)

		step, _, err := p.Send(ctx)

		require.NoError(t, err)
		assert.Equal(t, StepFinish, step.Name())
		assert.Equal(t, 1, aborter.aborted)
		assert.Equal(t, 1, other.succeeded)
	})

	t.Run("provider error is treated as abort", func(t *testing.T) {
		e := newEnv(t)
		draft := e.readyDraft(t)
		failing := &scriptedProvider{err: errors.New("gateway down")}

		p := e.process(t, draft.Hash, failing)
		p.AcceptTerms(ctx)

		step, _, err := p.Send(ctx)

		require.NoError(t, err)
		assert.Equal(t, StepFinish, step.Name())
		assert.Equal(t, 1, failing.aborted)
	})
}

func TestStepMessages(t *testing.T) {
	ctx := context.Background()

	e := newEnv(t)
	draft := e.readyDraft(t)
	p := e.process(t, draft.Hash)

	p.AddStepMessage(ctx, StepBasket, "voucher applied")
	p.AddStepMessage(ctx, StepBasket, "one item is low on stock")

	// Messages survive a rebuild of the process.
	p2 := e.process(t, draft.Hash)
	msgs := p2.PopStepMessages(ctx, StepBasket)
	require.Len(t, msgs, 2)
	assert.Equal(t, "voucher applied", msgs[0])

	// Delivered exactly once.
	assert.Empty(t, p2.PopStepMessages(ctx, StepBasket))
	p3 := e.process(t, draft.Hash)
	assert.Empty(t, p3.PopStepMessages(ctx, StepBasket))
}

func TestAcceptTermsPersists(t *testing.T) {
	ctx := context.Background()

	e := newEnv(t)
	draft := e.readyDraft(t)

	p := e.process(t, draft.Hash)
	p.AcceptTerms(ctx)

	p2 := e.process(t, draft.Hash)
	step, verr := p2.Current(ctx, StepCheckout)

	require.Nil(t, verr)
	assert.Equal(t, StepCheckout, step.Name())
}
