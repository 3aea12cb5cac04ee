package ordersvc

import (
	"context"
	"sync"

	"github.com/shopkit/order/internal/dal/interfaces/iorderrepo"
	"github.com/shopkit/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/shopkit/order/internal/service/events"
	"github.com/shopkit/order/internal/service/models/customer"
	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/service/ordererr"
)

// UnitOfWork binds the order and outbox repositories to one database
// transaction. Mutating operations run their writes and the events
// describing them through the same unit so both commit together.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// Identity is the caller on whose behalf an operation runs. System
// identities bypass ownership checks; everyone else may only touch
// their own orders.
type Identity struct {
	UserID int64
	System bool
}

// SystemUser is the internal identity for provider callbacks and
// workers.
var SystemUser = Identity{System: true}

// Service is the lookup and mutation service for orders at both
// lifecycle stages. It is the single source of truth for identity
// resolution: numeric ids address final orders only, hashes address
// either stage.
type Service struct {
	repo      iorderrepo.IOrderRepository
	newUOW    func() UnitOfWork
	events    *events.Dispatcher
	invoicer  Invoicer
	customers customer.Directory

	// Short-lived instance cache for final orders. Must be invalidated
	// explicitly on refresh, the rows stay authoritative.
	mu    sync.Mutex
	cache map[int64]*order.Order
}

type option func(*Service)

// MustNewService creates a new order service.
func MustNewService(opts ...option) *Service {
	s := &Service{
		cache: map[int64]*order.Order{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.repo == nil {
		panic("ordersvc: repository is required")
	}
	if s.events == nil {
		s.events = events.NewDispatcher()
	}

	return s
}

// WithRepository sets the order repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRepository(repo iorderrepo.IOrderRepository) option {
	return func(s *Service) {
		s.repo = repo
	}
}

// WithUnitOfWork sets the transactional repository factory. Without it
// writes fall back to the plain repository and events are enqueued
// best-effort.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWork(factory func() UnitOfWork) option {
	return func(s *Service) {
		s.newUOW = factory
	}
}

// WithEvents sets the domain event dispatcher.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithEvents(d *events.Dispatcher) option {
	return func(s *Service) {
		s.events = d
	}
}

// WithInvoicer wires the optional invoicing module.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithInvoicer(inv Invoicer) option {
	return func(s *Service) {
		s.invoicer = inv
	}
}

// WithCustomerDirectory wires the live user lookup.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCustomerDirectory(dir customer.Directory) option {
	return func(s *Service) {
		s.customers = dir
	}
}

// Events exposes the dispatcher for hook registration.
func (s *Service) Events() *events.Dispatcher {
	return s.events
}

// Get returns a final order by its numeric id, served from the instance
// cache when possible.
func (s *Service) Get(ctx context.Context, id int64) (*order.Order, error) {
	s.mu.Lock()
	if o, ok := s.cache[id]; ok {
		s.mu.Unlock()

		return o, nil
	}
	s.mu.Unlock()

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.resolveCustomer(ctx, o)

	s.mu.Lock()
	s.cache[id] = o
	s.mu.Unlock()

	return o, nil
}

// GetByHash resolves an order by hash, preferring the final order over a
// still-existing draft with the same hash.
func (s *Service) GetByHash(ctx context.Context, hash string) (*order.Order, error) {
	if o, err := s.repo.GetByHash(ctx, hash); err == nil {
		s.resolveCustomer(ctx, o)

		return o, nil
	}

	o, err := s.repo.GetDraftByHash(ctx, hash)
	if err != nil {
		return nil, ordererr.NotFound(ordererr.CodeOrderNotFound, "no order for hash %s", hash)
	}
	s.resolveCustomer(ctx, o)

	return o, nil
}

// GetDraft returns the in-process order for a hash.
func (s *Service) GetDraft(ctx context.Context, hash string) (*order.Order, error) {
	o, err := s.repo.GetDraftByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	s.resolveCustomer(ctx, o)

	return o, nil
}

// Search lists final orders.
func (s *Service) Search(ctx context.Context, params iorderrepo.SearchParams) ([]order.Order, error) {
	orders, err := s.repo.Search(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ordererr.ErrNoOrdersFound
	}

	return orders, nil
}

// Refresh reloads an order from the backing store, dropping any cached
// instance first.
func (s *Service) Refresh(ctx context.Context, o *order.Order) (*order.Order, error) {
	if o.Stage == order.StageFinal {
		s.RemoveFromInstanceCache(o.ID)

		return s.Get(ctx, o.ID)
	}

	return s.GetDraft(ctx, o.Hash)
}

// RemoveFromInstanceCache drops a cached final order to avoid staleness.
func (s *Service) RemoveFromInstanceCache(id int64) {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
}

// save persists an order to its stage's table and invalidates the cache.
func (s *Service) save(ctx context.Context, o *order.Order) error {
	return s.saveWith(ctx, s.repo, o)
}

func (s *Service) saveWith(ctx context.Context, repo iorderrepo.IOrderRepository, o *order.Order) error {
	if o.Stage == order.StageDraft {
		return repo.UpdateDraft(ctx, o)
	}

	s.RemoveFromInstanceCache(o.ID)

	return repo.Update(ctx, o)
}

// atomically runs fn against repositories bound to a single transaction
// when a unit of work is configured. Events recorded by fn are written
// to the outbox inside that transaction; in-process observers see them
// only after commit.
func (s *Service) atomically(ctx context.Context, fn func(repo iorderrepo.IOrderRepository, record func(events.Event)) error) error {
	var recorded []events.Event
	record := func(ev events.Event) { recorded = append(recorded, ev) }

	if s.newUOW == nil {
		if err := fn(s.repo, record); err != nil {
			return err
		}
		for _, ev := range recorded {
			s.events.Dispatch(ctx, ev)
		}

		return nil
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return err
	}

	if err := fn(work.OrderRepository(), record); err != nil {
		_ = work.Rollback(ctx)

		return err
	}

	for _, ev := range recorded {
		if err := s.events.Enqueue(ctx, work.OutboxRepository(), ev); err != nil {
			_ = work.Rollback(ctx)

			return err
		}
	}

	if err := work.Commit(ctx); err != nil {
		return err
	}

	for _, ev := range recorded {
		s.events.Notify(ev)
	}

	return nil
}

// resolveCustomer hydrates the order customer, degrading to the stored
// snapshot or the nobody user. Never fails.
func (s *Service) resolveCustomer(ctx context.Context, o *order.Order) {
	o.Customer = customer.Resolve(ctx, &o.Customer, nil, o.CustomerID, s.customers)
}

// mayMutate checks the caller's right to change an order.
func mayMutate(id Identity, o *order.Order) error {
	if id.System {
		return nil
	}
	if id.UserID != 0 && id.UserID == o.CustomerID {
		return nil
	}

	return ordererr.ErrPermissionDenied
}
