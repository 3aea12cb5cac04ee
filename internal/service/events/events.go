// Package events carries the domain events of the order core. Other
// modules observe them in-process or, via the outbox worker, over
// RabbitMQ. Begin-events additionally run interceptors that may adjust
// the in-flight data before it is applied.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopkit/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/shopkit/order/internal/service/models/outbox"
)

// Event names. These are the wire contract observed by sibling modules
// (payment, shipping, invoicing) and must stay stable.
const (
	OrderCreated           = "quiqqerOrderCreated"
	OrderSuccessfulCreated = "quiqqerOrderSuccessfulCreated"
	OrderUpdateBegin       = "quiqqerOrderUpdateBegin"
	OrderUpdate            = "quiqqerOrderUpdate"
	OrderDeleteBegin       = "quiqqerOrderDeleteBegin"
	OrderDelete            = "quiqqerOrderDelete"
	OrderCopyBegin         = "quiqqerOrderCopyBegin"
	OrderCopy              = "quiqqerOrderCopy"
	OrderClearBegin        = "quiqqerOrderClearBegin"
	OrderClear             = "quiqqerOrderClear"
	ProcessStatusChange    = "quiqqerOrderProcessStatusChange"
	AddTransactionBegin    = "quiqqerOrderAddTransactionBegin"
	AddTransaction         = "quiqqerOrderAddTransaction"
	AddTransactionEnd      = "quiqqerOrderAddTransactionEnd"
	BasketToOrderBegin     = "quiqqerOrderBasketToOrderBegin"
	BasketToOrder          = "quiqqerOrderBasketToOrder"
	BasketToOrderEnd       = "quiqqerOrderBasketToOrderEnd"
	PaymentChanged         = "onQuiqqerOrderPaymentChanged"
	PaidStatusChanged      = "onQuiqqerOrderPaidStatusChanged"
)

// Exchange is the RabbitMQ exchange domain events are published to.
const Exchange = "shopkit.orders"

// Event is one domain occurrence, identified by name and order hash.
type Event struct {
	Name       string         `json:"name"`
	OrderHash  string         `json:"orderHash"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Interceptor runs before a Begin-event's mutation is applied. It
// receives the in-flight data and returns the (possibly modified) data.
// Returning an error vetoes the operation.
type Interceptor func(ctx context.Context, ev Event, data map[string]any) (map[string]any, error)

// Observer is notified after an event happened. Observers cannot veto.
type Observer func(ev Event)

// Dispatcher routes domain events to in-process observers and to the
// outbox for asynchronous delivery.
type Dispatcher struct {
	outboxRepo   ioutboxrepo.IOutboxRepository
	interceptors map[string][]Interceptor
	observers    map[string][]Observer
}

type option func(*Dispatcher)

// NewDispatcher creates a dispatcher.
func NewDispatcher(opts ...option) *Dispatcher {
	d := &Dispatcher{
		interceptors: map[string][]Interceptor{},
		observers:    map[string][]Observer{},
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// WithOutboxRepository enables asynchronous delivery through the outbox.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOutboxRepository(repo ioutboxrepo.IOutboxRepository) option {
	return func(d *Dispatcher) {
		d.outboxRepo = repo
	}
}

// Intercept registers an interceptor for a Begin-event.
func (d *Dispatcher) Intercept(name string, fn Interceptor) {
	d.interceptors[name] = append(d.interceptors[name], fn)
}

// On registers an observer for an event name.
func (d *Dispatcher) On(name string, fn Observer) {
	d.observers[name] = append(d.observers[name], fn)
}

// RunInterceptors passes the in-flight data through every interceptor of
// the event, in registration order. The first veto aborts.
func (d *Dispatcher) RunInterceptors(ctx context.Context, ev Event, data map[string]any) (map[string]any, error) {
	for _, fn := range d.interceptors[ev.Name] {
		modified, err := fn(ctx, ev, data)
		if err != nil {
			return nil, err
		}
		data = modified
	}

	return data, nil
}

// Notify delivers the event to its in-process observers.
func (d *Dispatcher) Notify(ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	for _, fn := range d.observers[ev.Name] {
		fn(ev)
	}
}

// Enqueue writes the event to the given outbox repository. The caller
// picks the repository and with it the transaction scope, so an event
// can commit together with the state change it describes.
func (d *Dispatcher) Enqueue(ctx context.Context, repo ioutboxrepo.IOutboxRepository, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode domain event %s: %w", ev.Name, err)
	}

	now := time.Now()
	msg := outbox.Message{
		ExchangeName: Exchange,
		RoutingKey:   ev.Name,
		Payload:      payload,
		ContentType:  "application/json",
		MaxRetries:   10,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	}

	return repo.Insert(ctx, msg)
}

// Dispatch notifies observers and queues the event for delivery on the
// dispatcher's own outbox repository. Outbox failures are logged, they
// never fail the triggering operation.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	d.Notify(ev)

	if d.outboxRepo == nil {
		return
	}

	if err := d.Enqueue(ctx, d.outboxRepo, ev); err != nil {
		slog.Error("failed to enqueue domain event", "event", ev.Name, "error", err)
	}
}
