package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopkit/order/internal/dal/postgres"
	"github.com/shopkit/order/internal/dal/rabbitmq"
	basketrepo "github.com/shopkit/order/internal/dal/repositories/basket/postgres"
	checkoutrepo "github.com/shopkit/order/internal/dal/repositories/checkout/postgres"
	orderrepo "github.com/shopkit/order/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/shopkit/order/internal/dal/repositories/outbox/postgres"
	"github.com/shopkit/order/internal/dal/uow"
	"github.com/shopkit/order/internal/jaeger"
	"github.com/shopkit/order/internal/service/events"
	"github.com/shopkit/order/internal/service/services/basketsvc"
	"github.com/shopkit/order/internal/service/services/checkout"
	"github.com/shopkit/order/internal/service/services/ordersvc"
	httptransport "github.com/shopkit/order/internal/transport/http"
	outboxworker "github.com/shopkit/order/internal/worker/outbox"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

// App represents the application.
type App struct {
	orderSvc       *ordersvc.Service
	basketSvc      *basketsvc.Service
	transport      *httptransport.HTTPTransport
	outboxWorker   *outboxworker.Worker
	postgresClient *postgres.Client
	rabbitClient   *rabbitmq.Client
	tracerProvider *sdktrace.TracerProvider
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	tracerProvider := jaeger.MustSetupTracing()

	postgresClient := postgres.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()

	if err := rabbitClient.DeclareExchange(rabbitmq.DeclareExchangeConfig{
		Name:    events.Exchange,
		Kind:    "topic",
		Durable: true,
	}); err != nil {
		panic("failed to declare exchange: " + err.Error())
	}

	orderRepository := orderrepo.NewPostgresOrderRepository(postgresClient.Pool())
	basketRepository := basketrepo.NewPostgresBasketRepository(postgresClient.Pool())
	checkoutRepository := checkoutrepo.NewPostgresCheckoutRepository(postgresClient.Pool())
	outboxRepository := outboxrepo.NewOutboxRepository(postgresClient.Pool())

	dispatcher := events.NewDispatcher(
		events.WithOutboxRepository(outboxRepository),
	)

	orderSvc := ordersvc.MustNewService(
		ordersvc.WithRepository(orderRepository),
		ordersvc.WithEvents(dispatcher),
		ordersvc.WithUnitOfWork(func() ordersvc.UnitOfWork {
			return uow.NewUnitOfWork(postgresClient.Pool())
		}),
	)

	basketSvc := basketsvc.MustNewService(
		basketsvc.WithBasketRepository(basketRepository),
		basketsvc.WithOrderService(orderSvc),
		basketsvc.WithEvents(dispatcher),
	)

	newProcess := func(
		ctx context.Context,
		hash string,
		user ordersvc.Identity,
	) (*checkout.Process, error) {
		return checkout.NewProcess(ctx, hash,
			checkout.WithOrderService(orderSvc),
			checkout.WithCheckoutRepository(checkoutRepository),
			checkout.WithBasketRepository(basketRepository),
			checkout.WithUser(user),
		)
	}

	transport := httptransport.NewHTTPTransport(orderSvc, basketSvc, newProcess)
	transport.RegisterRoutes()

	worker := outboxworker.NewWorker(outboxRepository, rabbitClient)

	return &App{
		orderSvc:       orderSvc,
		basketSvc:      basketSvc,
		transport:      transport,
		outboxWorker:   worker,
		postgresClient: postgresClient,
		rabbitClient:   rabbitClient,
		tracerProvider: tracerProvider,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting HTTP server")

		return a.transport.Run()
	})

	g.Go(func() error {
		a.outboxWorker.Start(gctx)

		return nil
	})

	<-gctx.Done()
	slog.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Worker group error", "error", err)
	}

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
		slog.Error("Tracer provider shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
