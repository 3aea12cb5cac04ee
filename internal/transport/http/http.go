package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopkit/order/internal/service/services/basketsvc"
	"github.com/shopkit/order/internal/service/services/ordersvc"
	addtransaction "github.com/shopkit/order/internal/transport/http/add_transaction"
	"github.com/shopkit/order/internal/transport/http/basket"
	"github.com/shopkit/order/internal/transport/http/checkoutstep"
	copyorder "github.com/shopkit/order/internal/transport/http/copy_order"
	createorder "github.com/shopkit/order/internal/transport/http/create_order"
	deleteorder "github.com/shopkit/order/internal/transport/http/delete_order"
	getorder "github.com/shopkit/order/internal/transport/http/get_order"
	listorders "github.com/shopkit/order/internal/transport/http/list_orders"
	orderhistory "github.com/shopkit/order/internal/transport/http/order_history"
	submitorder "github.com/shopkit/order/internal/transport/http/submit_order"
	updateorder "github.com/shopkit/order/internal/transport/http/update_order"
	"github.com/shopkit/order/pkg/http/middleware/trace"
	"github.com/shopkit/order/pkg/logger"
	"github.com/spf13/viper"
)

type HTTPTransport struct {
	server     *http.Server
	router     *chi.Mux
	orders     *ordersvc.Service
	baskets    *basketsvc.Service
	newProcess checkoutstep.ProcessFactory
}

func NewHTTPTransport(
	orders *ordersvc.Service,
	baskets *basketsvc.Service,
	newProcess checkoutstep.ProcessFactory,
) *HTTPTransport {
	router := newRouter()
	server := newServer(router)

	return &HTTPTransport{
		server:     server,
		router:     router,
		orders:     orders,
		baskets:    baskets,
		newProcess: newProcess,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/", h.createDraft)
			r.Get("/{hash}", h.getOrder)
			r.Get("/{hash}/history", h.orderHistory)
			r.Put("/{hash}", h.updateOrder)
			r.Delete("/{hash}", h.deleteOrder)
			r.Post("/{hash}/copy", h.copyOrder)
			r.Post("/{hash}/submit", h.submitOrder)
			r.Post("/{hash}/transactions", h.addTransaction)
		})

		r.Route("/basket", func(r chi.Router) {
			r.Get("/", h.getBasket)
			r.Post("/products", h.addBasketProduct)
			r.Put("/products", h.importBasketProducts)
			r.Post("/order", h.basketToOrder)
		})

		r.Route("/checkout/{hash}", func(r chi.Router) {
			r.Get("/", h.checkoutCurrent)
			r.Post("/terms", h.checkoutAcceptTerms)
			r.Post("/send", h.checkoutSend)
		})
	})
}

// identityFromRequest resolves the calling identity. Authentication is
// handled by the surrounding platform; this trusts its headers.
func identityFromRequest(r *http.Request) ordersvc.Identity {
	id := ordersvc.Identity{}
	if v := r.Header.Get("X-User-Id"); v != "" {
		userID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			slog.Warn("Invalid X-User-Id header", "value", v)
		} else {
			id.UserID = userID
		}
	}

	return id
}

func (h *HTTPTransport) createDraft(w http.ResponseWriter, r *http.Request) {
	createorder.CreateDraft(w, r, h.orders, identityFromRequest(r))
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.orders)
}

func (h *HTTPTransport) orderHistory(w http.ResponseWriter, r *http.Request) {
	orderhistory.OrderHistory(w, r, h.orders)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.orders)
}

func (h *HTTPTransport) updateOrder(w http.ResponseWriter, r *http.Request) {
	updateorder.UpdateOrder(w, r, h.orders, identityFromRequest(r))
}

func (h *HTTPTransport) deleteOrder(w http.ResponseWriter, r *http.Request) {
	deleteorder.DeleteOrder(w, r, h.orders, identityFromRequest(r))
}

func (h *HTTPTransport) copyOrder(w http.ResponseWriter, r *http.Request) {
	copyorder.CopyOrder(w, r, h.orders, identityFromRequest(r))
}

func (h *HTTPTransport) submitOrder(w http.ResponseWriter, r *http.Request) {
	submitorder.SubmitOrder(w, r, h.orders, identityFromRequest(r))
}

func (h *HTTPTransport) addTransaction(w http.ResponseWriter, r *http.Request) {
	addtransaction.AddTransaction(w, r, h.orders)
}

func (h *HTTPTransport) getBasket(w http.ResponseWriter, r *http.Request) {
	basket.GetBasket(w, r, h.baskets, identityFromRequest(r))
}

func (h *HTTPTransport) addBasketProduct(w http.ResponseWriter, r *http.Request) {
	basket.AddProduct(w, r, h.baskets, identityFromRequest(r))
}

func (h *HTTPTransport) importBasketProducts(w http.ResponseWriter, r *http.Request) {
	basket.ImportProducts(w, r, h.baskets, identityFromRequest(r))
}

func (h *HTTPTransport) basketToOrder(w http.ResponseWriter, r *http.Request) {
	basket.ToOrder(w, r, h.baskets, h.orders, identityFromRequest(r))
}

func (h *HTTPTransport) checkoutCurrent(w http.ResponseWriter, r *http.Request) {
	checkoutstep.Current(w, r, h.newProcess, identityFromRequest(r))
}

func (h *HTTPTransport) checkoutAcceptTerms(w http.ResponseWriter, r *http.Request) {
	checkoutstep.AcceptTerms(w, r, h.newProcess, identityFromRequest(r))
}

func (h *HTTPTransport) checkoutSend(w http.ResponseWriter, r *http.Request) {
	checkoutstep.Send(w, r, h.newProcess, identityFromRequest(r))
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
