package submitorder

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/service/services/ordersvc"
	"github.com/shopkit/order/internal/transport/http/httperr"
)

type service interface {
	GetByHash(ctx context.Context, hash string) (*order.Order, error)
	CreateOrder(ctx context.Context, id ordersvc.Identity, draft *order.Order) (*order.Order, error)
}

// SubmitOrder promotes an in-progress order into a final one. Submitting
// an already promoted order returns the existing final order.
func SubmitOrder(w http.ResponseWriter, r *http.Request, service service, id ordersvc.Identity) {
	hash := chi.URLParam(r, "hash")

	ord, err := service.GetByHash(r.Context(), hash)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error getting order for submit", "hash", hash, "error", err)

		return
	}

	final, err := service.CreateOrder(r.Context(), id, ord)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error submitting order", "hash", hash, "error", err)

		return
	}

	httperr.JSON(w, http.StatusOK, final)
}
