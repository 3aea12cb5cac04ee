package deleteorder

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
	Delete(ctx context.Context, id ordersvc.Identity, o *order.Order) error
}

// DeleteOrder removes an order identified by hash.
func DeleteOrder(w http.ResponseWriter, r *http.Request, service service, id ordersvc.Identity) {
	hash := chi.URLParam(r, "hash")

	ord, err := service.GetByHash(r.Context(), hash)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error getting order for delete", "hash", hash, "error", err)

		return
	}

	if err := service.Delete(r.Context(), id, ord); err != nil {
		httperr.Write(w, err)
		slog.Error("Error deleting order", "hash", hash, "error", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
