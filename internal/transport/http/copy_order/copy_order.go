package copyorder

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
	Copy(ctx context.Context, id ordersvc.Identity, o *order.Order) (*order.Order, error)
}

// CopyOrder duplicates an order into a fresh draft with a new hash.
// Payment data, history and the invoice link are not carried over.
func CopyOrder(w http.ResponseWriter, r *http.Request, service service, id ordersvc.Identity) {
	hash := chi.URLParam(r, "hash")

	ord, err := service.GetByHash(r.Context(), hash)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error getting order for copy", "hash", hash, "error", err)

		return
	}

	copied, err := service.Copy(r.Context(), id, ord)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error copying order", "hash", hash, "error", err)

		return
	}

	httperr.JSON(w, http.StatusCreated, copied)
}
