package getorder

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/transport/http/httperr"
)

type service interface {
	GetByHash(ctx context.Context, hash string) (*order.Order, error)
}

// GetOrder returns a single order by its hash, preferring the final
// order when the hash is shared with a promoted draft.
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	hash := chi.URLParam(r, "hash")

	ord, err := service.GetByHash(r.Context(), hash)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error getting order", "hash", hash, "error", err)

		return
	}

	httperr.JSON(w, http.StatusOK, ord)
}
