package orderhistory

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
	Update(ctx context.Context, id ordersvc.Identity, o *order.Order) error
}

type historyResponse struct {
	History     []order.HistoryEntry    `json:"history"`
	StatusMails []order.StatusMail      `json:"statusMails"`
	Messages    []order.FrontendMessage `json:"messages,omitempty"`
}

// OrderHistory returns the audit trail of an order. Pending frontend
// messages ride along and are delivered exactly once: the cleared list
// is persisted before the response goes out.
func OrderHistory(w http.ResponseWriter, r *http.Request, service service) {
	hash := chi.URLParam(r, "hash")

	ord, err := service.GetByHash(r.Context(), hash)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error getting order history", "hash", hash, "error", err)

		return
	}

	msgs := ord.PopFrontendMessages()
	if len(msgs) > 0 {
		if err := service.Update(r.Context(), ordersvc.SystemUser, ord); err != nil {
			httperr.Write(w, err)
			slog.Error("Error clearing frontend messages", "hash", hash, "error", err)

			return
		}
	}

	httperr.JSON(w, http.StatusOK, historyResponse{
		History:     ord.History,
		StatusMails: ord.StatusMails,
		Messages:    msgs,
	})
}
