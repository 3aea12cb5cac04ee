package listorders

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/shopkit/order/internal/dal/interfaces/iorderrepo"
	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/transport/http/httperr"
)

type service interface {
	Search(ctx context.Context, params iorderrepo.SearchParams) ([]order.Order, error)
}

type queryOrdersRequest struct {
	CustomerIds []int64 `schema:"customerIds,omitempty"`
	PaidStatus  *int    `schema:"paidStatus,omitempty"`
	Successful  *bool   `schema:"successful,omitempty"`
	Limit       int     `schema:"limit,omitempty"`
	Offset      int     `schema:"offset,omitempty"`
}

func (q *queryOrdersRequest) ToModel() (iorderrepo.SearchParams, error) {
	params := iorderrepo.SearchParams{
		CustomerIDs: q.CustomerIds,
		Successful:  q.Successful,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}

	if q.PaidStatus != nil {
		status, err := order.ParsePaymentStatus(*q.PaidStatus)
		if err != nil {
			return iorderrepo.SearchParams{}, err
		}
		params.PaidStatus = &status
	}

	return params, nil
}

// ListOrders searches the final orders table.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &queryOrdersRequest{}
	err := decoder.Decode(query, r.URL.Query())
	if err != nil {
		httperr.BadRequest(w, err)
		slog.Error("Error decoding request", "error", err)

		return
	}

	params, err := query.ToModel()
	if err != nil {
		httperr.BadRequest(w, err)
		slog.Error("Error parsing paid status filter", "error", err)

		return
	}

	orders, err := service.Search(r.Context(), params)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error searching orders", "error", err)

		return
	}

	httperr.JSON(w, http.StatusOK, orders)
}
