package createorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/service/services/ordersvc"
	"github.com/shopkit/order/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	CreateDraft(ctx context.Context, id ordersvc.Identity, customerID int64) (*order.Order, error)
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	CustomerID int64 `json:"customerId" validate:"gte=0"`
}

// Validate validates the create order request.
func (r *createOrderRequest) Validate() error {
	return validator.New().Struct(r)
}

// CreateDraft handles the creation of a new in-progress order.
func CreateDraft(w http.ResponseWriter, r *http.Request, service service, id ordersvc.Identity) {
	req := createOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.BadRequest(w, err)
		slog.Error("Error decoding request body for create draft", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		httperr.BadRequest(w, err)
		slog.Error("Error validating request body for create draft", "error", err)

		return
	}

	customerID := req.CustomerID
	if customerID == 0 {
		customerID = id.UserID
	}

	draft, err := service.CreateDraft(r.Context(), id, customerID)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error creating draft order", "error", err)

		return
	}

	httperr.JSON(w, http.StatusCreated, draft)
}
