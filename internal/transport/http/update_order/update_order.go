package updateorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopkit/order/internal/service/models/address"
	"github.com/shopkit/order/internal/service/models/currency"
	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/service/services/ordersvc"
	"github.com/shopkit/order/internal/transport/http/httperr"
)

type service interface {
	GetByHash(ctx context.Context, hash string) (*order.Order, error)
	Update(ctx context.Context, id ordersvc.Identity, o *order.Order) error
}

// updateOrderRequest carries the mutable surface of an order. Absent
// fields leave the stored value untouched.
type updateOrderRequest struct {
	CustomerID      *int64           `json:"customerId"`
	InvoiceAddress  *address.Address `json:"addressInvoice"`
	DeliveryAddress *address.Address `json:"addressDelivery"`
	Currency        *string          `json:"currency"`
	Data            map[string]any   `json:"data"`
	PaymentID       *int64           `json:"paymentId"`
	PaymentMethod   *string          `json:"paymentMethod"`
	ShippingID      *int64           `json:"shippingId"`
	ShippingStatus  *int             `json:"shippingStatus"`
	Status          *int             `json:"status"`
	Comment         *string          `json:"comment"`
}

func (req *updateOrderRequest) apply(o *order.Order) error {
	if req.CustomerID != nil {
		o.CustomerID = *req.CustomerID
	}
	if req.InvoiceAddress != nil {
		o.InvoiceAddress = *req.InvoiceAddress
	}
	if req.DeliveryAddress != nil {
		o.DeliveryAddress = *req.DeliveryAddress
	}
	if req.Currency != nil {
		cur, err := currency.ParseCurrency(*req.Currency)
		if err != nil {
			return err
		}
		o.Currency = cur
	}
	if req.Data != nil {
		o.Data = req.Data
	}
	if req.PaymentID != nil {
		o.PaymentID = *req.PaymentID
	}
	if req.PaymentMethod != nil {
		o.PaymentMethod = *req.PaymentMethod
	}
	if req.ShippingID != nil {
		o.ShippingID = *req.ShippingID
	}
	if req.ShippingStatus != nil {
		o.ShippingStatus = *req.ShippingStatus
	}
	if req.Status != nil {
		o.Status = *req.Status
	}
	if req.Comment != nil && *req.Comment != "" {
		o.AddComment(*req.Comment)
	}

	return nil
}

// UpdateOrder applies a partial update to an order identified by hash.
func UpdateOrder(w http.ResponseWriter, r *http.Request, service service, id ordersvc.Identity) {
	hash := chi.URLParam(r, "hash")

	req := updateOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.BadRequest(w, err)
		slog.Error("Error decoding request body for update order", "error", err)

		return
	}

	ord, err := service.GetByHash(r.Context(), hash)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error getting order for update", "hash", hash, "error", err)

		return
	}

	if err := req.apply(ord); err != nil {
		httperr.BadRequest(w, err)

		return
	}

	if err := service.Update(r.Context(), id, ord); err != nil {
		httperr.Write(w, err)
		slog.Error("Error updating order", "hash", hash, "error", err)

		return
	}

	ord, err = service.GetByHash(r.Context(), hash)
	if err != nil {
		httperr.Write(w, err)

		return
	}

	httperr.JSON(w, http.StatusOK, ord)
}
