// Package basket exposes the authenticated user's shopping basket.
// Guest baskets are a frontend concern and never hit these routes.
package basket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/service/models/product"
	"github.com/shopkit/order/internal/service/services/basketsvc"
	"github.com/shopkit/order/internal/service/services/ordersvc"
	"github.com/shopkit/order/internal/transport/http/httperr"
)

type basketService interface {
	OpenUserBasket(ctx context.Context, userID int64) (*basketsvc.UserBasket, error)
}

type orderService interface {
	GetDraft(ctx context.Context, hash string) (*order.Order, error)
}

func requireUser(w http.ResponseWriter, id ordersvc.Identity) bool {
	if id.UserID == 0 {
		http.Error(w, "authentication required", http.StatusUnauthorized)

		return false
	}

	return true
}

// GetBasket returns the caller's basket, creating it on first use.
func GetBasket(w http.ResponseWriter, r *http.Request, service basketService, id ordersvc.Identity) {
	if !requireUser(w, id) {
		return
	}

	b, err := service.OpenUserBasket(r.Context(), id.UserID)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error opening basket", "user_id", id.UserID, "error", err)

		return
	}

	httperr.JSON(w, http.StatusOK, b.ToArray())
}

// AddProduct adds a single product to the caller's basket, merging it
// into an equal position when merging is enabled.
func AddProduct(w http.ResponseWriter, r *http.Request, service basketService, id ordersvc.Identity) {
	if !requireUser(w, id) {
		return
	}

	p := product.Product{}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httperr.BadRequest(w, err)
		slog.Error("Error decoding product for basket add", "error", err)

		return
	}

	b, err := service.OpenUserBasket(r.Context(), id.UserID)
	if err != nil {
		httperr.Write(w, err)

		return
	}

	if err := b.AddProduct(r.Context(), p); err != nil {
		httperr.Write(w, err)
		slog.Error("Error adding product to basket", "user_id", id.UserID, "error", err)

		return
	}

	httperr.JSON(w, http.StatusOK, b.ToArray())
}

// ImportProducts replaces the basket contents with the given list.
func ImportProducts(w http.ResponseWriter, r *http.Request, service basketService, id ordersvc.Identity) {
	if !requireUser(w, id) {
		return
	}

	var products []product.Product
	if err := json.NewDecoder(r.Body).Decode(&products); err != nil {
		httperr.BadRequest(w, err)
		slog.Error("Error decoding products for basket import", "error", err)

		return
	}

	b, err := service.OpenUserBasket(r.Context(), id.UserID)
	if err != nil {
		httperr.Write(w, err)

		return
	}

	if err := b.Import(r.Context(), products); err != nil {
		httperr.Write(w, err)
		slog.Error("Error importing products into basket", "user_id", id.UserID, "error", err)

		return
	}

	httperr.JSON(w, http.StatusOK, b.ToArray())
}

type toOrderRequest struct {
	Hash string `json:"hash"`
}

// ToOrder pushes the basket contents into the in-progress order with
// the given hash and binds the basket to it.
func ToOrder(
	w http.ResponseWriter,
	r *http.Request,
	baskets basketService,
	orders orderService,
	id ordersvc.Identity,
) {
	if !requireUser(w, id) {
		return
	}

	req := toOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.BadRequest(w, err)

		return
	}

	ord, err := orders.GetDraft(r.Context(), req.Hash)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error getting draft for basket", "hash", req.Hash, "error", err)

		return
	}

	b, err := baskets.OpenUserBasket(r.Context(), id.UserID)
	if err != nil {
		httperr.Write(w, err)

		return
	}

	if err := b.ToOrder(r.Context(), ord); err != nil {
		httperr.Write(w, err)
		slog.Error("Error pushing basket to order", "hash", req.Hash, "error", err)

		return
	}

	httperr.JSON(w, http.StatusOK, b.ToArray())
}
