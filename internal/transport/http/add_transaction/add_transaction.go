package addtransaction

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopkit/order/internal/service/models/currency"
	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/service/models/transaction"
	"github.com/shopkit/order/internal/transport/http/httperr"
)

type service interface {
	GetByHash(ctx context.Context, hash string) (*order.Order, error)
	AddTransaction(ctx context.Context, o *order.Order, tx transaction.Transaction) error
}

// addTransactionRequest represents an incoming payment transaction.
type addTransactionRequest struct {
	TxID        string    `json:"txid"     validate:"required"`
	AmountCents int64     `json:"amount"   validate:"gt=0"`
	Currency    string    `json:"currency" validate:"required"`
	Date        time.Time `json:"date"`
}

// Validate validates the add transaction request.
func (r *addTransactionRequest) Validate() error {
	return validator.New().Struct(r)
}

func (r *addTransactionRequest) toModel(hash string) (transaction.Transaction, error) {
	cur, err := currency.ParseCurrency(r.Currency)
	if err != nil {
		return transaction.Transaction{}, err
	}

	date := r.Date
	if date.IsZero() {
		date = time.Now()
	}

	return transaction.Transaction{
		TxID:        r.TxID,
		OrderHash:   hash,
		AmountCents: r.AmountCents,
		Currency:    cur,
		Date:        date,
	}, nil
}

// AddTransaction books a payment transaction against an order and
// recalculates its payment status.
func AddTransaction(w http.ResponseWriter, r *http.Request, service service) {
	hash := chi.URLParam(r, "hash")

	req := addTransactionRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.BadRequest(w, err)
		slog.Error("Error decoding request body for add transaction", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		httperr.BadRequest(w, err)
		slog.Error("Error validating request body for add transaction", "error", err)

		return
	}

	tx, err := req.toModel(hash)
	if err != nil {
		httperr.BadRequest(w, err)

		return
	}

	ord, err := service.GetByHash(r.Context(), hash)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error getting order for add transaction", "hash", hash, "error", err)

		return
	}

	if err := service.AddTransaction(r.Context(), ord, tx); err != nil {
		httperr.Write(w, err)
		slog.Error("Error adding transaction", "hash", hash, "txid", tx.TxID, "error", err)

		return
	}

	ord, err = service.GetByHash(r.Context(), hash)
	if err != nil {
		httperr.Write(w, err)

		return
	}

	httperr.JSON(w, http.StatusOK, ord)
}
