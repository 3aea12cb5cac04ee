// Package checkoutstep drives the checkout state machine over HTTP.
package checkoutstep

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopkit/order/internal/service/services/checkout"
	"github.com/shopkit/order/internal/service/services/ordersvc"
	"github.com/shopkit/order/internal/transport/http/httperr"
)

// ProcessFactory builds a checkout process bound to an order hash and
// the calling user.
type ProcessFactory func(
	ctx context.Context,
	hash string,
	user ordersvc.Identity,
) (*checkout.Process, error)

type stepResponse struct {
	Step       string              `json:"step"`
	Steps      []string            `json:"steps"`
	Messages   []string            `json:"messages,omitempty"`
	Validation *validationResponse `json:"validation,omitempty"`
	OrderHash  string              `json:"orderHash"`
}

type validationResponse struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

func respondStep(
	ctx context.Context,
	w http.ResponseWriter,
	p *checkout.Process,
	step checkout.Step,
	verr *checkout.ValidationError,
) {
	names := make([]string, 0, len(p.Steps()))
	for _, s := range p.Steps() {
		names = append(names, s.Name())
	}

	resp := stepResponse{
		Step:      step.Name(),
		Steps:     names,
		Messages:  p.PopStepMessages(ctx, step.Name()),
		OrderHash: p.Order().Hash,
	}
	if verr != nil {
		resp.Validation = &validationResponse{Step: verr.Step, Message: verr.Message}
	}

	httperr.JSON(w, http.StatusOK, resp)
}

// Current resolves the checkout step to render. A requested step the
// order has not earned yet redirects back to the first incomplete one.
func Current(w http.ResponseWriter, r *http.Request, factory ProcessFactory, id ordersvc.Identity) {
	hash := chi.URLParam(r, "hash")

	p, err := factory(r.Context(), hash, id)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error building checkout process", "hash", hash, "error", err)

		return
	}

	step, verr := p.Current(r.Context(), r.URL.Query().Get("step"))
	respondStep(r.Context(), w, p, step, verr)
}

// AcceptTerms records the caller's acceptance of the terms and
// conditions in the checkout state.
func AcceptTerms(w http.ResponseWriter, r *http.Request, factory ProcessFactory, id ordersvc.Identity) {
	hash := chi.URLParam(r, "hash")

	p, err := factory(r.Context(), hash, id)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error building checkout process", "hash", hash, "error", err)

		return
	}

	p.AcceptTerms(r.Context())

	step, verr := p.Current(r.Context(), checkout.StepCheckout)
	respondStep(r.Context(), w, p, step, verr)
}

// Send submits the checkout: validates every step, runs the order
// process providers and promotes the draft into a final order.
func Send(w http.ResponseWriter, r *http.Request, factory ProcessFactory, id ordersvc.Identity) {
	hash := chi.URLParam(r, "hash")

	p, err := factory(r.Context(), hash, id)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error building checkout process", "hash", hash, "error", err)

		return
	}

	step, verr, err := p.Send(r.Context())
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error sending checkout", "hash", hash, "error", err)

		return
	}

	respondStep(r.Context(), w, p, step, verr)
}
