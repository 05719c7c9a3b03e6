package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fjod/go_cart/commerce-service/internal/checkout"
	"github.com/fjod/go_cart/commerce-service/internal/metrics"
	"github.com/go-chi/chi/v5"
)

type CheckoutHandler struct {
	metrics       *metrics.Metrics
	timeout       time.Duration
	emptyCartPath string
}

func NewCheckoutHandler(m *metrics.Metrics, timeout time.Duration, emptyCartPath string) *CheckoutHandler {
	return &CheckoutHandler{
		metrics:       m,
		timeout:       timeout,
		emptyCartPath: emptyCartPath,
	}
}

type BeginCheckoutRequestDTO struct {
	ListingID string `json:"listing_id,omitempty"`
}

type SubmitResponseDTO struct {
	CheckoutURL string            `json:"checkout_url"`
	Session     checkout.Snapshot `json:"session"`
}

// POST /api/v1/checkout. An empty body or listing_id checks out the cart.
func (h *CheckoutHandler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req BeginCheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	composer := profileFromContext(r.Context()).Checkout
	s, err := composer.Begin(ctx, req.ListingID)
	if errors.Is(err, checkout.ErrEmptyCart) {
		w.Header().Set("Location", h.emptyCartPath)
		respondError(w, http.StatusSeeOther, "empty_cart", err.Error())
		return
	}
	if err != nil {
		handleError(w, err)
		return
	}

	h.metrics.CheckoutsStarted.WithLabelValues(s.Mode().String()).Inc()
	respondJSON(w, http.StatusCreated, s.Snapshot())
}

// GET /api/v1/checkout/{session_id}
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	composer := profileFromContext(r.Context()).Checkout
	snap, err := composer.View(chi.URLParam(r, "session_id"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// POST /api/v1/checkout/{session_id}/submit
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "session_id")
	composer := profileFromContext(r.Context()).Checkout
	url, err := composer.Submit(ctx, id)
	h.metrics.CheckoutSubmits.WithLabelValues(submitResult(err)).Inc()
	if err != nil {
		handleError(w, err)
		return
	}

	snap, err := composer.View(id)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, SubmitResponseDTO{CheckoutURL: url, Session: snap})
}

func submitResult(err error) string {
	switch {
	case err == nil:
		return "redirected"
	case errors.Is(err, checkout.ErrPaymentFailed):
		return "failed"
	default:
		return "rejected"
	}
}

// POST /api/v1/checkout/{session_id}/complete
func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	composer := profileFromContext(r.Context()).Checkout
	if err := composer.Complete(ctx, chi.URLParam(r, "session_id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/checkout/{session_id}
func (h *CheckoutHandler) Discard(w http.ResponseWriter, r *http.Request) {
	composer := profileFromContext(r.Context()).Checkout
	if !composer.Discard(chi.URLParam(r, "session_id")) {
		handleError(w, checkout.ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
