package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_cart/commerce-service/internal/checkout"
	"github.com/fjod/go_cart/commerce-service/internal/domain"
	"github.com/fjod/go_cart/commerce-service/internal/notify"
	"github.com/fjod/go_cart/commerce-service/internal/upstream"
	"github.com/fjod/go_cart/commerce-service/pkg/circuitbreaker"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// NotificationDTO echoes the shopper-facing message a request produced.
type NotificationDTO struct {
	Kind    notify.Kind `json:"kind"`
	Message string      `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func respondErrorDetails(w http.ResponseWriter, status int, code, message, details string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// handleError maps service errors to HTTP status codes.
func handleError(w http.ResponseWriter, err error) {
	var se *upstream.StatusError
	switch {
	case errors.Is(err, domain.ErrListingNotFound):
		respondError(w, http.StatusNotFound, "not_found", "listing not found")
	case errors.Is(err, checkout.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, checkout.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, checkout.ErrSubmissionInFlight):
		respondError(w, http.StatusConflict, "submission_in_flight", err.Error())
	case errors.Is(err, checkout.ErrNotReady), errors.Is(err, checkout.ErrNotRedirecting):
		respondError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, checkout.ErrPaymentFailed):
		respondErrorDetails(w, http.StatusBadGateway, "payment_failed", "Payment failed. Please try again.", err.Error())
	case circuitbreaker.IsOpen(err):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "upstream service unavailable")
	case errors.As(err, &se):
		respondErrorDetails(w, http.StatusBadGateway, "upstream_error", "upstream service error", se.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
