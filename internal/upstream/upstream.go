// Package upstream holds what the listing and payment clients share: the
// instrumented HTTP client and the error type for non-2xx answers.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fjod/go_cart/commerce-service/pkg/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxErrorBody = 512

func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.Code, e.Body)
}

// NewStatusError reads a bounded part of the body for diagnostics.
func NewStatusError(service string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Service: service, Code: resp.StatusCode, Body: string(body)}
}

// IsTransient reports whether retrying err might succeed.
func IsTransient(err error) bool {
	if err == nil || circuitbreaker.IsOpen(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError || se.Code == http.StatusTooManyRequests
	}
	return true
}

// IsClientError reports a deterministic 4xx answer. Such answers say nothing
// about the health of the service.
func IsClientError(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code >= http.StatusBadRequest && se.Code < http.StatusInternalServerError &&
		se.Code != http.StatusTooManyRequests
}
