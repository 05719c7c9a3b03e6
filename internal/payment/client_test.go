package payment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/commerce-service/internal/domain"
	"github.com/fjod/go_cart/commerce-service/internal/identity"
	"github.com/fjod/go_cart/commerce-service/internal/upstream"
	"github.com/fjod/go_cart/commerce-service/pkg/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestClient(url string, maxFailures uint32) *Client {
	return NewClient(url, upstream.NewHTTPClient(time.Second), time.Second,
		circuitbreaker.Settings{MaxFailures: maxFailures, OpenTimeout: time.Minute}, discardLog)
}

func TestCreateOrder_Single(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/create-payment-order", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tpl-1", body["listing_id"])
		assert.Equal(t, "INR", body["currency"])
		assert.Equal(t, map[string]any{"profile_id": "p1", "checkout_id": "co-sess-1"}, body["metadata"])

		_, _ = w.Write([]byte(`{"checkout_url":"https://pay.example/c/1","id":"co_1"}`))
	}))
	defer srv.Close()

	ctx := identity.WithUser(context.Background(), identity.User{ID: "u1", Token: "tok-1"})
	order, err := newTestClient(srv.URL, 5).CreateOrder(ctx, domain.OrderRequest{
		Kind:       domain.OrderSingle,
		CheckoutID: "co-sess-1",
		ProfileID:  "p1",
		ListingIDs: []string{"tpl-1"},
		Currency:   domain.INR,
	})

	require.NoError(t, err)
	assert.Equal(t, "co_1", order.ID)
	assert.Equal(t, "https://pay.example/c/1", order.CheckoutURL)
}

func TestCreateOrder_Cart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/create-cart-payment-order", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body struct {
			ListingIDs []string `json:"listing_ids"`
			Currency   string   `json:"currency"`
			Metadata   struct {
				ProfileID  string `json:"profile_id"`
				CheckoutID string `json:"checkout_id"`
			} `json:"metadata"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"a", "b"}, body.ListingIDs)
		assert.Equal(t, "USD", body.Currency)
		assert.Equal(t, "p2", body.Metadata.ProfileID)
		assert.Equal(t, "co-sess-2", body.Metadata.CheckoutID)

		_, _ = w.Write([]byte(`{"checkout_url":"https://pay.example/c/2","id":"co_2"}`))
	}))
	defer srv.Close()

	order, err := newTestClient(srv.URL, 5).CreateOrder(context.Background(), domain.OrderRequest{
		Kind:       domain.OrderCart,
		CheckoutID: "co-sess-2",
		ProfileID:  "p2",
		ListingIDs: []string{"a", "b"},
		Currency:   domain.USD,
	})

	require.NoError(t, err)
	assert.Equal(t, "co_2", order.ID)
}

func TestCreateOrder_InvalidRequest(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0", 5)

	_, err := c.CreateOrder(context.Background(), domain.OrderRequest{Kind: domain.OrderSingle})
	assert.Error(t, err)

	_, err = c.CreateOrder(context.Background(), domain.OrderRequest{Kind: domain.OrderCart})
	assert.Error(t, err)

	_, err = c.CreateOrder(context.Background(), domain.OrderRequest{Kind: "bulk", ListingIDs: []string{"a"}})
	assert.Error(t, err)
}

func TestCreateOrder_ServerErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"detail":"Failed to create Dodo Payments checkout session"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 5).CreateOrder(context.Background(), domain.OrderRequest{
		Kind:       domain.OrderSingle,
		ListingIDs: []string{"tpl-1"},
		Currency:   domain.USD,
	})

	var se *upstream.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Contains(t, se.Body, "Dodo")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateOrder_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 1)
	req := domain.OrderRequest{Kind: domain.OrderSingle, ListingIDs: []string{"tpl-1"}, Currency: domain.USD}

	_, err := c.CreateOrder(context.Background(), req)
	require.Error(t, err)

	_, err = c.CreateOrder(context.Background(), req)
	assert.True(t, circuitbreaker.IsOpen(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateOrder_ClientErrorsKeepBreakerClosed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"detail":"Unsupported currency"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 1)
	req := domain.OrderRequest{Kind: domain.OrderCart, ListingIDs: []string{"a", "b"}, Currency: domain.USD}

	for i := 0; i < 3; i++ {
		_, err := c.CreateOrder(context.Background(), req)
		var se *upstream.StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusBadRequest, se.Code)
		assert.False(t, circuitbreaker.IsOpen(err))
	}
	assert.Equal(t, int32(3), calls.Load())
}
