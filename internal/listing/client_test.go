package listing

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/commerce-service/internal/domain"
	"github.com/fjod/go_cart/commerce-service/internal/upstream"
	"github.com/fjod/go_cart/commerce-service/pkg/circuitbreaker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingJSON = `{
	"id": "tpl-1",
	"title": "SaaS Starter",
	"description": "Next.js starter",
	"category": "Web",
	"price_usd": 49,
	"price_inr": 3999,
	"images": ["cover.png"],
	"seller_name": "Avocado Creator",
	"features": ["Auth"],
	"tech_stack": ["React"],
	"includes_hosting": true,
	"hosting_details": "1 year",
	"attachments": ["guide.pdf"]
}`

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestClient(url string, attempts uint) *Client {
	return NewClient(url, upstream.NewHTTPClient(time.Second), time.Second,
		RetryConfig{Attempts: attempts, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		circuitbreaker.Settings{MaxFailures: 10, OpenTimeout: time.Minute},
		discardLog)
}

func TestGetListing_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/listings/tpl-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listingJSON))
	}))
	defer srv.Close()

	l, err := newTestClient(srv.URL, 1).GetListing(context.Background(), "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "SaaS Starter", l.Title)
	assert.True(t, l.PriceUSD.Equal(decimal.NewFromInt(49)))
	assert.True(t, l.PriceINR.Equal(decimal.NewFromInt(3999)))
	assert.True(t, l.IncludesHosting)
	assert.Equal(t, []string{"guide.pdf"}, l.Attachments)
}

func TestGetListing_NotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"detail":"Listing not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).GetListing(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrListingNotFound)
	assert.Equal(t, int32(1), calls.Load(), "not found is not retried")
}

func TestGetListing_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(listingJSON))
	}))
	defer srv.Close()

	l, err := newTestClient(srv.URL, 3).GetListing(context.Background(), "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", l.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetListing_GivesUpAfterAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).GetListing(context.Background(), "tpl-1")
	var se *upstream.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
}

func TestGetListing_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, upstream.NewHTTPClient(time.Second), time.Second,
		RetryConfig{Attempts: 1},
		circuitbreaker.Settings{MaxFailures: 2, OpenTimeout: time.Minute},
		discardLog)

	for i := 0; i < 2; i++ {
		_, err := c.GetListing(context.Background(), "tpl-1")
		require.Error(t, err)
	}
	_, err := c.GetListing(context.Background(), "tpl-1")
	assert.True(t, circuitbreaker.IsOpen(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetListing_CollapsesConcurrentFetches(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(listingJSON))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 1)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetListing(context.Background(), "tpl-1")
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestGetListing_CancelledCallerDoesNotFailOthers(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(listingJSON))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 1)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetListing(firstCtx, "tpl-1")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan error, 1)
	go func() {
		l, err := c.GetListing(context.Background(), "tpl-1")
		if err == nil && l.ID != "tpl-1" {
			err = assert.AnError
		}
		second <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	assert.NoError(t, <-second)
	assert.Equal(t, int32(1), calls.Load())
}
