package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/fjod/go_cart/commerce-service/internal/domain"
	"github.com/fjod/go_cart/commerce-service/internal/upstream"
	"github.com/fjod/go_cart/commerce-service/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
)

const serviceName = "listing-service"

type RetryConfig struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	retry   RetryConfig
	breaker *gobreaker.CircuitBreaker[domain.Listing]
	sfg     singleflight.Group // collapses concurrent fetches of one listing
	log     *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration, retryCfg RetryConfig, breaker circuitbreaker.Settings, log *slog.Logger) *Client {
	breaker.Name = serviceName
	breaker.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, domain.ErrListingNotFound)
	}
	if retryCfg.Attempts == 0 {
		retryCfg.Attempts = 1
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		timeout: timeout,
		retry:   retryCfg,
		breaker: circuitbreaker.New[domain.Listing](breaker),
		log:     log,
	}
}

// GetListing returns domain.ErrListingNotFound for unknown ids. The shared
// fetch outlives any single caller; each caller only stops waiting when its
// own ctx is done.
func (c *Client) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.sfg.DoChan(id, func() (interface{}, error) {
		return c.getWithRetry(shared, id)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.Listing{}, res.Err
		}
		return res.Val.(domain.Listing), nil
	case <-ctx.Done():
		return domain.Listing{}, ctx.Err()
	}
}

func (c *Client) getWithRetry(ctx context.Context, id string) (domain.Listing, error) {
	var l domain.Listing
	err := retry.Do(
		func() error {
			var err error
			l, err = c.breaker.Execute(func() (domain.Listing, error) {
				return c.fetch(ctx, id)
			})
			return err
		},
		retry.Context(ctx),
		retry.Attempts(c.retry.Attempts),
		retry.Delay(c.retry.Delay),
		retry.MaxDelay(c.retry.MaxDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, domain.ErrListingNotFound) && upstream.IsTransient(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.log.Debug("retrying listing fetch", "listing_id", id, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}

func (c *Client) fetch(ctx context.Context, id string) (domain.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel() // releases resources if the request completes before timeout elapses

	endpoint := fmt.Sprintf("%s/api/listings/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("build listing request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("get listing %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.Listing{}, fmt.Errorf("listing %s: %w", id, domain.ErrListingNotFound)
	case resp.StatusCode != http.StatusOK:
		return domain.Listing{}, upstream.NewStatusError(serviceName, resp)
	}

	var l domain.Listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return domain.Listing{}, fmt.Errorf("decode listing %s: %w", id, err)
	}
	if l.ID == "" {
		l.ID = id
	}
	return l, nil
}
