package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/commerce-service/internal/domain"
	"github.com/fjod/go_cart/commerce-service/internal/identity"
	"github.com/fjod/go_cart/commerce-service/internal/upstream"
	"github.com/fjod/go_cart/commerce-service/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
)

const (
	serviceName = "payment-service"

	singleOrderPath = "/api/create-payment-order"
	cartOrderPath   = "/api/create-cart-payment-order"
)

// orderMetadata is echoed back by the provider in its confirmation.
type orderMetadata struct {
	ProfileID  string `json:"profile_id"`
	CheckoutID string `json:"checkout_id"`
}

type singleOrderBody struct {
	ListingID string        `json:"listing_id"`
	Currency  string        `json:"currency"`
	Metadata  orderMetadata `json:"metadata"`
}

type cartOrderBody struct {
	ListingIDs []string      `json:"listing_ids"`
	Currency   string        `json:"currency"`
	Metadata   orderMetadata `json:"metadata"`
}

// Client creates hosted checkout orders. Order creation is not idempotent,
// so failed calls are never retried here.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[domain.Order]
	log     *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration, breaker circuitbreaker.Settings, log *slog.Logger) *Client {
	breaker.Name = serviceName
	breaker.IsSuccessful = func(err error) bool {
		return err == nil || upstream.IsClientError(err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		timeout: timeout,
		breaker: circuitbreaker.New[domain.Order](breaker),
		log:     log,
	}
}

func (c *Client) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	path, body, err := encode(req)
	if err != nil {
		return domain.Order{}, err
	}
	return c.breaker.Execute(func() (domain.Order, error) {
		return c.post(ctx, path, body)
	})
}

func encode(req domain.OrderRequest) (string, []byte, error) {
	var (
		path    string
		payload any
		meta    = orderMetadata{ProfileID: req.ProfileID, CheckoutID: req.CheckoutID}
	)
	switch req.Kind {
	case domain.OrderSingle:
		if len(req.ListingIDs) != 1 {
			return "", nil, fmt.Errorf("single order needs exactly one listing, got %d", len(req.ListingIDs))
		}
		path = singleOrderPath
		payload = singleOrderBody{ListingID: req.ListingIDs[0], Currency: req.Currency.String(), Metadata: meta}
	case domain.OrderCart:
		if len(req.ListingIDs) == 0 {
			return "", nil, fmt.Errorf("cart order has no listings")
		}
		path = cartOrderPath
		payload = cartOrderBody{ListingIDs: req.ListingIDs, Currency: req.Currency.String(), Metadata: meta}
	default:
		return "", nil, fmt.Errorf("unknown order kind %q", req.Kind)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("marshal order: %w", err)
	}
	return path, body, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return domain.Order{}, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if u, ok := identity.UserFromContext(ctx); ok && u.Token != "" {
		req.Header.Set("Authorization", "Bearer "+u.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Order{}, upstream.NewStatusError(serviceName, resp)
	}

	var order domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return domain.Order{}, fmt.Errorf("decode order: %w", err)
	}
	c.log.DebugContext(ctx, "payment order created", "order_id", order.ID, "path", path)
	return order, nil
}
