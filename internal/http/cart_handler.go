package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/commerce-service/internal/cart"
	"github.com/fjod/go_cart/commerce-service/internal/checkout"
	"github.com/fjod/go_cart/commerce-service/internal/domain"
	"github.com/fjod/go_cart/commerce-service/internal/metrics"
	"github.com/fjod/go_cart/commerce-service/internal/notify"
	"github.com/fjod/go_cart/commerce-service/internal/shopper"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type CartHandler struct {
	listings checkout.ListingFetcher
	metrics  *metrics.Metrics
	timeout  time.Duration
}

func NewCartHandler(listings checkout.ListingFetcher, m *metrics.Metrics, timeout time.Duration) *CartHandler {
	return &CartHandler{
		listings: listings,
		metrics:  m,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ListingID string `json:"listing_id"`
}

type CartResponseDTO struct {
	Items          []domain.CartItem `json:"items"`
	Count          int               `json:"count"`
	TotalUSD       decimal.Decimal   `json:"total_usd"`
	TotalFormatted string            `json:"total_formatted"`
	Currency       domain.Currency   `json:"currency"`
}

type CartMutationDTO struct {
	Outcome      cart.Outcome    `json:"outcome"`
	Notification NotificationDTO `json:"notification"`
	Cart         CartResponseDTO `json:"cart"`
}

func cartView(p *shopper.Profile) CartResponseDTO {
	items := p.Cart.Items()
	total := p.Cart.Total()
	return CartResponseDTO{
		Items:          items,
		Count:          len(items),
		TotalUSD:       total,
		TotalFormatted: p.Currency.FormatPrice(total),
		Currency:       p.Currency.Currency(),
	}
}

func (h *CartHandler) mutation(p *shopper.Profile, o cart.Outcome) CartMutationDTO {
	h.metrics.CartOperations.WithLabelValues(string(o)).Inc()
	kind := notify.KindSuccess
	if o == cart.OutcomeAlreadyInCart {
		kind = notify.KindInfo
	}
	return CartMutationDTO{
		Outcome:      o,
		Notification: NotificationDTO{Kind: kind, Message: o.Message()},
		Cart:         cartView(p),
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, cartView(profileFromContext(r.Context())))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.ListingID = strings.TrimSpace(req.ListingID)
	if req.ListingID == "" {
		respondError(w, http.StatusBadRequest, "invalid_listing_id", "listing_id is required")
		return
	}

	listing, err := h.listings.GetListing(ctx, req.ListingID)
	if err != nil {
		handleError(w, err)
		return
	}

	p := profileFromContext(r.Context())
	outcome := p.Cart.Add(ctx, listing)
	status := http.StatusCreated
	if outcome == cart.OutcomeAlreadyInCart {
		status = http.StatusOK
	}
	respondJSON(w, status, h.mutation(p, outcome))
}

// DELETE /api/v1/cart/items/{listing_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "listing_id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_listing_id", "listing_id is required")
		return
	}

	p := profileFromContext(r.Context())
	respondJSON(w, http.StatusOK, h.mutation(p, p.Cart.Remove(ctx, id)))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p := profileFromContext(r.Context())
	respondJSON(w, http.StatusOK, h.mutation(p, p.Cart.Clear(ctx)))
}
