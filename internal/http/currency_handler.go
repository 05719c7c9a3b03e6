package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_cart/commerce-service/internal/domain"
	"github.com/fjod/go_cart/commerce-service/internal/metrics"
	"github.com/shopspring/decimal"
)

type CurrencyHandler struct {
	metrics *metrics.Metrics
	timeout time.Duration
}

func NewCurrencyHandler(m *metrics.Metrics, timeout time.Duration) *CurrencyHandler {
	return &CurrencyHandler{metrics: m, timeout: timeout}
}

type CurrencyResponseDTO struct {
	Currency domain.Currency `json:"currency"`
	Symbol   string          `json:"symbol"`
	// Applied is false when an unknown code was ignored.
	Applied bool `json:"applied"`
}

type SetCurrencyRequestDTO struct {
	Currency string `json:"currency"`
}

type PriceResponseDTO struct {
	AmountUSD decimal.Decimal `json:"amount_usd"`
	Currency  domain.Currency `json:"currency"`
	Amount    decimal.Decimal `json:"amount"`
	Formatted string          `json:"formatted"`
}

// GET /api/v1/currency
func (h *CurrencyHandler) GetCurrency(w http.ResponseWriter, r *http.Request) {
	c := profileFromContext(r.Context()).Currency.Currency()
	respondJSON(w, http.StatusOK, CurrencyResponseDTO{Currency: c, Symbol: c.Symbol(), Applied: true})
}

// PUT /api/v1/currency. Unknown codes leave the preference untouched.
func (h *CurrencyHandler) SetCurrency(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SetCurrencyRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	engine := profileFromContext(r.Context()).Currency
	applied := engine.SetCurrency(ctx, req.Currency)
	c := engine.Currency()
	if applied {
		h.metrics.CurrencyChanges.WithLabelValues(c.String()).Inc()
	}
	respondJSON(w, http.StatusOK, CurrencyResponseDTO{Currency: c, Symbol: c.Symbol(), Applied: applied})
}

// GET /api/v1/currency/price?amount_usd=49
func (h *CurrencyHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount_usd"))
	if err != nil || amount.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_amount", "amount_usd must be a non-negative number")
		return
	}

	engine := profileFromContext(r.Context()).Currency
	respondJSON(w, http.StatusOK, PriceResponseDTO{
		AmountUSD: amount,
		Currency:  engine.Currency(),
		Amount:    engine.ConvertPrice(amount),
		Formatted: engine.FormatPrice(amount),
	})
}
