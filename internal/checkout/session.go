package checkout

import (
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/commerce-service/internal/commission"
	"github.com/fjod/go_cart/commerce-service/internal/currency"
	"github.com/fjod/go_cart/commerce-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Line is one resolved item priced in the session currency.
type Line struct {
	Item       domain.CartItem
	Amount     decimal.Decimal
	Commission domain.CommissionSplit
}

// Session is one checkout visit. All fields are guarded by mu; the composer
// is the only writer.
type Session struct {
	mu sync.Mutex

	id        string
	mode      Mode
	createdAt time.Time

	status  domain.CheckoutStatus
	history []domain.CheckoutStatus

	items      []domain.CartItem
	currency   domain.Currency
	lines      []Line
	subtotal   decimal.Decimal
	total      decimal.Decimal
	commission domain.CommissionSplit

	order       domain.Order
	cartCleared bool
	lastErr     error
}

func newSession(id string, mode Mode, now time.Time) *Session {
	return &Session{
		id:        id,
		mode:      mode,
		createdAt: now,
		status:    domain.CheckoutStatusIdle,
		history:   []domain.CheckoutStatus{domain.CheckoutStatusIdle},
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Mode() Mode { return s.mode }

func (s *Session) Status() domain.CheckoutStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// transition must be called with s.mu held.
func (s *Session) transition(to domain.CheckoutStatus) error {
	if !domain.CanTransitionTo(s.status, to) {
		return fmt.Errorf("checkout %s: illegal transition %s -> %s", s.id, s.status, to)
	}
	s.status = to
	s.history = append(s.history, to)
	return nil
}

// price recomputes lines and totals in cur. Must be called with s.mu held.
// Total equals subtotal: no platform fee is added on top of list prices.
func (s *Session) price(cur domain.Currency, calc commission.Calculator) {
	lines := make([]Line, 0, len(s.items))
	subtotal := decimal.Zero
	for _, item := range s.items {
		amount := item.PriceIn(cur)
		lines = append(lines, Line{
			Item:       item,
			Amount:     amount,
			Commission: calc.Split(amount, cur),
		})
		subtotal = subtotal.Add(amount)
	}
	s.currency = cur
	s.lines = lines
	s.subtotal = subtotal
	s.total = subtotal
	s.commission = calc.Split(s.total, cur)
}

func (s *Session) listingIDs() []string {
	ids := make([]string, 0, len(s.items))
	for _, item := range s.items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (s *Session) description() string {
	if s.mode.IsSingle() && len(s.items) == 1 {
		return "Purchase " + s.items[0].Title
	}
	return fmt.Sprintf("Cart Purchase (%d items)", len(s.items))
}

type LineView struct {
	ListingID       string                 `json:"listing_id"`
	Title           string                 `json:"title"`
	Category        string                 `json:"category"`
	Image           string                 `json:"image,omitempty"`
	SellerName      string                 `json:"seller_name"`
	Amount          decimal.Decimal        `json:"amount"`
	AmountFormatted string                 `json:"amount_formatted"`
	Commission      domain.CommissionSplit `json:"commission"`
}

// Snapshot is a consistent read-only copy of a session.
type Snapshot struct {
	ID                string                  `json:"id"`
	Mode              string                  `json:"mode"`
	ListingID         string                  `json:"listing_id,omitempty"`
	Status            domain.CheckoutStatus   `json:"status"`
	History           []domain.CheckoutStatus `json:"history"`
	Currency          domain.Currency         `json:"currency"`
	Lines             []LineView              `json:"lines"`
	Subtotal          decimal.Decimal         `json:"subtotal"`
	SubtotalFormatted string                  `json:"subtotal_formatted"`
	Total             decimal.Decimal         `json:"total"`
	TotalFormatted    string                  `json:"total_formatted"`
	Commission        domain.CommissionSplit  `json:"commission"`
	CheckoutURL       string                  `json:"checkout_url,omitempty"`
	OrderID           string                  `json:"order_id,omitempty"`
	LastError         string                  `json:"last_error,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// snapshot must be called with s.mu held.
func (s *Session) snapshot() Snapshot {
	lines := make([]LineView, 0, len(s.lines))
	for _, l := range s.lines {
		lines = append(lines, LineView{
			ListingID:       l.Item.ID,
			Title:           l.Item.Title,
			Category:        l.Item.Category,
			Image:           l.Item.Image,
			SellerName:      l.Item.SellerName,
			Amount:          l.Amount,
			AmountFormatted: currency.Format(l.Amount, s.currency),
			Commission:      l.Commission,
		})
	}
	snap := Snapshot{
		ID:                s.id,
		Mode:              s.mode.String(),
		ListingID:         s.mode.ListingID(),
		Status:            s.status,
		History:           append([]domain.CheckoutStatus(nil), s.history...),
		Currency:          s.currency,
		Lines:             lines,
		Subtotal:          s.subtotal,
		SubtotalFormatted: currency.Format(s.subtotal, s.currency),
		Total:             s.total,
		TotalFormatted:    currency.Format(s.total, s.currency),
		Commission:        s.commission,
		CheckoutURL:       s.order.CheckoutURL,
		OrderID:           s.order.ID,
		CreatedAt:         s.createdAt,
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}
