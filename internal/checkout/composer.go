package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/commerce-service/internal/cart"
	"github.com/fjod/go_cart/commerce-service/internal/commission"
	"github.com/fjod/go_cart/commerce-service/internal/domain"
	"github.com/fjod/go_cart/commerce-service/internal/identity"
	"github.com/fjod/go_cart/commerce-service/internal/notify"
	"github.com/google/uuid"
)

const paymentFailedMessage = "Payment failed. Please try again."

type ListingFetcher interface {
	GetListing(ctx context.Context, id string) (domain.Listing, error)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error)
}

type CartSource interface {
	Items() []domain.CartItem
	Clear(ctx context.Context) cart.Outcome
}

type CurrencySource interface {
	Currency() domain.Currency
}

// ClearPolicy decides when a cart-mode checkout empties the cart.
type ClearPolicy string

const (
	// ClearOptimistic clears once the payment service hands back a
	// checkout url, before the shopper is redirected.
	ClearOptimistic ClearPolicy = "optimistic"
	// ClearConfirmed keeps the cart until Complete is called.
	ClearConfirmed ClearPolicy = "confirmed"
)

func ParseClearPolicy(s string) (ClearPolicy, bool) {
	switch p := ClearPolicy(strings.ToLower(s)); p {
	case ClearOptimistic, ClearConfirmed:
		return p, true
	}
	return "", false
}

type Deps struct {
	Listings   ListingFetcher
	Orders     OrderCreator
	Cart       CartSource
	Currency   CurrencySource
	Commission commission.Calculator
	Sink       notify.Sink
	ProfileID  string
	Policy     ClearPolicy
	Log        *slog.Logger
}

// Composer owns the checkout sessions of one profile.
type Composer struct {
	deps Deps
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewComposer(deps Deps) *Composer {
	if deps.Policy == "" {
		deps.Policy = ClearOptimistic
	}
	if deps.Sink == nil {
		deps.Sink = notify.Discard{}
	}
	return &Composer{
		deps:     deps,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Begin resolves what is being bought and prices it. An empty listingID
// means the cart. The returned session is Ready.
func (c *Composer) Begin(ctx context.Context, listingID string) (*Session, error) {
	s := newSession(uuid.NewString(), ModeFor(listingID), c.now().UTC())

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(domain.CheckoutStatusLoading); err != nil {
		return nil, err
	}

	items, err := c.resolve(ctx, s.mode)
	if err != nil {
		c.deps.Log.InfoContext(ctx, "checkout not started", "profile_id", c.deps.ProfileID, "mode", s.mode.String(), "error", err)
		return nil, err
	}
	s.items = items
	s.price(c.deps.Currency.Currency(), c.deps.Commission)
	if err := s.transition(domain.CheckoutStatusReady); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sessions[s.id] = s
	c.mu.Unlock()

	c.deps.Log.InfoContext(ctx, "checkout session ready",
		"profile_id", c.deps.ProfileID,
		"checkout_id", s.id,
		"mode", s.mode.String(),
		"items", len(s.items),
		"currency", s.currency.String(),
		"total", s.total.String(),
	)
	return s, nil
}

func (c *Composer) resolve(ctx context.Context, mode Mode) ([]domain.CartItem, error) {
	if mode.IsSingle() {
		l, err := c.deps.Listings.GetListing(ctx, mode.ListingID())
		if err != nil {
			if errors.Is(err, domain.ErrListingNotFound) {
				c.deps.Sink.Notify(ctx, notify.New(c.deps.ProfileID, notify.KindError, "Listing not found"))
			}
			return nil, fmt.Errorf("resolve listing %s: %w", mode.ListingID(), err)
		}
		return []domain.CartItem{domain.NewCartItem(l, c.now())}, nil
	}

	items := c.deps.Cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	return items, nil
}

func (c *Composer) Lookup(id string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// View returns the session as the shopper should see it, repricing first
// if the display currency changed while the session was Ready.
func (c *Composer) View(id string) (Snapshot, error) {
	s, err := c.Lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.refresh(s)
	return s.snapshot(), nil
}

// refresh must be called with s.mu held.
func (c *Composer) refresh(s *Session) {
	if s.status != domain.CheckoutStatusReady {
		return
	}
	if cur := c.deps.Currency.Currency(); cur != s.currency {
		s.price(cur, c.deps.Commission)
	}
}

// Submit asks the payment service for a hosted checkout and returns the url
// to redirect to. Only one submission per session may be in flight; a
// failed attempt leaves the session Ready with its items and totals intact.
func (c *Composer) Submit(ctx context.Context, id string) (string, error) {
	s, err := c.Lookup(id)
	if err != nil {
		return "", err
	}
	user, ok := identity.UserFromContext(ctx)
	if !ok {
		return "", ErrUnauthenticated
	}

	s.mu.Lock()
	switch s.status {
	case domain.CheckoutStatusSubmitting:
		s.mu.Unlock()
		return "", ErrSubmissionInFlight
	case domain.CheckoutStatusReady:
	default:
		status := s.status
		s.mu.Unlock()
		return "", fmt.Errorf("%w: session is %s", ErrNotReady, status)
	}
	c.refresh(s)
	req := domain.OrderRequest{
		Kind:        s.mode.Kind(),
		CheckoutID:  s.id,
		ProfileID:   c.deps.ProfileID,
		ListingIDs:  s.listingIDs(),
		Currency:    s.currency,
		MinorAmount: s.currency.MinorUnits(s.total),
		Description: s.description(),
	}
	if err := s.transition(domain.CheckoutStatusSubmitting); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.lastErr = nil
	s.mu.Unlock()

	c.deps.Log.InfoContext(ctx, "submitting payment order",
		"profile_id", c.deps.ProfileID,
		"checkout_id", s.id,
		"user_id", user.ID,
		"description", req.Description,
		"currency", req.Currency.String(),
		"minor_amount", req.MinorAmount,
	)

	order, err := c.deps.Orders.CreateOrder(ctx, req)
	if err == nil && order.CheckoutURL == "" {
		err = ErrMissingCheckoutURL
	}
	if err != nil {
		return "", c.fail(ctx, s, err)
	}

	s.mu.Lock()
	s.order = order
	if s.mode.Kind() == domain.OrderCart && c.deps.Policy == ClearOptimistic {
		c.deps.Cart.Clear(ctx)
		s.cartCleared = true
	}
	err = s.transition(domain.CheckoutStatusRedirecting)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	c.deps.Log.InfoContext(ctx, "redirecting to payment provider",
		"profile_id", c.deps.ProfileID,
		"checkout_id", s.id,
		"order_id", order.ID,
	)
	return order.CheckoutURL, nil
}

func (c *Composer) fail(ctx context.Context, s *Session, cause error) error {
	s.mu.Lock()
	s.lastErr = cause
	if err := s.transition(domain.CheckoutStatusFailed); err == nil {
		_ = s.transition(domain.CheckoutStatusReady)
	}
	s.mu.Unlock()

	c.deps.Log.WarnContext(ctx, "payment order failed",
		"profile_id", c.deps.ProfileID,
		"checkout_id", s.id,
		"error", cause,
	)
	c.deps.Sink.Notify(ctx, notify.New(c.deps.ProfileID, notify.KindError, paymentFailedMessage))
	return fmt.Errorf("%w: %w", ErrPaymentFailed, cause)
}

// Complete is called when the shopper comes back from the payment
// provider. It clears the cart if that was deferred and forgets the session.
func (c *Composer) Complete(ctx context.Context, id string) error {
	s, err := c.Lookup(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.status != domain.CheckoutStatusRedirecting {
		s.mu.Unlock()
		return ErrNotRedirecting
	}
	if s.mode.Kind() == domain.OrderCart && !s.cartCleared {
		c.deps.Cart.Clear(ctx)
		s.cartCleared = true
	}
	s.mu.Unlock()

	c.Discard(id)
	return nil
}

// Discard forgets a session, e.g. when the shopper leaves the checkout page.
func (c *Composer) Discard(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sessions[id]; !ok {
		return false
	}
	delete(c.sessions, id)
	return true
}

// Pending reports whether a session is submitting or waiting for the
// shopper to come back from the payment provider.
func (c *Composer) Pending() bool {
	c.mu.Lock()
	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.mu.Unlock()

	for _, s := range sessions {
		switch s.Status() {
		case domain.CheckoutStatusSubmitting, domain.CheckoutStatusRedirecting:
			return true
		}
	}
	return false
}

// Len is the number of live sessions.
func (c *Composer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}
