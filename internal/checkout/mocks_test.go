package checkout

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/fjod/go_cart/commerce-service/internal/cart"
	"github.com/fjod/go_cart/commerce-service/internal/commission"
	"github.com/fjod/go_cart/commerce-service/internal/currency"
	"github.com/fjod/go_cart/commerce-service/internal/domain"
	"github.com/fjod/go_cart/commerce-service/internal/identity"
	"github.com/fjod/go_cart/commerce-service/internal/notify"
	"github.com/fjod/go_cart/commerce-service/internal/storage"
	"github.com/shopspring/decimal"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// MockListingService serves listings from a map and counts fetches.
type MockListingService struct {
	mu       sync.Mutex
	Listings map[string]domain.Listing
	Err      error
	Calls    int
}

func (m *MockListingService) GetListing(_ context.Context, id string) (domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return domain.Listing{}, m.Err
	}
	l, ok := m.Listings[id]
	if !ok {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	return l, nil
}

func (m *MockListingService) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// MockPaymentService answers with Order/Err. When Block is set, CreateOrder
// signals Entered and waits for Block to be closed.
type MockPaymentService struct {
	mu       sync.Mutex
	Order    domain.Order
	Err      error
	Requests []domain.OrderRequest
	Entered  chan struct{}
	Block    chan struct{}
}

func (m *MockPaymentService) CreateOrder(_ context.Context, req domain.OrderRequest) (domain.Order, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	entered, block := m.Entered, m.Block
	m.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Order, m.Err
}

func (m *MockPaymentService) set(order domain.Order, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Order, m.Err = order, err
}

func (m *MockPaymentService) requests() []domain.OrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OrderRequest(nil), m.Requests...)
}

type recordingSink struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (r *recordingSink) Notify(_ context.Context, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recordingSink) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, n := range r.got {
		out = append(out, n.Message)
	}
	return out
}

type fixture struct {
	composer *Composer
	listings *MockListingService
	payments *MockPaymentService
	cart     *cart.Store
	currency *currency.Engine
	sink     *recordingSink
}

func listing(id, title string, usd int64) domain.Listing {
	return domain.Listing{
		ID:         id,
		Title:      title,
		Category:   "Web",
		PriceUSD:   decimal.NewFromInt(usd),
		SellerName: "Avocado Creator",
	}
}

func newFixture(t *testing.T, policy ClearPolicy) *fixture {
	t.Helper()
	kv := storage.NewMemoryStore()
	sink := &recordingSink{}
	f := &fixture{
		listings: &MockListingService{Listings: map[string]domain.Listing{
			"a": listing("a", "SaaS Starter", 49),
			"b": listing("b", "Portfolio Pro", 79),
			"x": listing("x", "Landing Kit", 10),
		}},
		payments: &MockPaymentService{Order: domain.Order{ID: "co_1", CheckoutURL: "https://pay.example/c/1"}},
		cart:     cart.NewStore(kv, sink, "p1", discardLog),
		currency: currency.NewEngine(kv, currency.MatchRegion, discardLog),
		sink:     sink,
	}
	f.composer = NewComposer(Deps{
		Listings:   f.listings,
		Orders:     f.payments,
		Cart:       f.cart,
		Currency:   f.currency,
		Commission: commission.Default(),
		Sink:       sink,
		ProfileID:  "p1",
		Policy:     policy,
		Log:        discardLog,
	})
	return f
}

func signedIn() context.Context {
	return identity.WithUser(context.Background(), identity.User{ID: "u1", Email: "buyer@example.com", Token: "tok"})
}
