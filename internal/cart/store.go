package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/commerce-service/internal/domain"
	"github.com/fjod/go_cart/commerce-service/internal/notify"
	"github.com/fjod/go_cart/commerce-service/internal/storage"
	"github.com/shopspring/decimal"
)

// StorageKey holds the JSON encoded item list.
const StorageKey = "cart"

type Outcome string

const (
	OutcomeAdded         Outcome = "added"
	OutcomeAlreadyInCart Outcome = "already_in_cart"
	OutcomeRemoved       Outcome = "removed"
	OutcomeCleared       Outcome = "cleared"
)

var notices = map[Outcome]struct {
	kind    notify.Kind
	message string
}{
	OutcomeAdded:         {notify.KindSuccess, "Added to cart"},
	OutcomeAlreadyInCart: {notify.KindInfo, "Item already in cart"},
	OutcomeRemoved:       {notify.KindSuccess, "Removed from cart"},
	OutcomeCleared:       {notify.KindSuccess, "Cart cleared"},
}

// Message is the shopper-facing text for an outcome.
func (o Outcome) Message() string {
	return notices[o].message
}

// Store is one profile's cart. It holds at most one entry per listing, and
// every mutation is written to storage before the call returns.
type Store struct {
	mu        sync.Mutex
	items     []domain.CartItem
	loaded    bool
	store     storage.Store
	sink      notify.Sink
	profileID string
	log       *slog.Logger
	now       func() time.Time
}

func NewStore(store storage.Store, sink notify.Sink, profileID string, log *slog.Logger) *Store {
	return &Store{
		store:     store,
		sink:      sink,
		profileID: profileID,
		log:       log,
		now:       time.Now,
	}
}

// Load reads the stored cart. Missing or malformed state yields an empty
// cart. A read error is returned and leaves the store unloaded: items added
// meanwhile stay in memory and nothing is written until a later read
// succeeds, so an unread cart is never overwritten.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Loaded reports whether the stored cart has been read.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// load must be called with s.mu held.
func (s *Store) load(ctx context.Context) error {
	stored, err := s.read(ctx)
	if err != nil {
		s.loaded = false
		return err
	}
	if s.loaded {
		s.items = stored
		return nil
	}
	s.items = dedupe(append(stored, s.items...))
	s.loaded = true
	return nil
}

func (s *Store) read(ctx context.Context) ([]domain.CartItem, error) {
	raw, err := s.store.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.log.Warn("cart storage unavailable, keeping cart in memory", "profile_id", s.profileID, "error", err)
		return nil, fmt.Errorf("load cart: %w", err)
	}

	var items []domain.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.log.Warn("discarding malformed cart", "profile_id", s.profileID, "error", err)
		return nil, nil
	}
	return dedupe(items), nil
}

func (s *Store) Add(ctx context.Context, l domain.Listing) Outcome {
	s.mu.Lock()
	s.ensureLoaded(ctx)
	if s.indexOf(l.ID) >= 0 {
		s.mu.Unlock()
		return s.emit(ctx, OutcomeAlreadyInCart)
	}
	s.items = append(s.items, domain.NewCartItem(l, s.now()))
	s.persist(ctx)
	s.mu.Unlock()

	return s.emit(ctx, OutcomeAdded)
}

// Remove drops the listing if present. Removing an absent listing is not an error.
func (s *Store) Remove(ctx context.Context, id string) Outcome {
	s.mu.Lock()
	s.ensureLoaded(ctx)
	if i := s.indexOf(id); i >= 0 {
		s.items = append(s.items[:i:i], s.items[i+1:]...)
	}
	s.persist(ctx)
	s.mu.Unlock()

	return s.emit(ctx, OutcomeRemoved)
}

func (s *Store) Clear(ctx context.Context) Outcome {
	s.mu.Lock()
	s.ensureLoaded(ctx)
	s.items = nil
	s.persist(ctx)
	s.mu.Unlock()

	return s.emit(ctx, OutcomeCleared)
}

// Items returns a copy of the cart in insertion order.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(id) >= 0
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Total sums USD list prices. It ignores the display currency.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.PriceUSD)
	}
	return total
}

// ensureLoaded retries a failed read before a mutation. It must be called
// with s.mu held.
func (s *Store) ensureLoaded(ctx context.Context) {
	if !s.loaded {
		_ = s.load(ctx)
	}
}

// persist must be called with s.mu held. It is a no-op until the stored cart
// has been read.
func (s *Store) persist(ctx context.Context) {
	if !s.loaded {
		s.log.Warn("cart not loaded, keeping change in memory", "profile_id", s.profileID)
		return
	}
	items := s.items
	if items == nil {
		items = []domain.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		s.log.Error("marshal cart failed", "profile_id", s.profileID, "error", err)
		return
	}
	if err := s.store.Set(ctx, StorageKey, string(data)); err != nil {
		s.log.Warn("persist cart failed, keeping it in memory", "profile_id", s.profileID, "error", err)
	}
}

func (s *Store) emit(ctx context.Context, o Outcome) Outcome {
	n := notices[o]
	s.sink.Notify(ctx, notify.New(s.profileID, n.kind, n.message))
	return o
}

func (s *Store) indexOf(id string) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func dedupe(items []domain.CartItem) []domain.CartItem {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}
