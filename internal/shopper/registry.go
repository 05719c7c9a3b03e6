// Package shopper keeps the per-profile commerce state: one currency engine,
// one cart and one checkout composer for each browser profile.
package shopper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/commerce-service/internal/cart"
	"github.com/fjod/go_cart/commerce-service/internal/checkout"
	"github.com/fjod/go_cart/commerce-service/internal/commission"
	"github.com/fjod/go_cart/commerce-service/internal/currency"
	"github.com/fjod/go_cart/commerce-service/internal/notify"
	"github.com/fjod/go_cart/commerce-service/internal/storage"
	"golang.org/x/sync/singleflight"
)

type Profile struct {
	ID       string
	Currency *currency.Engine
	Cart     *cart.Store
	Checkout *checkout.Composer

	mu       sync.Mutex
	lastSeen time.Time
}

func (p *Profile) touch(now time.Time) {
	p.mu.Lock()
	p.lastSeen = now
	p.mu.Unlock()
}

func (p *Profile) idleSince() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeen
}

type Config struct {
	Store       storage.Store
	Sink        notify.Sink
	Listings    checkout.ListingFetcher
	Orders      checkout.OrderCreator
	Commission  commission.Calculator
	LocaleMatch currency.LocaleMatch
	ClearPolicy checkout.ClearPolicy
	// LoadTimeout bounds the storage reads of a profile load. The load is
	// detached from the request that triggered it.
	LoadTimeout time.Duration
	// PendingHold keeps a profile with a payment in progress past the idle
	// timeout, up to this long without activity.
	PendingHold time.Duration
	Log         *slog.Logger
}

const (
	defaultLoadTimeout = 5 * time.Second
	defaultPendingHold = 24 * time.Hour
)

type Registry struct {
	cfg Config
	now func() time.Time

	mu       sync.RWMutex
	profiles map[string]*Profile
	sfg      singleflight.Group
}

func NewRegistry(cfg Config) *Registry {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = defaultLoadTimeout
	}
	if cfg.PendingHold <= 0 {
		cfg.PendingHold = defaultPendingHold
	}
	return &Registry{
		cfg:      cfg,
		now:      time.Now,
		profiles: make(map[string]*Profile),
	}
}

// Get returns the profile, creating and loading it on first use. locale is
// only consulted when the profile is created. A profile whose stored state
// could not be read is retried on every Get until the read succeeds.
func (r *Registry) Get(ctx context.Context, profileID, locale string) *Profile {
	r.mu.RLock()
	p, ok := r.profiles[profileID]
	r.mu.RUnlock()
	if ok {
		p.touch(r.now())
		r.reload(ctx, p)
		return p
	}

	v, _, _ := r.sfg.Do(profileID, func() (interface{}, error) {
		r.mu.RLock()
		existing, ok := r.profiles[profileID]
		r.mu.RUnlock()
		if ok {
			return existing, nil
		}

		created := r.build(ctx, profileID, locale)
		r.mu.Lock()
		r.profiles[profileID] = created
		r.mu.Unlock()
		return created, nil
	})
	p = v.(*Profile)
	p.touch(r.now())
	return p
}

// loadContext detaches storage reads from the request so a disconnecting
// client cannot leave a cached profile half loaded.
func (r *Registry) loadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), r.cfg.LoadTimeout)
}

func (r *Registry) reload(ctx context.Context, p *Profile) {
	if p.Currency.Loaded() && p.Cart.Loaded() {
		return
	}
	ctx, cancel := r.loadContext(ctx)
	defer cancel()

	if !p.Currency.Loaded() {
		if err := p.Currency.Load(ctx); err != nil {
			r.cfg.Log.WarnContext(ctx, "currency reload failed", "profile_id", p.ID, "error", err)
		}
	}
	if !p.Cart.Loaded() {
		if err := p.Cart.Load(ctx); err != nil {
			r.cfg.Log.WarnContext(ctx, "cart reload failed", "profile_id", p.ID, "error", err)
		}
	}
}

func (r *Registry) build(ctx context.Context, profileID, locale string) *Profile {
	log := r.cfg.Log.With("profile_id", profileID)
	kv := storage.ForProfile(r.cfg.Store, profileID)

	ctx, cancel := r.loadContext(ctx)
	defer cancel()

	engine := currency.NewEngine(kv, r.cfg.LocaleMatch, log)
	engine.Detect(locale)
	if err := engine.Load(ctx); err != nil {
		log.WarnContext(ctx, "currency preference not loaded, will retry", "error", err)
	}

	store := cart.NewStore(kv, r.cfg.Sink, profileID, log)
	if err := store.Load(ctx); err != nil {
		log.WarnContext(ctx, "cart not loaded, will retry", "error", err)
	}

	composer := checkout.NewComposer(checkout.Deps{
		Listings:   r.cfg.Listings,
		Orders:     r.cfg.Orders,
		Cart:       store,
		Currency:   engine,
		Commission: r.cfg.Commission,
		Sink:       r.cfg.Sink,
		ProfileID:  profileID,
		Policy:     r.cfg.ClearPolicy,
		Log:        log,
	})

	log.DebugContext(ctx, "profile loaded", "currency", engine.Currency().String(), "cart_items", store.Len())
	return &Profile{
		ID:       profileID,
		Currency: engine,
		Cart:     store,
		Checkout: composer,
		lastSeen: r.now(),
	}
}

// Lookup returns a loaded profile without creating one.
func (r *Registry) Lookup(profileID string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[profileID]
	return p, ok
}

// Complete finishes a checkout session of a loaded profile. Sessions only
// live in memory, so an unloaded profile has none.
func (r *Registry) Complete(ctx context.Context, profileID, checkoutID string) error {
	p, ok := r.Lookup(profileID)
	if !ok {
		return checkout.ErrSessionNotFound
	}
	return p.Checkout.Complete(ctx, checkoutID)
}

// Evict drops profiles not seen for idle. Their cart and currency stay in
// storage and are reloaded on the next request. A profile with a payment in
// progress is kept until PendingHold, since its checkout session only lives
// in memory.
func (r *Registry) Evict(idle time.Duration) int {
	now := r.now()
	cutoff := now.Add(-idle)
	pendingCutoff := now.Add(-r.cfg.PendingHold)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, p := range r.profiles {
		seen := p.idleSince()
		if !seen.Before(cutoff) {
			continue
		}
		if seen.After(pendingCutoff) && p.Checkout.Pending() {
			continue
		}
		delete(r.profiles, id)
		evicted++
	}
	return evicted
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}
