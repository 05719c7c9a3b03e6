package currency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/fjod/go_cart/commerce-service/internal/domain"
	"github.com/fjod/go_cart/commerce-service/internal/storage"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// StorageKey holds the profile's chosen currency code.
const StorageKey = "avocado_currency"

// LocaleMatch selects how a locale string is recognised as Indian.
type LocaleMatch string

const (
	// MatchLoose treats any locale containing "in" as Indian. It also
	// matches tags such as "in-ID" (Indonesian).
	MatchLoose LocaleMatch = "loose"
	// MatchRegion requires an explicit IN region subtag, e.g. "en-IN".
	MatchRegion LocaleMatch = "region"
)

func ParseLocaleMatch(s string) (LocaleMatch, bool) {
	switch m := LocaleMatch(strings.ToLower(s)); m {
	case MatchLoose, MatchRegion:
		return m, true
	}
	return "", false
}

// Engine owns one profile's display currency. Storage is best effort: once a
// write fails the engine keeps working from memory only. A failed read leaves
// the engine unloaded so the saved preference can still be picked up later.
type Engine struct {
	mu         sync.RWMutex
	store      storage.Store
	match      LocaleMatch
	current    domain.Currency
	detected   bool
	loaded     bool
	memoryOnly bool
	log        *slog.Logger
}

func NewEngine(store storage.Store, match LocaleMatch, log *slog.Logger) *Engine {
	return &Engine{
		store:   store,
		match:   match,
		current: domain.USD,
		log:     log,
	}
}

// Init picks the locale default and then lets a saved preference override it.
func (e *Engine) Init(ctx context.Context, locale string) domain.Currency {
	e.Detect(locale)
	_ = e.Load(ctx)
	return e.Currency()
}

// Detect sets the default from the locale. Only the first call has an effect.
func (e *Engine) Detect(locale string) domain.Currency {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detected {
		return e.current
	}
	e.detected = true
	if IsIndianLocale(locale, e.match) {
		e.current = domain.INR
	}
	return e.current
}

// Load applies the saved preference. A read error is returned and leaves the
// engine unloaded; a choice made through SetCurrency is never overridden.
func (e *Engine) Load(ctx context.Context) error {
	raw, err := e.store.Get(ctx, StorageKey)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		return nil
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		e.log.Warn("currency storage unavailable, using the locale default for now", "error", err)
		return fmt.Errorf("load currency: %w", err)
	default:
		if c, ok := domain.ParseCurrency(raw); ok {
			e.current = c
		} else {
			e.log.Debug("ignoring stored currency", "value", raw)
		}
	}
	e.loaded = true
	return nil
}

// Loaded reports whether the saved preference has been read or replaced.
func (e *Engine) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loaded
}

// SetCurrency switches to code and persists it. Unknown codes are ignored
// and reported as false.
func (e *Engine) SetCurrency(ctx context.Context, code string) bool {
	c, ok := domain.ParseCurrency(code)
	if !ok {
		e.log.Debug("ignoring invalid currency", "code", code)
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.memoryOnly {
		if err := e.store.Set(ctx, StorageKey, c.String()); err != nil {
			e.log.Warn("persist currency failed, keeping preference in memory", "error", err)
			e.memoryOnly = true
		}
	}
	e.current = c
	e.loaded = true
	return true
}

func (e *Engine) Currency() domain.Currency {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// FormatPrice renders a USD list price in the current currency.
func (e *Engine) FormatPrice(amountUSD decimal.Decimal) string {
	return FormatPrice(amountUSD, e.Currency())
}

// ConvertPrice applies the FormatPrice conversion but returns the number.
func (e *Engine) ConvertPrice(amountUSD decimal.Decimal) decimal.Decimal {
	return e.Currency().FromUSD(amountUSD)
}

func IsIndianLocale(locale string, match LocaleMatch) bool {
	if locale == "" {
		return false
	}
	if match == MatchLoose {
		return strings.Contains(strings.ToLower(locale), "in")
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return false
	}
	region, confidence := tag.Region()
	return confidence == language.Exact && region.String() == "IN"
}
