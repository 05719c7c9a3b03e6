package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is a snapshot of a listing taken when it was added to the cart.
// Digital goods are sold one unit per listing, so there is no quantity.
type CartItem struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Category   string           `json:"category"`
	PriceUSD   decimal.Decimal  `json:"price_usd"`
	PriceINR   *decimal.Decimal `json:"price_inr,omitempty"`
	Image      string           `json:"image,omitempty"`
	SellerName string           `json:"seller_name"`
	AddedAt    time.Time        `json:"added_at"`
}

func NewCartItem(l Listing, addedAt time.Time) CartItem {
	item := CartItem{
		ID:         l.ID,
		Title:      l.Title,
		Category:   l.Category,
		PriceUSD:   l.PriceUSD,
		Image:      l.FirstImage(),
		SellerName: l.SellerName,
		AddedAt:    addedAt.UTC(),
	}
	if l.PriceINR.IsPositive() {
		inr := l.PriceINR
		item.PriceINR = &inr
	}
	return item
}

// PriceIn returns the amount due for the item in c: the precomputed price
// when one exists, otherwise the USD price converted at the fixed rate.
func (i CartItem) PriceIn(c Currency) decimal.Decimal {
	if c == INR && i.PriceINR != nil && i.PriceINR.IsPositive() {
		return *i.PriceINR
	}
	return c.FromUSD(i.PriceUSD)
}
