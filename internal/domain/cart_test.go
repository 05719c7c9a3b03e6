package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCartItem_SnapshotsListing(t *testing.T) {
	l := Listing{
		ID:         "tpl-1",
		Title:      "SaaS Starter",
		Category:   "Web",
		PriceUSD:   decimal.NewFromInt(49),
		PriceINR:   decimal.NewFromInt(3999),
		Images:     []string{"a.png", "b.png"},
		SellerName: "Avocado Creator",
	}

	item := NewCartItem(l, time.Now())

	assert.Equal(t, "tpl-1", item.ID)
	assert.Equal(t, "a.png", item.Image)
	assert.Equal(t, "Avocado Creator", item.SellerName)
	require.NotNil(t, item.PriceINR)
	assert.True(t, item.PriceINR.Equal(decimal.NewFromInt(3999)))
}

func TestNewCartItem_ZeroINRIsAbsent(t *testing.T) {
	item := NewCartItem(Listing{ID: "x", PriceUSD: decimal.NewFromInt(10)}, time.Now())
	assert.Nil(t, item.PriceINR)
	assert.Empty(t, item.Image)
}

func TestPriceIn(t *testing.T) {
	inr := decimal.NewFromInt(999)
	withINR := CartItem{PriceUSD: decimal.NewFromInt(10), PriceINR: &inr}
	withoutINR := CartItem{PriceUSD: decimal.NewFromInt(10)}

	assert.True(t, withINR.PriceIn(INR).Equal(decimal.NewFromInt(999)))
	assert.True(t, withoutINR.PriceIn(INR).Equal(decimal.NewFromInt(830)))
	assert.True(t, withINR.PriceIn(USD).Equal(decimal.NewFromInt(10)))
}

func TestParseCurrency(t *testing.T) {
	c, ok := ParseCurrency("inr")
	assert.True(t, ok)
	assert.Equal(t, INR, c)

	_, ok = ParseCurrency("EUR")
	assert.False(t, ok)

	_, ok = ParseCurrency("")
	assert.False(t, ok)
}

func TestFromUSD_RoundsRupees(t *testing.T) {
	assert.Equal(t, "42", INR.FromUSD(decimal.RequireFromString("0.5")).String())
	assert.Equal(t, "12.5", USD.FromUSD(decimal.RequireFromString("12.5")).String())
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(12800), USD.MinorUnits(decimal.NewFromInt(128)))
	assert.Equal(t, int64(83000), INR.MinorUnits(decimal.NewFromInt(830)))
}
