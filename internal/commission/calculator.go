// Package commission splits a sale price between seller and platform.
package commission

import (
	"github.com/fjod/go_cart/commerce-service/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultRate is the nominal platform commission.
var DefaultRate = decimal.RequireFromString("0.15")

// Calculator applies the nominal rate unless the promotional override is
// on, in which case the platform takes nothing.
type Calculator struct {
	NominalRate         decimal.Decimal
	PromotionalOverride bool
}

func New(nominalRate float64, promotionalOverride bool) Calculator {
	return Calculator{
		NominalRate:         decimal.NewFromFloat(nominalRate),
		PromotionalOverride: promotionalOverride,
	}
}

// Default is the current policy: 15% nominal, waived.
func Default() Calculator {
	return Calculator{NominalRate: DefaultRate, PromotionalOverride: true}
}

func (c Calculator) EffectiveRate() decimal.Decimal {
	if c.PromotionalOverride {
		return decimal.Zero
	}
	return clamp(c.NominalRate)
}

func (c Calculator) Split(price decimal.Decimal, cur domain.Currency) domain.CommissionSplit {
	return SplitAt(price, c.EffectiveRate(), cur)
}

// SplitAt rounds both shares to the currency's display precision, so their
// sum can differ from price by at most one minor unit.
func SplitAt(price, rate decimal.Decimal, cur domain.Currency) domain.CommissionSplit {
	rate = clamp(rate)
	places := cur.Places()
	return domain.CommissionSplit{
		Currency:      cur,
		Rate:          rate,
		SellerShare:   price.Mul(decimal.NewFromInt(1).Sub(rate)).Round(places),
		PlatformShare: price.Mul(rate).Round(places),
	}
}

func clamp(rate decimal.Decimal) decimal.Decimal {
	if rate.IsNegative() {
		return decimal.Zero
	}
	if one := decimal.NewFromInt(1); rate.GreaterThan(one) {
		return one
	}
	return rate
}
