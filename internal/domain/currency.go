package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	USD Currency = "USD"
	INR Currency = "INR"
)

// USDToINR is the fixed rate used to estimate INR prices for display.
const USDToINR = 83

var usdToINR = decimal.NewFromInt(USDToINR)

// ParseCurrency accepts a currency code in any letter case.
func ParseCurrency(code string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !c.Valid() {
		return "", false
	}
	return c, true
}

func (c Currency) Valid() bool {
	return c == USD || c == INR
}

func (c Currency) String() string {
	return string(c)
}

func (c Currency) Symbol() string {
	if c == INR {
		return "₹"
	}
	return "$"
}

// Places is the number of decimal places amounts in c are shown with.
func (c Currency) Places() int32 {
	if c == INR {
		return 0
	}
	return 2
}

// FromUSD converts a USD amount into c. INR results are whole rupees.
func (c Currency) FromUSD(usd decimal.Decimal) decimal.Decimal {
	if c == INR {
		return usd.Mul(usdToINR).Round(0)
	}
	return usd
}

// MinorUnits returns amount in cents or paise, truncated.
func (c Currency) MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}
