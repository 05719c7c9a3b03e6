package currency

import (
	"github.com/fjod/go_cart/commerce-service/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var indianEnglish = language.MustParse("en-IN")

// FormatPrice renders a USD list price the way listing cards show it:
// "$49" or, for INR, the converted whole-rupee amount such as "₹4,067".
func FormatPrice(amountUSD decimal.Decimal, c domain.Currency) string {
	if c == domain.INR {
		return c.Symbol() + groupRupees(c.FromUSD(amountUSD))
	}
	return c.Symbol() + amountUSD.String()
}

// Format renders an amount that is already in c, as checkout totals are
// shown: "$128.00" or "₹10,624".
func Format(amount decimal.Decimal, c domain.Currency) string {
	if c == domain.INR {
		return c.Symbol() + groupRupees(amount)
	}
	return c.Symbol() + amount.StringFixed(c.Places())
}

func groupRupees(amount decimal.Decimal) string {
	return message.NewPrinter(indianEnglish).Sprintf("%d", amount.Round(0).IntPart())
}
