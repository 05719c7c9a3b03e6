package domain

import "github.com/shopspring/decimal"

// CommissionSplit is the seller/platform division of a price.
type CommissionSplit struct {
	Currency      Currency        `json:"currency"`
	Rate          decimal.Decimal `json:"rate"`
	SellerShare   decimal.Decimal `json:"seller_share"`
	PlatformShare decimal.Decimal `json:"platform_share"`
}
