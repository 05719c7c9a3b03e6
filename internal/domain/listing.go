package domain

import "github.com/shopspring/decimal"

// Listing is a purchasable template as served by the listing service.
type Listing struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	PriceUSD    decimal.Decimal `json:"price_usd"`
	PriceINR    decimal.Decimal `json:"price_inr"`
	Images      []string        `json:"images"`
	SellerName  string          `json:"seller_name"`
	Features    []string        `json:"features"`
	TechStack   []string        `json:"tech_stack"`

	IncludesHosting   bool   `json:"includes_hosting"`
	HostingDetails    string `json:"hosting_details,omitempty"`
	IncludesDomain    bool   `json:"includes_domain"`
	DomainDetails     string `json:"domain_details,omitempty"`
	IncludesAPIAccess bool   `json:"includes_api_access"`
	APIAccessDetails  string `json:"api_access_details,omitempty"`

	Attachments []string `json:"attachments,omitempty"`
}

// FirstImage returns the cover image or an empty string.
func (l Listing) FirstImage() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0]
}
