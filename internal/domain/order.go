package domain

type OrderKind string

const (
	OrderSingle OrderKind = "single"
	OrderCart   OrderKind = "cart"
)

// OrderRequest asks the payment service for a hosted checkout.
// CheckoutID and ProfileID travel to the provider as metadata so its
// payment confirmation can be matched back to the session.
type OrderRequest struct {
	Kind        OrderKind
	CheckoutID  string
	ProfileID   string
	ListingIDs  []string
	Currency    Currency
	MinorAmount int64
	Description string
}

// Order is the payment service's answer: where to send the shopper.
type Order struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
}
