package checkout

import "github.com/fjod/go_cart/commerce-service/internal/domain"

// Mode says what a session buys: one listing, or everything in the cart.
type Mode struct {
	listingID string
}

func Single(listingID string) Mode {
	return Mode{listingID: listingID}
}

func Cart() Mode {
	return Mode{}
}

// ModeFor picks Single when a listing id was given and Cart otherwise.
func ModeFor(listingID string) Mode {
	if listingID != "" {
		return Single(listingID)
	}
	return Cart()
}

func (m Mode) IsSingle() bool {
	return m.listingID != ""
}

func (m Mode) ListingID() string {
	return m.listingID
}

func (m Mode) Kind() domain.OrderKind {
	if m.IsSingle() {
		return domain.OrderSingle
	}
	return domain.OrderCart
}

func (m Mode) String() string {
	return string(m.Kind())
}
