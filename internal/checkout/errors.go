package checkout

import "errors"

var (
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrSubmissionInFlight = errors.New("a payment submission is already in flight")
	ErrNotReady           = errors.New("checkout session is not ready for submission")
	ErrPaymentFailed      = errors.New("payment failed")
	ErrMissingCheckoutURL = errors.New("payment service returned no checkout url")
	ErrUnauthenticated    = errors.New("sign in to continue checkout")
	ErrSessionNotFound    = errors.New("checkout session not found")
	ErrNotRedirecting     = errors.New("checkout session has not been handed to the payment provider")
)
