package domain

type CheckoutStatus string

const (
	CheckoutStatusIdle        CheckoutStatus = "IDLE"
	CheckoutStatusLoading     CheckoutStatus = "LOADING"
	CheckoutStatusReady       CheckoutStatus = "READY"
	CheckoutStatusSubmitting  CheckoutStatus = "SUBMITTING"
	CheckoutStatusRedirecting CheckoutStatus = "REDIRECTING"
	CheckoutStatusFailed      CheckoutStatus = "FAILED"
)

// Failed only ends a single attempt; the session goes back to Ready.
var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusIdle:       {CheckoutStatusLoading},
	CheckoutStatusLoading:    {CheckoutStatusReady},
	CheckoutStatusReady:      {CheckoutStatusSubmitting},
	CheckoutStatusSubmitting: {CheckoutStatusRedirecting, CheckoutStatusFailed},
	CheckoutStatusFailed:     {CheckoutStatusReady},
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusRedirecting
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
