package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to CheckoutStatus
		want     bool
	}{
		{CheckoutStatusIdle, CheckoutStatusLoading, true},
		{CheckoutStatusLoading, CheckoutStatusReady, true},
		{CheckoutStatusReady, CheckoutStatusSubmitting, true},
		{CheckoutStatusSubmitting, CheckoutStatusRedirecting, true},
		{CheckoutStatusSubmitting, CheckoutStatusFailed, true},
		{CheckoutStatusFailed, CheckoutStatusReady, true},
		{CheckoutStatusIdle, CheckoutStatusSubmitting, false},
		{CheckoutStatusSubmitting, CheckoutStatusSubmitting, false},
		{CheckoutStatusRedirecting, CheckoutStatusReady, false},
		{CheckoutStatusFailed, CheckoutStatusSubmitting, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransitionTo(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, CheckoutStatusRedirecting.IsTerminal())
	assert.False(t, CheckoutStatusFailed.IsTerminal())
	assert.False(t, CheckoutStatusReady.IsTerminal())
}
