package models

import "testing"

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{OfferStatusPending, OfferStatusAccepted, true},
		{OfferStatusPending, OfferStatusRejected, true},
		{OfferStatusPending, OfferStatusWithdrawn, true},
		{OfferStatusPending, OfferStatusExpired, true},
		{OfferStatusAccepted, OfferStatusCompleted, true},

		// Failed capture rejects an accepted offer
		{OfferStatusAccepted, OfferStatusRejected, true},

		// Invalid transitions
		{OfferStatusPending, OfferStatusCompleted, false},
		{OfferStatusAccepted, OfferStatusWithdrawn, false},
		{OfferStatusAccepted, OfferStatusExpired, false},
		{OfferStatusAccepted, OfferStatusPending, false},
		{OfferStatusRejected, OfferStatusAccepted, false},
		{OfferStatusWithdrawn, OfferStatusPending, false},
		{OfferStatusCompleted, OfferStatusRejected, false},
		{OfferStatusExpired, OfferStatusAccepted, false},
		{OfferStatusExpired, OfferStatusPending, false},
		{"nonexistent", OfferStatusAccepted, false},
		{OfferStatusPending, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllStatusesHaveTransitionEntry(t *testing.T) {
	allStatuses := []string{
		OfferStatusPending, OfferStatusAccepted, OfferStatusRejected,
		OfferStatusWithdrawn, OfferStatusCompleted, OfferStatusExpired,
	}

	for _, status := range allStatuses {
		if _, ok := ValidOfferTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidOfferTransitions map", status)
		}
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	terminal := []string{OfferStatusRejected, OfferStatusWithdrawn, OfferStatusCompleted, OfferStatusExpired}
	for _, status := range terminal {
		if !IsTerminalStatus(status) {
			t.Errorf("expected %q to be terminal", status)
		}
		if transitions := ValidOfferTransitions[status]; len(transitions) != 0 {
			t.Errorf("terminal status %q should have no transitions, got %v", status, transitions)
		}
	}

	for _, status := range []string{OfferStatusPending, OfferStatusAccepted} {
		if IsTerminalStatus(status) {
			t.Errorf("expected %q to be non-terminal", status)
		}
	}
}

func TestIsValidPaymentTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		{PaymentStatusPending, PaymentStatusProcessing, true},
		{PaymentStatusProcessing, PaymentStatusCompleted, true},
		{PaymentStatusProcessing, PaymentStatusFailed, true},

		// Forward skips are allowed, the sequence is non-decreasing
		{PaymentStatusPending, PaymentStatusCompleted, true},
		{PaymentStatusPending, PaymentStatusFailed, true},

		// No regressions
		{PaymentStatusProcessing, PaymentStatusPending, false},
		{PaymentStatusCompleted, PaymentStatusProcessing, false},
		{PaymentStatusCompleted, PaymentStatusPending, false},
		{PaymentStatusFailed, PaymentStatusPending, false},

		// Terminal outcomes never replace each other
		{PaymentStatusCompleted, PaymentStatusFailed, false},
		{PaymentStatusFailed, PaymentStatusCompleted, false},

		// Redelivery of the same status is not a transition
		{PaymentStatusCompleted, PaymentStatusCompleted, false},
		{PaymentStatusProcessing, PaymentStatusProcessing, false},

		{"nonexistent", PaymentStatusCompleted, false},
		{PaymentStatusPending, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidPaymentTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidPaymentTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}
