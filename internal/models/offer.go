package models

import (
	"time"

	"github.com/google/uuid"
)

// Offer statuses
const (
	OfferStatusPending   = "pending"
	OfferStatusAccepted  = "accepted"
	OfferStatusRejected  = "rejected"
	OfferStatusWithdrawn = "withdrawn"
	OfferStatusCompleted = "completed"
	OfferStatusExpired   = "expired"
)

// Valid state transitions: from -> []to. Rejection after acceptance models a
// failed payment capture.
var ValidOfferTransitions = map[string][]string{
	OfferStatusPending:   {OfferStatusAccepted, OfferStatusRejected, OfferStatusWithdrawn, OfferStatusExpired},
	OfferStatusAccepted:  {OfferStatusCompleted, OfferStatusRejected},
	OfferStatusRejected:  {},
	OfferStatusWithdrawn: {},
	OfferStatusCompleted: {},
	OfferStatusExpired:   {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidOfferTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no further transitions are permitted.
func IsTerminalStatus(status string) bool {
	allowed, ok := ValidOfferTransitions[status]
	return ok && len(allowed) == 0
}

// Payment statuses. Transitions are monotonic: pending -> processing ->
// completed|failed, skips forward allowed, never backwards.
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusCompleted  = "completed"
	PaymentStatusFailed     = "failed"
)

var paymentStatusRank = map[string]int{
	PaymentStatusPending:    0,
	PaymentStatusProcessing: 1,
	PaymentStatusCompleted:  2,
	PaymentStatusFailed:     2,
}

// IsValidPaymentTransition allows any strictly forward move. completed and
// failed share a rank so one terminal outcome can never replace the other.
func IsValidPaymentTransition(from, to string) bool {
	fromRank, ok := paymentStatusRank[from]
	if !ok {
		return false
	}
	toRank, ok := paymentStatusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

func IsTerminalPaymentStatus(status string) bool {
	return status == PaymentStatusCompleted || status == PaymentStatusFailed
}

type Offer struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"property_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	Status     string    `json:"status"`
	Amount     string    `json:"amount"` // numeric as string, property's listing currency
	Terms      string    `json:"terms"`
	Message    *string   `json:"message,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// OfferWithProperty embeds Offer and adds property info to avoid N+1 queries.
type OfferWithProperty struct {
	Offer
	PropertyTitle   *string `json:"property_title,omitempty"`
	PropertyAgentID *uuid.UUID `json:"property_agent_id,omitempty"`
}

// OfferPayment tracks the capture attempt tied to an offer.
type OfferPayment struct {
	ID               uuid.UUID  `json:"id"`
	OfferID          uuid.UUID  `json:"offer_id"`
	GatewayReference *string    `json:"gateway_reference,omitempty"`
	Status           string     `json:"status"`
	Amount           string     `json:"amount"`
	Currency         string     `json:"currency"`
	Method           *string    `json:"method,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

type OfferDocument struct {
	ID         uuid.UUID `json:"id"`
	OfferID    uuid.UUID `json:"offer_id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}
