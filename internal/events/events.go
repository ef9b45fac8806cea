package events

import "context"

// Event types
const (
	EventOfferStatusChanged = "offer_status_changed"
	EventPaymentUpdated     = "payment_updated"
)

// StreamOffers is the pub/sub channel carrying offer lifecycle events.
const StreamOffers = "events:offer"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
