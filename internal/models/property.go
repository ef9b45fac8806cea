package models

import (
	"time"

	"github.com/google/uuid"
)

// Property statuses
const (
	PropertyStatusActive    = "active"
	PropertyStatusSold      = "sold"
	PropertyStatusDelisted  = "delisted"
)

type Property struct {
	ID          uuid.UUID `json:"id"`
	AgentID     uuid.UUID `json:"agent_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Price       string    `json:"price"` // numeric as string
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Review struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"property_id"`
	AuthorID   uuid.UUID `json:"author_id"`
	Rating     int       `json:"rating"` // 1..5
	Comment    *string   `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PropertyRating is the on-demand review aggregate for a property.
type PropertyRating struct {
	PropertyID      uuid.UUID `json:"property_id"`
	AverageRating   float64   `json:"average_rating"`
	NumberOfReviews int       `json:"number_of_reviews"`
}

type WishlistItem struct {
	UserID     uuid.UUID `json:"user_id"`
	PropertyID uuid.UUID `json:"property_id"`
	CreatedAt  time.Time `json:"created_at"`
}
