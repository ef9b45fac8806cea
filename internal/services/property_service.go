package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/property-marketplace/backend/internal/apperrors"
	"github.com/property-marketplace/backend/internal/models"
	"github.com/property-marketplace/backend/internal/repositories"
	"go.uber.org/zap"
)

// PropertyService covers the thin listing and review surface around the offer
// core.
type PropertyService struct {
	properties *repositories.PropertyRepo
	reviews    *repositories.ReviewRepo
	log        *zap.Logger
}

func NewPropertyService(properties *repositories.PropertyRepo, reviews *repositories.ReviewRepo, log *zap.Logger) *PropertyService {
	return &PropertyService{properties: properties, reviews: reviews, log: log}
}

type PropertyInput struct {
	Title       string
	Description *string
	Location    *string
	Price       string
	Currency    string
}

func validatePropertyInput(in PropertyInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("title is required")
	}
	v, err := strconv.ParseFloat(in.Price, 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("price must be a positive number")
	}
	return nil
}

func (s *PropertyService) Create(ctx context.Context, agentID uuid.UUID, in PropertyInput) (*models.Property, error) {
	if err := validatePropertyInput(in); err != nil {
		return nil, err
	}
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	p := &models.Property{
		AgentID:     agentID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Price:       in.Price,
		Currency:    currency,
		Status:      models.PropertyStatusActive,
	}
	if err := s.properties.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PropertyService) Update(ctx context.Context, propertyID, agentID uuid.UUID, in PropertyInput, status *string) (*models.Property, error) {
	p, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if p.AgentID != agentID {
		return nil, fmt.Errorf("listing belongs to another agent: %w", apperrors.ErrUnauthorized)
	}
	if err := validatePropertyInput(in); err != nil {
		return nil, err
	}

	p.Title = in.Title
	p.Description = in.Description
	p.Location = in.Location
	p.Price = in.Price
	if in.Currency != "" {
		p.Currency = in.Currency
	}
	if status != nil {
		switch *status {
		case models.PropertyStatusActive, models.PropertyStatusSold, models.PropertyStatusDelisted:
			p.Status = *status
		default:
			return nil, fmt.Errorf("unknown property status %q", *status)
		}
	}

	if err := s.properties.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PropertyService) Get(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	return s.properties.GetByID(ctx, id)
}

func (s *PropertyService) List(ctx context.Context, f repositories.PropertyFilter) ([]models.Property, error) {
	return s.properties.List(ctx, f)
}

// Rating returns the on-demand review aggregate for a property.
func (s *PropertyService) Rating(ctx context.Context, propertyID uuid.UUID) (*models.PropertyRating, error) {
	if _, err := s.properties.GetByID(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.reviews.AverageRating(ctx, propertyID)
}

func (s *PropertyService) CreateReview(ctx context.Context, propertyID, authorID uuid.UUID, rating int, comment *string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5")
	}
	p, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if p.AgentID == authorID {
		return nil, fmt.Errorf("cannot review your own listing: %w", apperrors.ErrUnauthorized)
	}

	rev := &models.Review{
		PropertyID: propertyID,
		AuthorID:   authorID,
		Rating:     rating,
		Comment:    comment,
	}
	if err := s.reviews.Create(ctx, rev); err != nil {
		return nil, err
	}
	return rev, nil
}

func (s *PropertyService) ListReviews(ctx context.Context, propertyID uuid.UUID, limit, offset int) ([]models.Review, error) {
	return s.reviews.ListByProperty(ctx, propertyID, limit, offset)
}
