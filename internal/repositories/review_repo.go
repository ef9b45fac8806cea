package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/property-marketplace/backend/internal/apperrors"
	"github.com/property-marketplace/backend/internal/models"
)

type ReviewRepo struct {
	pool *pgxpool.Pool
}

func NewReviewRepo(pool *pgxpool.Pool) *ReviewRepo {
	return &ReviewRepo{pool: pool}
}

func (r *ReviewRepo) Create(ctx context.Context, rev *models.Review) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO reviews (property_id, author_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, rev.PropertyID, rev.AuthorID, rev.Rating, rev.Comment).Scan(&rev.ID, &rev.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return fmt.Errorf("review already exists for this property: %w", apperrors.ErrConflict)
			case "23503":
				return fmt.Errorf("unknown property or author: %w", apperrors.ErrNotFound)
			}
		}
		return err
	}
	return nil
}

// AverageRating computes the review aggregate on demand; nothing is cached.
func (r *ReviewRepo) AverageRating(ctx context.Context, propertyID uuid.UUID) (*models.PropertyRating, error) {
	rating := models.PropertyRating{PropertyID: propertyID}
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews WHERE property_id = $1
	`, propertyID).Scan(&rating.AverageRating, &rating.NumberOfReviews)
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

func (r *ReviewRepo) ListByProperty(ctx context.Context, propertyID uuid.UUID, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, property_id, author_id, rating, comment, created_at
		FROM reviews WHERE property_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, propertyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var rev models.Review
		if err := rows.Scan(&rev.ID, &rev.PropertyID, &rev.AuthorID, &rev.Rating, &rev.Comment, &rev.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}
