package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/property-marketplace/backend/internal/models"
)

type WishlistRepo struct {
	pool *pgxpool.Pool
}

func NewWishlistRepo(pool *pgxpool.Pool) *WishlistRepo {
	return &WishlistRepo{pool: pool}
}

func (r *WishlistRepo) Add(ctx context.Context, userID, propertyID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO wishlists (user_id, property_id) VALUES ($1, $2)
		ON CONFLICT (user_id, property_id) DO NOTHING
	`, userID, propertyID)
	return err
}

func (r *WishlistRepo) Remove(ctx context.Context, userID, propertyID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM wishlists WHERE user_id = $1 AND property_id = $2
	`, userID, propertyID)
	return err
}

func (r *WishlistRepo) ListProperties(ctx context.Context, userID uuid.UUID) ([]models.Property, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.agent_id, p.title, p.description, p.location, p.price, p.currency,
		       p.status, p.created_at, p.updated_at
		FROM wishlists w
		JOIN properties p ON p.id = w.property_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var props []models.Property
	for rows.Next() {
		var p models.Property
		if err := rows.Scan(&p.ID, &p.AgentID, &p.Title, &p.Description, &p.Location, &p.Price,
			&p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, rows.Err()
}
