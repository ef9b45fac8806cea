package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/property-marketplace/backend/internal/apperrors"
	"github.com/property-marketplace/backend/internal/models"
)

type PropertyRepo struct {
	pool *pgxpool.Pool
}

func NewPropertyRepo(pool *pgxpool.Pool) *PropertyRepo {
	return &PropertyRepo{pool: pool}
}

func (r *PropertyRepo) Create(ctx context.Context, p *models.Property) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO properties (agent_id, title, description, location, price, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, p.AgentID, p.Title, p.Description, p.Location, p.Price, p.Currency, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PropertyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var p models.Property
	err := r.pool.QueryRow(ctx, `
		SELECT id, agent_id, title, description, location, price, currency, status, created_at, updated_at
		FROM properties WHERE id = $1
	`, id).Scan(&p.ID, &p.AgentID, &p.Title, &p.Description, &p.Location, &p.Price, &p.Currency,
		&p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("property %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

type PropertyFilter struct {
	AgentID *uuid.UUID
	Status  *string
	Limit   int
	Offset  int
}

func (r *PropertyRepo) List(ctx context.Context, f PropertyFilter) ([]models.Property, error) {
	query := `
		SELECT id, agent_id, title, description, location, price, currency, status, created_at, updated_at
		FROM properties
	`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.AgentID != nil {
		where = append(where, fmt.Sprintf("agent_id = $%d", argIdx))
		args = append(args, *f.AgentID)
		argIdx++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}

	if len(where) > 0 {
		query += " WHERE "
		for i, w := range where {
			if i > 0 {
				query += " AND "
			}
			query += w
		}
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
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

func (r *PropertyRepo) Update(ctx context.Context, p *models.Property) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE properties SET title = $1, description = $2, location = $3, price = $4,
		       currency = $5, status = $6, updated_at = now()
		WHERE id = $7
	`, p.Title, p.Description, p.Location, p.Price, p.Currency, p.Status, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("property %s: %w", p.ID, apperrors.ErrNotFound)
	}
	return nil
}
