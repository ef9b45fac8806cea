package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/property-marketplace/backend/internal/apperrors"
	"github.com/property-marketplace/backend/internal/models"
)

type OfferRepo struct {
	pool *pgxpool.Pool
}

func NewOfferRepo(pool *pgxpool.Pool) *OfferRepo {
	return &OfferRepo{pool: pool}
}

// Create persists a new pending offer and its payment row in one transaction.
// The partial unique index on (property_id, buyer_id) WHERE status='pending'
// makes the uniqueness check and the insert a single atomic operation; a
// concurrent duplicate surfaces as apperrors.ErrConflict.
func (r *OfferRepo) Create(ctx context.Context, o *models.Offer, currency string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO offers (property_id, buyer_id, status, amount, terms, message, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, o.PropertyID, o.BuyerID, o.Status, o.Amount, o.Terms, o.Message, o.ExpiresAt,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return fmt.Errorf("pending offer already exists for this property: %w", apperrors.ErrConflict)
			case "23503":
				return fmt.Errorf("unknown property or buyer: %w", apperrors.ErrNotFound)
			}
		}
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO offer_payments (offer_id, status, amount, currency)
		VALUES ($1, $2, $3, $4)
	`, o.ID, models.PaymentStatusPending, o.Amount, currency); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *OfferRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var o models.Offer
	err := r.pool.QueryRow(ctx, `
		SELECT id, property_id, buyer_id, status, amount, terms, message, expires_at, created_at, updated_at
		FROM offers WHERE id = $1
	`, id).Scan(&o.ID, &o.PropertyID, &o.BuyerID, &o.Status, &o.Amount, &o.Terms, &o.Message,
		&o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("offer %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &o, nil
}

func (r *OfferRepo) GetByIDWithProperty(ctx context.Context, id uuid.UUID) (*models.OfferWithProperty, error) {
	var o models.OfferWithProperty
	err := r.pool.QueryRow(ctx, `
		SELECT o.id, o.property_id, o.buyer_id, o.status, o.amount, o.terms, o.message,
		       o.expires_at, o.created_at, o.updated_at,
		       p.title, p.agent_id
		FROM offers o
		JOIN properties p ON p.id = o.property_id
		WHERE o.id = $1
	`, id).Scan(&o.ID, &o.PropertyID, &o.BuyerID, &o.Status, &o.Amount, &o.Terms, &o.Message,
		&o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt,
		&o.PropertyTitle, &o.PropertyAgentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("offer %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &o, nil
}

// UpdateStatus is a compare-and-swap transition. It succeeds only if the stored
// status still equals expected, guarding against lost updates from concurrent
// callbacks, sweeps and user actions.
func (r *OfferRepo) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE offers SET status = $1, updated_at = now() WHERE id = $2 AND status = $3
	`, next, id, expected)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current string
	err = r.pool.QueryRow(ctx, `SELECT status FROM offers WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("offer %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("offer %s is %s, expected %s: %w", id, current, expected, apperrors.ErrConflict)
}

// FindExpirable returns ids of pending offers whose expiry has passed, oldest
// first. Each call re-queries current state so the sweep is restartable.
func (r *OfferRepo) FindExpirable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM offers
		WHERE status = $1 AND expires_at <= $2
		ORDER BY expires_at ASC
		LIMIT $3
	`, models.OfferStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type OfferFilter struct {
	PropertyID *uuid.UUID
	BuyerID    *uuid.UUID
	AgentID    *uuid.UUID // through properties
	Status     *string
	Limit      int
	Offset     int
}

func (r *OfferRepo) List(ctx context.Context, f OfferFilter) ([]models.OfferWithProperty, error) {
	query := `
		SELECT o.id, o.property_id, o.buyer_id, o.status, o.amount, o.terms, o.message,
		       o.expires_at, o.created_at, o.updated_at,
		       p.title, p.agent_id
		FROM offers o
		JOIN properties p ON p.id = o.property_id
	`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.PropertyID != nil {
		where = append(where, fmt.Sprintf("o.property_id = $%d", argIdx))
		args = append(args, *f.PropertyID)
		argIdx++
	}
	if f.BuyerID != nil {
		where = append(where, fmt.Sprintf("o.buyer_id = $%d", argIdx))
		args = append(args, *f.BuyerID)
		argIdx++
	}
	if f.AgentID != nil {
		where = append(where, fmt.Sprintf("p.agent_id = $%d", argIdx))
		args = append(args, *f.AgentID)
		argIdx++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("o.status = $%d", argIdx))
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
	query += fmt.Sprintf(" ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []models.OfferWithProperty
	for rows.Next() {
		var o models.OfferWithProperty
		if err := rows.Scan(&o.ID, &o.PropertyID, &o.BuyerID, &o.Status, &o.Amount, &o.Terms, &o.Message,
			&o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt,
			&o.PropertyTitle, &o.PropertyAgentID); err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

// ---- Payments ----

// PaymentDelta carries the payment fields a caller wants to merge. Nil fields
// are left as stored.
type PaymentDelta struct {
	GatewayReference *string
	Status           *string
	Method           *string
	CompletedAt      *time.Time
}

// UpdatePayment merges delta into the offer's payment row, enforcing
// monotonicity of the payment status. Redelivery of the status already stored
// is reported as applied=false with no error, which is what makes gateway
// callbacks idempotent. A regression returns apperrors.ErrInvalidTransition.
func (r *OfferRepo) UpdatePayment(ctx context.Context, offerID uuid.UUID, delta PaymentDelta) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `
		SELECT status FROM offer_payments WHERE offer_id = $1 FOR UPDATE
	`, offerID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("payment for offer %s: %w", offerID, apperrors.ErrNotFound)
		}
		return false, err
	}

	if delta.Status != nil {
		if *delta.Status == current {
			return false, nil
		}
		if !models.IsValidPaymentTransition(current, *delta.Status) {
			return false, fmt.Errorf("payment status %s -> %s: %w", current, *delta.Status, apperrors.ErrInvalidTransition)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE offer_payments SET
			gateway_reference = COALESCE($1, gateway_reference),
			status = COALESCE($2, status),
			method = COALESCE($3, method),
			completed_at = COALESCE($4, completed_at)
		WHERE offer_id = $5
	`, delta.GatewayReference, delta.Status, delta.Method, delta.CompletedAt, offerID); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *OfferRepo) GetPayment(ctx context.Context, offerID uuid.UUID) (*models.OfferPayment, error) {
	var p models.OfferPayment
	err := r.pool.QueryRow(ctx, `
		SELECT id, offer_id, gateway_reference, status, amount, currency, method, completed_at
		FROM offer_payments WHERE offer_id = $1
	`, offerID).Scan(&p.ID, &p.OfferID, &p.GatewayReference, &p.Status, &p.Amount, &p.Currency, &p.Method, &p.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment for offer %s: %w", offerID, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

// GetByGatewayReference correlates an inbound gateway callback to its offer.
func (r *OfferRepo) GetByGatewayReference(ctx context.Context, ref string) (*models.Offer, error) {
	var o models.Offer
	err := r.pool.QueryRow(ctx, `
		SELECT o.id, o.property_id, o.buyer_id, o.status, o.amount, o.terms, o.message,
		       o.expires_at, o.created_at, o.updated_at
		FROM offers o
		JOIN offer_payments op ON op.offer_id = o.id
		WHERE op.gateway_reference = $1
	`, ref).Scan(&o.ID, &o.PropertyID, &o.BuyerID, &o.Status, &o.Amount, &o.Terms, &o.Message,
		&o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("gateway reference %s: %w", ref, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &o, nil
}

// FindStalledProcessing returns offers whose capture has been in processing
// longer than cutoff, for the reconciliation job. Rows without a gateway
// reference are included: those are captures whose initiating call timed out
// before the reference arrived.
func (r *OfferRepo) FindStalledProcessing(ctx context.Context, cutoff time.Time, limit int) ([]models.OfferPayment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT op.id, op.offer_id, op.gateway_reference, op.status, op.amount, op.currency, op.method, op.completed_at
		FROM offer_payments op
		JOIN offers o ON o.id = op.offer_id
		WHERE op.status = $1 AND o.status = $2 AND o.updated_at < $3
		LIMIT $4
	`, models.PaymentStatusProcessing, models.OfferStatusAccepted, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.OfferPayment
	for rows.Next() {
		var p models.OfferPayment
		if err := rows.Scan(&p.ID, &p.OfferID, &p.GatewayReference, &p.Status, &p.Amount, &p.Currency, &p.Method, &p.CompletedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ---- Documents ----

func (r *OfferRepo) AddDocument(ctx context.Context, d *models.OfferDocument) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO offer_documents (offer_id, name, url)
		VALUES ($1, $2, $3)
		RETURNING id, uploaded_at
	`, d.OfferID, d.Name, d.URL).Scan(&d.ID, &d.UploadedAt)
}

func (r *OfferRepo) ListDocuments(ctx context.Context, offerID uuid.UUID) ([]models.OfferDocument, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, offer_id, name, url, uploaded_at
		FROM offer_documents WHERE offer_id = $1 ORDER BY uploaded_at ASC
	`, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []models.OfferDocument
	for rows.Next() {
		var d models.OfferDocument
		if err := rows.Scan(&d.ID, &d.OfferID, &d.Name, &d.URL, &d.UploadedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
