package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/property-marketplace/backend/internal/apperrors"
	"github.com/property-marketplace/backend/internal/events"
	"github.com/property-marketplace/backend/internal/models"
	"go.uber.org/zap"
)

// ExpirableStore is the slice of the offer store the sweeper needs.
type ExpirableStore interface {
	FindExpirable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next string) error
}

// Sweeper expires stale pending offers. Each transition is an individual CAS,
// so a pass is safe to run concurrently with user actions and with itself.
type Sweeper struct {
	offers    ExpirableStore
	publisher events.Publisher
	batchSize int
	log       *zap.Logger
}

func NewSweeper(offers ExpirableStore, publisher events.Publisher, batchSize int, log *zap.Logger) *Sweeper {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Sweeper{
		offers:    offers,
		publisher: publisher,
		batchSize: batchSize,
		log:       log,
	}
}

// Sweep runs one pass: every pending offer past its expiry is moved to
// expired. An offer accepted or withdrawn between the query and the update
// loses the CAS with a conflict; that is expected under races and the id is
// simply skipped. Returns the number of offers expired.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.offers.FindExpirable(ctx, now, s.batchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		err := s.offers.UpdateStatus(ctx, id, models.OfferStatusPending, models.OfferStatusExpired)
		switch {
		case err == nil:
			expired++
			_ = s.publisher.Publish(ctx, events.StreamOffers, events.Event{
				Type: events.EventOfferStatusChanged,
				Payload: map[string]any{
					"offer_id":   id.String(),
					"old_status": models.OfferStatusPending,
					"new_status": models.OfferStatusExpired,
				},
			})
		case errors.Is(err, apperrors.ErrConflict):
			// Lost the race to a concurrent accept/reject/withdraw.
			s.log.Debug("skipping concurrently transitioned offer", zap.String("offer_id", id.String()))
		case errors.Is(err, apperrors.ErrNotFound):
			s.log.Warn("expirable offer vanished", zap.String("offer_id", id.String()))
		default:
			return expired, err
		}
	}

	if expired > 0 {
		s.log.Info("expired stale offers", zap.Int("count", expired))
	}
	return expired, nil
}
