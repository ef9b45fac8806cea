package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/property-marketplace/backend/internal/apperrors"
	"github.com/property-marketplace/backend/internal/models"
	"go.uber.org/zap"
)

type fakeExpirableStore struct {
	ids      []uuid.UUID
	statuses map[uuid.UUID]string
	findErr  error
}

func (f *fakeExpirableStore) FindExpirable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if limit < len(f.ids) {
		return f.ids[:limit], nil
	}
	return f.ids, nil
}

func (f *fakeExpirableStore) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next string) error {
	status, ok := f.statuses[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if status != expected {
		return apperrors.ErrConflict
	}
	f.statuses[id] = next
	return nil
}

func TestSweepExpiresPendingOffers(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	store := &fakeExpirableStore{
		ids: []uuid.UUID{a, b},
		statuses: map[uuid.UUID]string{
			a: models.OfferStatusPending,
			b: models.OfferStatusPending,
		},
	}
	pub := &fakePublisher{}
	sweeper := NewSweeper(store, pub, 100, zap.NewNop())

	n, err := sweeper.Sweep(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 2 {
		t.Fatalf("expired %d offers, want 2", n)
	}
	for _, id := range []uuid.UUID{a, b} {
		if store.statuses[id] != models.OfferStatusExpired {
			t.Fatalf("offer %s status = %s, want expired", id, store.statuses[id])
		}
	}
	if len(pub.events) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.events))
	}
}

func TestSweepSkipsConcurrentlyTransitionedOffers(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	store := &fakeExpirableStore{
		ids: []uuid.UUID{a, b},
		statuses: map[uuid.UUID]string{
			a: models.OfferStatusAccepted, // raced by an agent accept
			b: models.OfferStatusPending,
		},
	}
	sweeper := NewSweeper(store, &fakePublisher{}, 100, zap.NewNop())

	n, err := sweeper.Sweep(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Sweep must swallow conflicts, got %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d offers, want 1", n)
	}
	if store.statuses[a] != models.OfferStatusAccepted {
		t.Fatal("accepted offer must not be expired")
	}
}

func TestSweepHonorsBatchSize(t *testing.T) {
	store := &fakeExpirableStore{statuses: map[uuid.UUID]string{}}
	for i := 0; i < 5; i++ {
		id := uuid.New()
		store.ids = append(store.ids, id)
		store.statuses[id] = models.OfferStatusPending
	}
	sweeper := NewSweeper(store, &fakePublisher{}, 3, zap.NewNop())

	n, err := sweeper.Sweep(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 3 {
		t.Fatalf("expired %d offers, want 3", n)
	}
}

func TestSweepPropagatesQueryError(t *testing.T) {
	store := &fakeExpirableStore{findErr: errors.New("connection reset")}
	sweeper := NewSweeper(store, &fakePublisher{}, 100, zap.NewNop())

	if _, err := sweeper.Sweep(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error, got nil")
	}
}
