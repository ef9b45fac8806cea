package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/property-marketplace/backend/internal/apperrors"
	"github.com/property-marketplace/backend/internal/db"
	"github.com/property-marketplace/backend/internal/models"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
)

// startPostgres boots a throwaway Postgres container and applies the
// migrations. Tests that need it are skipped when Docker is not available.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	// testcontainers panics (rather than returning an error) when no Docker
	// host can be found at all; fold that into the same skip path.
	pgContainer, err := func() (c *postgres.PostgresContainer, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("testcontainers panic: %v", r)
			}
		}()
		return postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("marketplace"),
			postgres.WithUsername("marketplace"),
			postgres.WithPassword("marketplace"),
			postgres.BasicWaitStrategies(),
		)
	}()
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.RunMigrations(ctx, pool, "../../migrations", zap.NewNop()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return pool
}

type repoFixture struct {
	pool       *pgxpool.Pool
	offers     *OfferRepo
	buyerID    uuid.UUID
	agentID    uuid.UUID
	propertyID uuid.UUID
}

func newRepoFixture(t *testing.T, pool *pgxpool.Pool) *repoFixture {
	t.Helper()
	ctx := context.Background()
	f := &repoFixture{pool: pool, offers: NewOfferRepo(pool)}

	err := pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role) VALUES ($1, 'x', 'buyer') RETURNING id
	`, uuid.NewString()+"@test.local").Scan(&f.buyerID)
	if err != nil {
		t.Fatalf("insert buyer: %v", err)
	}
	err = pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role) VALUES ($1, 'x', 'agent') RETURNING id
	`, uuid.NewString()+"@test.local").Scan(&f.agentID)
	if err != nil {
		t.Fatalf("insert agent: %v", err)
	}
	err = pool.QueryRow(ctx, `
		INSERT INTO properties (agent_id, title, price, currency) VALUES ($1, 'Test Flat', 250000, 'USD') RETURNING id
	`, f.agentID).Scan(&f.propertyID)
	if err != nil {
		t.Fatalf("insert property: %v", err)
	}
	return f
}

func (f *repoFixture) createOffer(t *testing.T, expiresAt time.Time) *models.Offer {
	t.Helper()
	o := &models.Offer{
		PropertyID: f.propertyID,
		BuyerID:    f.buyerID,
		Status:     models.OfferStatusPending,
		Amount:     "240000",
		Terms:      "30 day closing",
		ExpiresAt:  expiresAt,
	}
	if err := f.offers.Create(context.Background(), o, "USD"); err != nil {
		t.Fatalf("create offer: %v", err)
	}
	return o
}

func TestOfferRepo(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	t.Run("pending uniqueness", func(t *testing.T) {
		f := newRepoFixture(t, pool)
		f.createOffer(t, time.Now().Add(time.Hour))

		dup := &models.Offer{
			PropertyID: f.propertyID,
			BuyerID:    f.buyerID,
			Status:     models.OfferStatusPending,
			Amount:     "245000",
			Terms:      "45 day closing",
			ExpiresAt:  time.Now().Add(time.Hour),
		}
		err := f.offers.Create(ctx, dup, "USD")
		if !errors.Is(err, apperrors.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}

		// Once the first offer leaves pending a new one is allowed.
		first, _ := f.offers.List(ctx, OfferFilter{PropertyID: &f.propertyID, BuyerID: &f.buyerID})
		if err := f.offers.UpdateStatus(ctx, first[0].ID, models.OfferStatusPending, models.OfferStatusWithdrawn); err != nil {
			t.Fatalf("withdraw: %v", err)
		}
		if err := f.offers.Create(ctx, dup, "USD"); err != nil {
			t.Fatalf("resubmit after withdraw: %v", err)
		}
	})

	t.Run("concurrent submissions yield one pending offer", func(t *testing.T) {
		f := newRepoFixture(t, pool)

		const n = 8
		var wg sync.WaitGroup
		var successes, conflicts atomic.Int32
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				o := &models.Offer{
					PropertyID: f.propertyID,
					BuyerID:    f.buyerID,
					Status:     models.OfferStatusPending,
					Amount:     "240000",
					Terms:      "30 day closing",
					ExpiresAt:  time.Now().Add(time.Hour),
				}
				switch err := f.offers.Create(ctx, o, "USD"); {
				case err == nil:
					successes.Add(1)
				case errors.Is(err, apperrors.ErrConflict):
					conflicts.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		if successes.Load() != 1 || conflicts.Load() != n-1 {
			t.Fatalf("successes=%d conflicts=%d, want 1 and %d", successes.Load(), conflicts.Load(), n-1)
		}

		var pending int
		err := pool.QueryRow(ctx, `
			SELECT COUNT(*) FROM offers WHERE property_id = $1 AND buyer_id = $2 AND status = 'pending'
		`, f.propertyID, f.buyerID).Scan(&pending)
		if err != nil {
			t.Fatalf("count pending: %v", err)
		}
		if pending != 1 {
			t.Fatalf("pending offers = %d, want 1", pending)
		}
	})

	t.Run("unknown property maps to not found", func(t *testing.T) {
		f := newRepoFixture(t, pool)
		o := &models.Offer{
			PropertyID: uuid.New(),
			BuyerID:    f.buyerID,
			Status:     models.OfferStatusPending,
			Amount:     "100",
			Terms:      "t",
			ExpiresAt:  time.Now().Add(time.Hour),
		}
		if err := f.offers.Create(ctx, o, "USD"); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("status CAS", func(t *testing.T) {
		f := newRepoFixture(t, pool)
		o := f.createOffer(t, time.Now().Add(time.Hour))

		if err := f.offers.UpdateStatus(ctx, o.ID, models.OfferStatusPending, models.OfferStatusAccepted); err != nil {
			t.Fatalf("accept: %v", err)
		}

		// Second writer loses the race.
		err := f.offers.UpdateStatus(ctx, o.ID, models.OfferStatusPending, models.OfferStatusExpired)
		if !errors.Is(err, apperrors.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}

		err = f.offers.UpdateStatus(ctx, uuid.New(), models.OfferStatusPending, models.OfferStatusExpired)
		if !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("find expirable", func(t *testing.T) {
		f := newRepoFixture(t, pool)
		expired := f.createOffer(t, time.Now().Add(-time.Hour))

		ids, err := f.offers.FindExpirable(ctx, time.Now(), 50)
		if err != nil {
			t.Fatalf("FindExpirable: %v", err)
		}
		found := false
		for _, id := range ids {
			if id == expired.ID {
				found = true
			}
		}
		if !found {
			t.Fatal("expired pending offer not returned")
		}

		// A live offer is not expirable.
		if err := f.offers.UpdateStatus(ctx, expired.ID, models.OfferStatusPending, models.OfferStatusExpired); err != nil {
			t.Fatalf("expire: %v", err)
		}
		ids, _ = f.offers.FindExpirable(ctx, time.Now(), 50)
		for _, id := range ids {
			if id == expired.ID {
				t.Fatal("already-expired offer returned again")
			}
		}
	})

	t.Run("payment monotonicity", func(t *testing.T) {
		f := newRepoFixture(t, pool)
		o := f.createOffer(t, time.Now().Add(time.Hour))

		ref := "cap_" + uuid.NewString()
		processing := models.PaymentStatusProcessing
		applied, err := f.offers.UpdatePayment(ctx, o.ID, PaymentDelta{GatewayReference: &ref, Status: &processing})
		if err != nil || !applied {
			t.Fatalf("to processing: applied=%v err=%v", applied, err)
		}

		// Same status again: idempotent no-op.
		applied, err = f.offers.UpdatePayment(ctx, o.ID, PaymentDelta{Status: &processing})
		if err != nil || applied {
			t.Fatalf("redelivery: applied=%v err=%v", applied, err)
		}

		completed := models.PaymentStatusCompleted
		now := time.Now().UTC()
		applied, err = f.offers.UpdatePayment(ctx, o.ID, PaymentDelta{Status: &completed, CompletedAt: &now})
		if err != nil || !applied {
			t.Fatalf("to completed: applied=%v err=%v", applied, err)
		}

		// Regression is refused.
		_, err = f.offers.UpdatePayment(ctx, o.ID, PaymentDelta{Status: &processing})
		if !errors.Is(err, apperrors.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}

		p, err := f.offers.GetPayment(ctx, o.ID)
		if err != nil {
			t.Fatalf("GetPayment: %v", err)
		}
		if p.Status != models.PaymentStatusCompleted || p.CompletedAt == nil {
			t.Fatalf("payment = %+v, want completed with timestamp", p)
		}

		got, err := f.offers.GetByGatewayReference(ctx, ref)
		if err != nil {
			t.Fatalf("GetByGatewayReference: %v", err)
		}
		if got.ID != o.ID {
			t.Fatalf("resolved offer %s, want %s", got.ID, o.ID)
		}
	})

	t.Run("documents", func(t *testing.T) {
		f := newRepoFixture(t, pool)
		o := f.createOffer(t, time.Now().Add(time.Hour))

		d := &models.OfferDocument{OfferID: o.ID, Name: "proof_of_funds", URL: "https://example.com/p.pdf"}
		if err := f.offers.AddDocument(ctx, d); err != nil {
			t.Fatalf("AddDocument: %v", err)
		}

		docs, err := f.offers.ListDocuments(ctx, o.ID)
		if err != nil {
			t.Fatalf("ListDocuments: %v", err)
		}
		if len(docs) != 1 || docs[0].Name != "proof_of_funds" {
			t.Fatalf("docs = %+v", docs)
		}
	})
}
