package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/property-marketplace/backend/internal/apperrors"
	"github.com/property-marketplace/backend/internal/config"
	"github.com/property-marketplace/backend/internal/db"
	"github.com/property-marketplace/backend/internal/events"
	"github.com/property-marketplace/backend/internal/queue"
	"github.com/property-marketplace/backend/internal/repositories"
	"github.com/property-marketplace/backend/internal/services"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	offerRepo := repositories.NewOfferRepo(pool)
	propertyRepo := repositories.NewPropertyRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	gateway := services.NewGatewayClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayTimeout, log)
	offerService := services.NewOfferService(offerRepo, propertyRepo, auditRepo, gateway, publisher, cfg, log)
	sweeper := services.NewSweeper(offerRepo, publisher, cfg.SweepBatchSize, log)

	log.Info("worker started")

	// Scheduled jobs
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", cfg.SweepInterval), func() {
		if _, err := sweeper.Sweep(ctx, time.Now().UTC()); err != nil {
			log.Error("expiration sweep failed", zap.Error(err))
		}
	}); err != nil {
		log.Fatal("failed to schedule sweep", zap.Error(err))
	}
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", cfg.ReconcileInterval), func() {
		if err := offerService.ReconcileStalledCaptures(ctx, cfg.SweepBatchSize); err != nil {
			log.Error("capture reconciliation failed", zap.Error(err))
		}
	}); err != nil {
		log.Fatal("failed to schedule reconciliation", zap.Error(err))
	}
	c.Start()
	defer c.Stop()

	// Gateway callback queue
	consumer, err := queue.NewConsumer(cfg.AMQPURL, cfg.CallbackQueue, log)
	if err != nil {
		log.Fatal("failed to connect to rabbitmq", zap.Error(err))
	}
	defer consumer.Close()

	go func() {
		err := consumer.Consume(ctx, func(ctx context.Context, upd queue.CaptureUpdate) error {
			offerID, _ := uuid.Parse(upd.OfferID) // zero when absent
			err := offerService.HandlePaymentCallback(ctx, upd.GatewayReference, offerID, upd.Status)
			if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrInvalidTransition) {
				// Requeueing cannot fix these; drop the message.
				log.Warn("dropping unprocessable capture update",
					zap.String("gateway_reference", upd.GatewayReference),
					zap.String("status", upd.Status),
					zap.Error(err))
				return nil
			}
			return err
		})
		if err != nil && ctx.Err() == nil {
			log.Error("queue consumer stopped", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutting down worker")
		cancel()
	case <-ctx.Done():
	}
}
