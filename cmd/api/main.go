package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/property-marketplace/backend/internal/config"
	"github.com/property-marketplace/backend/internal/db"
	"github.com/property-marketplace/backend/internal/events"
	apphttp "github.com/property-marketplace/backend/internal/http"
	"github.com/property-marketplace/backend/internal/http/handlers"
	"github.com/property-marketplace/backend/internal/repositories"
	"github.com/property-marketplace/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	propertyRepo := repositories.NewPropertyRepo(pool)
	offerRepo := repositories.NewOfferRepo(pool)
	reviewRepo := repositories.NewReviewRepo(pool)
	wishlistRepo := repositories.NewWishlistRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	gateway := services.NewGatewayClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayTimeout, log)
	offerService := services.NewOfferService(offerRepo, propertyRepo, auditRepo, gateway, publisher, cfg, log)
	propertyService := services.NewPropertyService(propertyRepo, reviewRepo, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, cfg, log)
	userHandler := handlers.NewUserHandler(userRepo, log)
	propertyHandler := handlers.NewPropertyHandler(propertyService, log)
	offerHandler := handlers.NewOfferHandler(offerService, log)
	wishlistHandler := handlers.NewWishlistHandler(wishlistRepo, log)
	paymentHandler := handlers.NewPaymentHandler(offerService, cfg, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, userHandler, propertyHandler, offerHandler, wishlistHandler, paymentHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
