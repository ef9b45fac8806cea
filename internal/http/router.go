package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/property-marketplace/backend/internal/config"
	"github.com/property-marketplace/backend/internal/http/handlers"
	"github.com/property-marketplace/backend/internal/middleware"
	"github.com/property-marketplace/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	propertyHandler *handlers.PropertyHandler,
	offerHandler *handlers.OfferHandler,
	wishlistHandler *handlers.WishlistHandler,
	paymentHandler *handlers.PaymentHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	// Gateway webhook (authenticated by shared secret, not JWT)
	api.Post("/payments/webhook", paymentHandler.Webhook)

	// Rate-limited public endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMin, time.Minute))

	// Meta (public, no auth required)
	metaHandler := handlers.NewMetaHandler()
	api.Get("/meta/currencies", metaHandler.GetCurrencies)
	api.Get("/meta/offer-statuses", metaHandler.GetOfferStatuses)

	// Public property browsing
	api.Get("/properties", propertyHandler.ListProperties)
	api.Get("/properties/:id", propertyHandler.GetProperty)
	api.Get("/properties/:id/rating", propertyHandler.GetRating)
	api.Get("/properties/:id/reviews", propertyHandler.ListReviews)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// User
	protected.Get("/me", userHandler.GetMe)
	protected.Post("/me/ping", userHandler.Ping)

	// Properties (agent side)
	protected.Post("/properties", middleware.RequireRole(models.RoleAgent), propertyHandler.CreateProperty)
	protected.Put("/properties/:id", middleware.RequireRole(models.RoleAgent), propertyHandler.UpdateProperty)

	// Reviews
	protected.Post("/properties/:id/reviews", propertyHandler.CreateReview)

	// Wishlist
	protected.Get("/wishlist", wishlistHandler.List)
	protected.Put("/wishlist/:id", wishlistHandler.Add)
	protected.Delete("/wishlist/:id", wishlistHandler.Remove)

	// Offers
	protected.Post("/offers", offerHandler.SubmitOffer)
	protected.Get("/offers", offerHandler.ListOffers)
	protected.Get("/offers/:id", offerHandler.GetOffer)
	protected.Post("/offers/:id/accept", offerHandler.AcceptOffer)
	protected.Post("/offers/:id/reject", offerHandler.RejectOffer)
	protected.Post("/offers/:id/withdraw", offerHandler.WithdrawOffer)
	protected.Get("/offers/:id/payment", offerHandler.GetPayment)
	protected.Post("/offers/:id/documents", offerHandler.AttachDocument)
	protected.Get("/offers/:id/documents", offerHandler.ListDocuments)
	protected.Get("/offers/:id/events", offerHandler.GetOfferEvents)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
