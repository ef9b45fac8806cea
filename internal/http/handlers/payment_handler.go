package handlers

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/property-marketplace/backend/internal/config"
	"github.com/property-marketplace/backend/internal/http/dto"
	"github.com/property-marketplace/backend/internal/services"
	"go.uber.org/zap"
)

// PaymentHandler receives capture status webhooks from the payment gateway.
type PaymentHandler struct {
	offerService *services.OfferService
	cfg          *config.Config
	log          *zap.Logger
}

func NewPaymentHandler(offerService *services.OfferService, cfg *config.Config, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{offerService: offerService, cfg: cfg, log: log}
}

func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	secret := c.Get("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.cfg.GatewayWebhookSecret)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid webhook secret"})
	}

	var req dto.PaymentWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.GatewayReference == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "gateway_reference is required"})
	}
	offerID, _ := uuid.Parse(req.OfferID) // zero when absent

	if err := h.offerService.HandlePaymentCallback(c.Context(), req.GatewayReference, offerID, req.Status); err != nil {
		h.log.Warn("webhook callback failed",
			zap.String("gateway_reference", req.GatewayReference),
			zap.Error(err))
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}
