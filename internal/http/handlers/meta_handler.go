package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/property-marketplace/backend/internal/http/dto"
	"github.com/property-marketplace/backend/internal/models"
)

type MetaHandler struct{}

func NewMetaHandler() *MetaHandler {
	return &MetaHandler{}
}

type MetaCurrency struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var supportedCurrencies = []MetaCurrency{
	{ID: "USD", Label: "US Dollar"},
	{ID: "EUR", Label: "Euro"},
	{ID: "GBP", Label: "Pound Sterling"},
	{ID: "CHF", Label: "Swiss Franc"},
	{ID: "AED", Label: "UAE Dirham"},
}

var offerStatuses = []string{
	models.OfferStatusPending,
	models.OfferStatusAccepted,
	models.OfferStatusRejected,
	models.OfferStatusWithdrawn,
	models.OfferStatusCompleted,
	models.OfferStatusExpired,
}

func (h *MetaHandler) GetCurrencies(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: supportedCurrencies})
}

func (h *MetaHandler) GetOfferStatuses(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: offerStatuses})
}
