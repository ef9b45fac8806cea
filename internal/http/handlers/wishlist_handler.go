package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/property-marketplace/backend/internal/http/dto"
	"github.com/property-marketplace/backend/internal/middleware"
	"github.com/property-marketplace/backend/internal/repositories"
	"go.uber.org/zap"
)

type WishlistHandler struct {
	wishlists *repositories.WishlistRepo
	log       *zap.Logger
}

func NewWishlistHandler(wishlists *repositories.WishlistRepo, log *zap.Logger) *WishlistHandler {
	return &WishlistHandler{wishlists: wishlists, log: log}
}

func (h *WishlistHandler) Add(c *fiber.Ctx) error {
	propertyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid property id"})
	}

	if err := h.wishlists.Add(c.Context(), middleware.GetUserID(c), propertyID); err != nil {
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true})
}

func (h *WishlistHandler) Remove(c *fiber.Ctx) error {
	propertyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid property id"})
	}

	if err := h.wishlists.Remove(c.Context(), middleware.GetUserID(c), propertyID); err != nil {
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *WishlistHandler) List(c *fiber.Ctx) error {
	properties, err := h.wishlists.ListProperties(c.Context(), middleware.GetUserID(c))
	if err != nil {
		h.log.Error("list wishlist failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: properties})
}
