package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/property-marketplace/backend/internal/http/dto"
	"github.com/property-marketplace/backend/internal/middleware"
	"github.com/property-marketplace/backend/internal/repositories"
	"github.com/property-marketplace/backend/internal/services"
	"go.uber.org/zap"
)

type PropertyHandler struct {
	propertyService *services.PropertyService
	log             *zap.Logger
}

func NewPropertyHandler(propertyService *services.PropertyService, log *zap.Logger) *PropertyHandler {
	return &PropertyHandler{propertyService: propertyService, log: log}
}

func (h *PropertyHandler) CreateProperty(c *fiber.Ctx) error {
	var req dto.CreatePropertyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	agentID := middleware.GetUserID(c)
	property, err := h.propertyService.Create(c.Context(), agentID, services.PropertyInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Price:       req.Price,
		Currency:    req.Currency,
	})
	if err != nil {
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: property})
}

func (h *PropertyHandler) UpdateProperty(c *fiber.Ctx) error {
	propertyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid property id"})
	}

	var req dto.UpdatePropertyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	agentID := middleware.GetUserID(c)
	property, err := h.propertyService.Update(c.Context(), propertyID, agentID, services.PropertyInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Price:       req.Price,
		Currency:    req.Currency,
	}, req.Status)
	if err != nil {
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: property})
}

func (h *PropertyHandler) GetProperty(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid property id"})
	}

	property, err := h.propertyService.Get(c.Context(), id)
	if err != nil {
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: "property not found"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: property})
}

func (h *PropertyHandler) ListProperties(c *fiber.Ctx) error {
	filter := repositories.PropertyFilter{Limit: 20}

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := c.Query("agent_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			filter.AgentID = &id
		}
	}

	properties, err := h.propertyService.List(c.Context(), filter)
	if err != nil {
		h.log.Error("list properties failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: properties})
}

func (h *PropertyHandler) GetRating(c *fiber.Ctx) error {
	propertyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid property id"})
	}

	rating, err := h.propertyService.Rating(c.Context(), propertyID)
	if err != nil {
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: rating})
}

func (h *PropertyHandler) CreateReview(c *fiber.Ctx) error {
	propertyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid property id"})
	}

	var req dto.CreateReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	authorID := middleware.GetUserID(c)
	review, err := h.propertyService.CreateReview(c.Context(), propertyID, authorID, req.Rating, req.Comment)
	if err != nil {
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: review})
}

func (h *PropertyHandler) ListReviews(c *fiber.Ctx) error {
	propertyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid property id"})
	}

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}

	reviews, err := h.propertyService.ListReviews(c.Context(), propertyID, limit, offset)
	if err != nil {
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: reviews})
}
