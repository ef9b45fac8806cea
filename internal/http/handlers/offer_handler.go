package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/property-marketplace/backend/internal/apperrors"
	"github.com/property-marketplace/backend/internal/http/dto"
	"github.com/property-marketplace/backend/internal/middleware"
	"github.com/property-marketplace/backend/internal/models"
	"github.com/property-marketplace/backend/internal/repositories"
	"github.com/property-marketplace/backend/internal/services"
	"go.uber.org/zap"
)

type OfferHandler struct {
	offerService *services.OfferService
	log          *zap.Logger
}

func NewOfferHandler(offerService *services.OfferService, log *zap.Logger) *OfferHandler {
	return &OfferHandler{offerService: offerService, log: log}
}

func (h *OfferHandler) SubmitOffer(c *fiber.Ctx) error {
	var req dto.SubmitOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	propertyID, err := uuid.Parse(req.PropertyID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid property_id"})
	}

	docs := make([]services.DocumentInput, 0, len(req.Documents))
	for _, d := range req.Documents {
		docs = append(docs, services.DocumentInput{Name: d.Name, URL: d.URL})
	}

	buyerID := middleware.GetUserID(c)
	offer, err := h.offerService.Submit(c.Context(), buyerID, propertyID, req.Amount, req.Terms, req.Message, docs)
	if err != nil {
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: offer})
}

func (h *OfferHandler) GetOffer(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid offer id"})
	}

	offer, err := h.offerService.Get(c.Context(), id)
	if err != nil {
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: "offer not found"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: offer})
}

func (h *OfferHandler) ListOffers(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	filter := repositories.OfferFilter{
		Limit:  20,
		Offset: 0,
	}

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
	if v := c.Query("property_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			filter.PropertyID = &id
		}
	}

	// Buyers see their own offers, agents the offers on their listings.
	if middleware.GetUserRole(c) == models.RoleAgent {
		filter.AgentID = &userID
	} else {
		filter.BuyerID = &userID
	}

	offers, err := h.offerService.List(c.Context(), filter)
	if err != nil {
		h.log.Error("list offers failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: offers})
}

func (h *OfferHandler) respond(c *fiber.Ctx, decision string) error {
	offerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid offer id"})
	}

	agentID := middleware.GetUserID(c)
	offer, err := h.offerService.Respond(c.Context(), offerID, agentID, decision)
	if err != nil {
		// Acceptance persists even when the capture call fails; report both.
		if offer != nil && (errors.Is(err, apperrors.ErrGatewayRejected) || errors.Is(err, apperrors.ErrGatewayUnavailable)) {
			return c.Status(statusFromError(err)).JSON(dto.SuccessResponse{
				OK:   true,
				Data: dto.RespondResponse{Offer: offer, PaymentError: err.Error()},
			})
		}
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.RespondResponse{Offer: offer}})
}

func (h *OfferHandler) AcceptOffer(c *fiber.Ctx) error {
	return h.respond(c, services.DecisionAccept)
}

func (h *OfferHandler) RejectOffer(c *fiber.Ctx) error {
	return h.respond(c, services.DecisionReject)
}

func (h *OfferHandler) WithdrawOffer(c *fiber.Ctx) error {
	offerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid offer id"})
	}

	buyerID := middleware.GetUserID(c)
	offer, err := h.offerService.Withdraw(c.Context(), offerID, buyerID)
	if err != nil {
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: offer})
}

func (h *OfferHandler) GetPayment(c *fiber.Ctx) error {
	offerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid offer id"})
	}

	payment, err := h.offerService.GetPayment(c.Context(), offerID)
	if err != nil {
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: payment})
}

func (h *OfferHandler) AttachDocument(c *fiber.Ctx) error {
	offerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid offer id"})
	}

	var req dto.OfferDocumentRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" || req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "document name and url are required"})
	}

	buyerID := middleware.GetUserID(c)
	doc, err := h.offerService.AttachDocument(c.Context(), offerID, buyerID, services.DocumentInput{Name: req.Name, URL: req.URL})
	if err != nil {
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: doc})
}

func (h *OfferHandler) GetOfferEvents(c *fiber.Ctx) error {
	offerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid offer id"})
	}

	limit, offset := 50, 0
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

	entries, err := h.offerService.Events(c.Context(), offerID, limit, offset)
	if err != nil {
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

func (h *OfferHandler) ListDocuments(c *fiber.Ctx) error {
	offerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid offer id"})
	}

	docs, err := h.offerService.ListDocuments(c.Context(), offerID)
	if err != nil {
		return c.Status(statusFromError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: docs})
}
