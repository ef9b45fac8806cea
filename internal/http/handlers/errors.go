package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/property-marketplace/backend/internal/apperrors"
)

// statusFromError maps the shared error taxonomy onto HTTP statuses so
// user-actionable failures stay distinguishable from internal ones.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, apperrors.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperrors.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, apperrors.ErrInvalidTransition):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrGatewayRejected):
		return fiber.StatusPaymentRequired
	case errors.Is(err, apperrors.ErrGatewayUnavailable):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusBadRequest
	}
}
