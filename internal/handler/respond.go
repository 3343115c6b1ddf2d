package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"flickfinder-backend/internal/service"
	"flickfinder-backend/internal/tmdb"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// respondError maps service errors onto HTTP statuses: validation problems
// carry field reasons, missing resources map to 404, catalog failures to
// 502, everything else to a generic 500.
func respondError(c fiber.Ctx, err error) error {
	if ve, ok := service.AsValidation(err); ok {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Error:  "validation failed",
			Fields: ve.Fields,
		})
	}
	if errors.Is(err, service.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "not found"})
	}
	if errors.Is(err, tmdb.ErrService) {
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "movie catalog unavailable"})
	}

	slog.Error("request failed", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
}

// userID returns the authenticated user's ID placed by the auth middleware.
func userID(c fiber.Ctx) int {
	if id, ok := c.Locals("user_id").(int); ok {
		return id
	}
	return 0
}
