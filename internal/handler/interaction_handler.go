package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"flickfinder-backend/internal/models"
	"flickfinder-backend/internal/service"
)

// InteractionHandler handles swipe reactions, the watchlist page and
// filter preferences.
type InteractionHandler struct {
	recorder    *service.Recorder
	recommender *service.Recommender
}

// NewInteractionHandler creates an InteractionHandler.
func NewInteractionHandler(recorder *service.Recorder, recommender *service.Recommender) *InteractionHandler {
	return &InteractionHandler{recorder: recorder, recommender: recommender}
}

// Record handles POST /api/v1/interactions. After recording, the next
// recommendation is served in the same response so the UI can advance the
// card stack in one round trip.
func (h *InteractionHandler) Record(c fiber.Ctx) error {
	uid := userID(c)

	var req models.RecordInteractionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	inter, err := h.recorder.Record(c.Context(), uid, req.MovieID, req.Kind)
	if err != nil {
		return respondError(c, err)
	}

	next, err := h.recommender.NextMovie(c.Context(), uid)
	if err != nil {
		slog.Error("failed to advance recommendations", "user_id", uid, "error", err)
		next = nil
	}

	return c.JSON(fiber.Map{
		"status":      "recorded",
		"interaction": inter,
		"next_movie":  next,
	})
}

// RemoveFromWatchlist handles POST /api/v1/watchlist/remove. Removing an
// absent entry is reported as not_found but still success-shaped, so the
// UI treats both outcomes as a completed removal.
func (h *InteractionHandler) RemoveFromWatchlist(c fiber.Ctx) error {
	uid := userID(c)

	var req models.RemoveWatchlistRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.MovieID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid movie ID"})
	}

	found, err := h.recorder.RemoveFromWatchlist(c.Context(), uid, req.MovieID)
	if err != nil {
		return respondError(c, err)
	}

	status := "success"
	if !found {
		status = "not_found"
	}
	return c.JSON(fiber.Map{"status": status})
}

// Watchlist handles GET /api/v1/watchlist.
func (h *InteractionHandler) Watchlist(c fiber.Ctx) error {
	resp, err := h.recorder.Watchlist(c.Context(), userID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// SaveFilters handles POST /api/v1/filters. A successful save invalidates
// the recommendation cache and returns the first movie matching the new
// filters.
func (h *InteractionHandler) SaveFilters(c fiber.Ctx) error {
	uid := userID(c)

	var req models.SaveFiltersRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	filters, next, err := h.recommender.SaveFilters(c.Context(), uid, req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"status":     "saved",
		"filters":    filters,
		"next_movie": next,
	})
}

// GetFilters handles GET /api/v1/filters.
func (h *InteractionHandler) GetFilters(c fiber.Ctx) error {
	filters, err := h.recommender.GetFilters(userID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(filters)
}
