package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"flickfinder-backend/internal/service"
)

// MovieHandler handles recommendation serving, movie details, search and
// the genre list.
type MovieHandler struct {
	recommender *service.Recommender
	movies      *service.Movies
}

// NewMovieHandler creates a MovieHandler.
func NewMovieHandler(recommender *service.Recommender, movies *service.Movies) *MovieHandler {
	return &MovieHandler{recommender: recommender, movies: movies}
}

// Health returns service health status.
func (h *MovieHandler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "flickfinder-backend",
	})
}

// NextMovie handles GET /api/v1/movies/next. An exhausted or unreachable
// catalog is a normal "no movie" response, not an error.
func (h *MovieHandler) NextMovie(c fiber.Ctx) error {
	detail, err := h.recommender.NextMovie(c.Context(), userID(c))
	if err != nil {
		return respondError(c, err)
	}
	if detail == nil {
		return c.JSON(fiber.Map{
			"movie":   nil,
			"message": "no movies match your filters right now",
		})
	}
	return c.JSON(fiber.Map{"movie": detail})
}

// GetMovie handles GET /api/v1/movies/:id.
func (h *MovieHandler) GetMovie(c fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid movie ID"})
	}

	detail, err := h.movies.GetMovie(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

// Search handles GET /api/v1/movies/search.
func (h *MovieHandler) Search(c fiber.Ctx) error {
	query := c.Query("query")
	page := fiber.Query(c, "page", 1)

	result, err := h.movies.Search(c.Context(), query, page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// Genres handles GET /api/v1/genres.
func (h *MovieHandler) Genres(c fiber.Ctx) error {
	genres, err := h.movies.Genres(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"genres": genres})
}
