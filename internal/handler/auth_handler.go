package handler

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v3"

	"flickfinder-backend/internal/models"
	"flickfinder-backend/internal/service"
)

// AuthHandler handles signup, login and the bearer-token middleware.
type AuthHandler struct {
	auth *service.Auth
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth *service.Auth) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Signup handles POST /api/v1/auth/signup.
func (h *AuthHandler) Signup(c fiber.Ctx) error {
	var req models.SignupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	resp, err := h.auth.Signup(req)
	if err != nil {
		return respondError(c, err)
	}

	slog.Info("user signed up", "user_id", resp.User.ID, "username", resp.User.Username)
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	resp, err := h.auth.Login(req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid username or password"})
		}
		return respondError(c, err)
	}

	return c.JSON(resp)
}

// Middleware validates the Authorization bearer token and stores the user
// ID in request locals for downstream handlers.
func (h *AuthHandler) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "missing Authorization header"})
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error: "invalid Authorization header format, expected 'Bearer <token>'",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		id, err := h.auth.ValidateToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid or expired token"})
		}

		c.Locals("user_id", id)
		return c.Next()
	}
}
