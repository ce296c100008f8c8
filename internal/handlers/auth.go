package handlers

import (
	"errors"

	"gatepay/internal/logging"
	"gatepay/internal/middleware"
	"gatepay/internal/services/auth"
	"gatepay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService auth.Service
}

func NewAuthHandler(authService auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// IssueToken exchanges API client credentials for a bearer token.
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	var input struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.ClientID == "" || input.ClientSecret == "" {
		return response.BadRequest(c, "client_id and client_secret are required")
	}

	tok, err := h.authService.Issue(c.UserContext(), input.ClientID, input.ClientSecret)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return response.Error(c, fiber.StatusUnauthorized, "invalid credentials")
		}
		logging.FromContext(c.UserContext()).Error("issue token", zap.Error(err))
		return response.ServerError(c, "Failed to issue token")
	}
	return c.JSON(tok)
}

// RevokeTokens invalidates every token of the calling client.
func (h *AuthHandler) RevokeTokens(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}
	if err := h.authService.Revoke(c.UserContext(), claims.ClientID); err != nil {
		logging.FromContext(c.UserContext()).Error("revoke tokens", zap.Error(err))
		return response.ServerError(c, "Failed to revoke tokens")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
