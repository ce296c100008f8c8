// Package middleware provides HTTP middleware components for the application.
// It includes bearer token authentication, scope checks and request
// logging for the fiber web framework.
package middleware

import (
	"errors"
	"strings"

	"gatepay/internal/logging"
	"gatepay/internal/models"
	"gatepay/internal/services/auth"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const claimsKey = "claims"

// AuthMiddleware handles bearer token validation for API clients.
type AuthMiddleware struct {
	authService auth.Service
}

func NewAuthMiddleware(authService auth.Service) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Handler validates the bearer token and stores the client claims in the
// request context. Revoked tokens and disabled clients are rejected.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	log := logging.FromContext(c.UserContext())

	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims, err := m.authService.Parse(c.UserContext(), tokenString)
	switch {
	case errors.Is(err, auth.ErrTokenRevoked):
		log.Info("revoked token presented", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "token revoked"})
	case errors.Is(err, auth.ErrInvalidToken):
		log.Info("invalid token presented", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	case err != nil:
		log.Error("token validation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "token validation failed"})
	}

	c.Locals(claimsKey, claims)
	c.SetUserContext(logging.ContextWithLogger(c.UserContext(), log.With(zap.String("client_id", claims.ClientID))))
	return c.Next()
}

// RequireScope returns a middleware that checks the client holds scope.
func RequireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := Claims(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}
		if !claims.HasScope(scope) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Insufficient scope"})
		}
		return c.Next()
	}
}

// Claims returns the client claims stored by AuthMiddleware.Handler.
func Claims(c *fiber.Ctx) (*models.ClientClaims, bool) {
	claims, ok := c.Locals(claimsKey).(*models.ClientClaims)
	return claims, ok && claims != nil
}
