package api

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminTokenSource supplies the bearer token guarding mutating admin routes.
// Implemented by the AWS Secrets Manager resolver, or by StaticToken when the
// token comes straight from the environment.
type AdminTokenSource interface {
	Resolve(ctx context.Context) (string, error)
}

// StaticToken is a fixed admin token (ADMIN_TOKEN env).
type StaticToken string

// Resolve returns the fixed token.
func (t StaticToken) Resolve(context.Context) (string, error) {
	return string(t), nil
}

// AdminGuard returns middleware enforcing a bearer token on admin routes.
// A nil source leaves the routes unprotected; callers log the warning.
func AdminGuard(logger *zap.Logger, source AdminTokenSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if source == nil {
			return c.Next()
		}

		expected, err := source.Resolve(c.Context())
		if err != nil {
			logger.Error("api.admin_token_unavailable", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse("admin auth unavailable"))
		}

		header := c.Get(fiber.HeaderAuthorization)
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header || token != expected {
			return c.Status(fiber.StatusUnauthorized).JSON(errorResponse("unauthorized"))
		}
		return c.Next()
	}
}
