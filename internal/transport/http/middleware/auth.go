package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tgvault/backend/internal/config"
)

// APIAuth guards the archive API with a shared token. An empty configured
// token disables the check for local single-user setups.
func APIAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := cfg.Security.APIToken
		if token == "" {
			return c.Next()
		}

		headerToken := c.Get("X-API-Token")
		if headerToken == "" {
			auth := c.Get("Authorization")
			const prefix = "Bearer "
			if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
				headerToken = auth[len(prefix):]
			}
		}

		if headerToken != token {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "unauthorized",
			})
		}

		return c.Next()
	}
}

// RequireAjax rejects requests without the XMLHttpRequest marker header.
// State-changing endpoints triggered from the UI use it as a CSRF guard.
func RequireAjax() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("X-Requested-With") != "XMLHttpRequest" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "request must originate from the application",
			})
		}
		return c.Next()
	}
}
