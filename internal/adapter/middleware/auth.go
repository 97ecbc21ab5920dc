package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// APIKeyHeader carries the merchant credential on every private call.
const APIKeyHeader = "X-API-Key"

// RequireAPIKey rejects requests without an API key before they reach
// the ledger. The key itself is verified by the ledger service, which
// resolves it to an account or fails with Unauthorized.
func RequireAPIKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := c.Get(APIKeyHeader)
		if apiKey == "" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "API key missing",
			})
		}
		c.Locals("api_key", apiKey)
		return c.Next()
	}
}

// APIKey returns the credential stashed by RequireAPIKey.
func APIKey(c *fiber.Ctx) string {
	if key, ok := c.Locals("api_key").(string); ok {
		return key
	}
	return ""
}

// RequireOperator guards the operator-only withdrawal endpoints with a
// static token. An empty configured token disables the surface.
func RequireOperator(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" || c.Get("X-Operator-Token") != token {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "operator token invalid",
			})
		}
		return c.Next()
	}
}
