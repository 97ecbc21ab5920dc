package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigboss00123/paymoz-MVP/internal/core/security"
)

// Idempotency replays the cached response for a repeated
// Idempotency-Key instead of moving money twice. Keys are scoped to
// the calling API key so merchants cannot collide with each other.
func Idempotency(db *pgxpool.Pool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("Idempotency-Key")
		if key == "" {
			return c.Next()
		}
		scope := security.HashKey(c.Get(APIKeyHeader))

		var status int
		var body []byte
		err := db.QueryRow(c.Context(),
			"SELECT response_status, response_body FROM idempotency_keys WHERE key_id = $1 AND key_scope = $2",
			key, scope).Scan(&status, &body)
		if err == nil {
			slog.Info("idempotency hit, returning cached response", "key", key)
			c.Set("X-Idempotency-Hit", "true")
			c.Set("Content-Type", "application/json")
			return c.Status(status).Send(body)
		}

		if err := c.Next(); err != nil {
			return err
		}

		resStatus := c.Response().StatusCode()
		resBody := c.Response().Body()

		_, insertErr := db.Exec(c.Context(),
			"INSERT INTO idempotency_keys (key_id, key_scope, response_status, response_body) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING",
			key, scope, resStatus, resBody)
		if insertErr != nil {
			slog.Error("failed to save idempotency key", "error", insertErr, "key", key)
		}
		return nil
	}
}
