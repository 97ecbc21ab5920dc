package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
)

var validate = validator.New()

// writeError maps the ledger error taxonomy onto HTTP statuses. Caller
// errors carry their message through; anything unclassified is logged
// and reported as a generic 500.
func writeError(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrSubscriptionRequired):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnsupportedProvider),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrChargeDeclined):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStateTransition):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrGatewayUnavailable):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		slog.Error("unexpected internal error", "error", err, "path", c.Path())
		return c.Status(status).JSON(fiber.Map{
			"status":  "error",
			"message": "an unexpected internal error occurred",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{
		"status":  "error",
		"message": message,
	})
}
