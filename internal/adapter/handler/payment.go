package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/bigboss00123/paymoz-MVP/internal/adapter/middleware"
	"github.com/bigboss00123/paymoz-MVP/internal/core/ledger"
)

type PaymentHandler struct {
	Ledger *ledger.Service
}

type ChargeRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,min=9"`
	Amount      string `json:"amount" validate:"required"`
}

// Charge collects a payment through the provider named in the path.
func (h *PaymentHandler) Charge(c *fiber.Ctx) error {
	provider := c.Params("provider")

	var req ChargeRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Warn("invalid charge body", "error", err)
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "phone_number and amount are required")
	}

	result, err := h.Ledger.Charge(c.Context(), middleware.APIKey(c), req.PhoneNumber, req.Amount, provider)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"status":                  "success",
		"transaction_id":          result.TransactionID,
		"external_transaction_id": result.ExternalID,
		"amount":                  result.Amount.String(),
		"fee_applied":             result.FeeApplied.String(),
		"net_credited":            result.NetCredited.String(),
		"new_balance":             result.NewBalance.String(),
	})
}

// UpgradeToPro flips the calling merchant's subscription to PRO.
func (h *PaymentHandler) UpgradeToPro(c *fiber.Ctx) error {
	if err := h.Ledger.UpgradeToPro(c.Context(), middleware.APIKey(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "upgraded to the Pro plan",
	})
}
