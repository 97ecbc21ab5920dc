package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/bigboss00123/paymoz-MVP/internal/adapter/middleware"
	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
	"github.com/bigboss00123/paymoz-MVP/internal/core/ledger"
)

type WithdrawalHandler struct {
	Ledger *ledger.Service
}

type WithdrawalRequest struct {
	Amount      string `json:"amount" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required,min=9"`
}

// Request creates a PENDING payout; the gross amount plus fee leaves
// the balance immediately.
func (h *WithdrawalHandler) Request(c *fiber.Ctx) error {
	var req WithdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "amount and phone_number are required")
	}

	result, err := h.Ledger.RequestWithdrawal(c.Context(), middleware.APIKey(c), req.Amount, req.PhoneNumber)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(withdrawalResponse(result))
}

// Cancel lets the owning merchant withdraw a PENDING request; the
// reserved amount plus fee is returned to the balance.
func (h *WithdrawalHandler) Cancel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid withdrawal id")
	}
	result, err := h.Ledger.CancelWithdrawal(c.Context(), middleware.APIKey(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(withdrawalResponse(result))
}

// List returns the calling merchant's payout history.
func (h *WithdrawalHandler) List(c *fiber.Ctx) error {
	withdrawals, err := h.Ledger.ListWithdrawals(c.Context(), middleware.APIKey(c))
	if err != nil {
		return writeError(c, err)
	}
	items := make([]fiber.Map, 0, len(withdrawals))
	for _, w := range withdrawals {
		items = append(items, withdrawalFields(w))
	}
	return c.JSON(fiber.Map{"status": "success", "withdrawals": items})
}

// Reject is operator-only: declines a PENDING payout and refunds the
// reserved amount plus fee.
func (h *WithdrawalHandler) Reject(c *fiber.Ctx) error {
	return h.resolve(c, h.Ledger.RejectWithdrawal)
}

// Complete is operator-only: confirms the payout went out, making the
// debit taken at creation permanent.
func (h *WithdrawalHandler) Complete(c *fiber.Ctx) error {
	return h.resolve(c, h.Ledger.CompleteWithdrawal)
}

func (h *WithdrawalHandler) resolve(c *fiber.Ctx, fn func(ctx context.Context, id uuid.UUID) (*ledger.WithdrawalResult, error)) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid withdrawal id")
	}
	result, err := fn(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(withdrawalResponse(result))
}

func withdrawalResponse(result *ledger.WithdrawalResult) fiber.Map {
	resp := withdrawalFields(result.Withdrawal)
	resp["status"] = "success"
	resp["withdrawal_status"] = result.Withdrawal.Status
	resp["new_balance"] = result.NewBalance.String()
	return resp
}

func withdrawalFields(w *domain.Withdrawal) fiber.Map {
	return fiber.Map{
		"withdrawal_id": w.ID,
		"gross_amount":  w.Amount.String(),
		"fee_applied":   w.Fee.String(),
		"net_amount":    w.NetAmount.String(),
		"phone_number":  w.PhoneNumber,
		"state":         w.Status,
		"requested_at":  w.RequestedAt,
	}
}
