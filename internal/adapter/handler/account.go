package handler

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/bigboss00123/paymoz-MVP/internal/core/ledger"
)

type AccountHandler struct {
	Ledger *ledger.Service
}

type CreateAccountRequest struct {
	OwnerName string `json:"owner_name" validate:"required,min=2"`
	NotifyURL string `json:"notify_url" validate:"omitempty,url"`
}

// Create onboards a merchant and returns the plaintext API key exactly
// once; it is never retrievable again.
func (h *AccountHandler) Create(c *fiber.Ctx) error {
	var req CreateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "owner_name is required and notify_url must be a valid URL")
	}

	result, err := h.Ledger.CreateAccount(c.Context(), req.OwnerName, req.NotifyURL)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"status":              "success",
		"account_id":          result.Account.ID,
		"api_key":             result.APIKey,
		"subscription_status": result.Account.SubscriptionStatus,
		"trial_start_date":    result.Account.TrialStartDate,
	})
}

// RotateKey issues a fresh API key for the account, invalidating the
// previous one.
func (h *AccountHandler) RotateKey(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid account id")
	}
	apiKey, err := h.Ledger.RotateAPIKey(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"api_key": apiKey,
	})
}
