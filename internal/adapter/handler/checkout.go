package handler

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/bigboss00123/paymoz-MVP/internal/adapter/middleware"
	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
	"github.com/bigboss00123/paymoz-MVP/internal/core/ledger"
)

type CheckoutHandler struct {
	Ledger *ledger.Service
}

type CreateSessionRequest struct {
	Amount        string            `json:"amount" validate:"required"`
	CallbackURL   string            `json:"callback_url" validate:"omitempty,url"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email" validate:"omitempty,email"`
	ProductName   string            `json:"product_name"`
	CustomFields  map[string]string `json:"custom_fields"`
}

type CompleteSessionRequest struct {
	PhoneNumber  string `json:"phone_number" validate:"required,min=9"`
	CustomerName string `json:"customer_name"`
}

// CreateSession opens a hosted checkout for a pre-declared amount and
// returns the URL the merchant redirects the payer to.
func (h *CheckoutHandler) CreateSession(c *fiber.Ctx) error {
	var req CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "amount is required; callback_url and customer_email must be valid when set")
	}

	result, err := h.Ledger.CreateCheckoutSession(c.Context(), middleware.APIKey(c), req.Amount, req.CallbackURL, ledger.CustomerDetails{
		Name:         req.CustomerName,
		Email:        req.CustomerEmail,
		ProductName:  req.ProductName,
		CustomFields: req.CustomFields,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"status":       "success",
		"session_id":   result.Session.ID,
		"amount":       result.Session.Amount.String(),
		"checkout_url": result.HostedURL,
		"expires_at":   result.Session.ExpiresAt,
	})
}

// GetSession serves the hosted payment page data to the payer. No API
// key is required; the session id is the capability.
func (h *CheckoutHandler) GetSession(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	sess, err := h.Ledger.CheckoutSession(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"session_id":     sess.ID,
		"amount":         sess.Amount.String(),
		"product_name":   sess.ProductName,
		"customer_name":  sess.CustomerName,
		"customer_email": sess.CustomerEmail,
		"custom_fields":  sess.CustomFields,
		"session_status": sess.Status,
		"expires_at":     sess.ExpiresAt,
	})
}

// CompleteSession is the hosted-page submit: the payer supplies their
// phone number and the provider is inferred from its prefix.
func (h *CheckoutHandler) CompleteSession(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid session id")
	}

	var req CompleteSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "phone_number is required")
	}

	result, err := h.Ledger.CompleteCheckoutSession(c.Context(), id, req.PhoneNumber, req.CustomerName)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"status":                  "success",
		"session_status":          domain.CheckoutCompleted,
		"transaction_id":          result.TransactionID,
		"external_transaction_id": result.ExternalID,
		"amount":                  result.Amount.String(),
	})
}
