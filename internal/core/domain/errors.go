package domain

import "errors"

// Error taxonomy surfaced by the ledger service. Handlers map these to
// HTTP status codes with errors.Is; everything else is a 500.
var (
	// ErrUnauthorized means the API key is missing or unknown.
	ErrUnauthorized = errors.New("invalid API key")

	// ErrSubscriptionRequired means the trial period is over and the
	// account has not upgraded to PRO.
	ErrSubscriptionRequired = errors.New("trial period expired, upgrade to the Pro plan")

	// ErrInvalidAmount means the amount is missing, unparseable or not
	// strictly positive.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrUnsupportedProvider means no gateway adapter is registered for
	// the requested provider code or phone prefix.
	ErrUnsupportedProvider = errors.New("unsupported payment provider")

	// ErrInsufficientBalance means a debit would drive the balance
	// negative.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrGatewayUnavailable means the provider could not be reached
	// before any outcome was determined. The charge is recorded FAILED
	// and is not retried automatically.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrChargeDeclined means the provider answered and declined the
	// charge. The transaction is recorded FAILED with the provider's
	// detail attached.
	ErrChargeDeclined = errors.New("payment declined")

	// ErrInvalidStateTransition means a withdrawal transition was
	// attempted from a non-PENDING state.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrNotFound means the referenced withdrawal or account does not
	// exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrSessionNotFound means the checkout session does not exist or
	// is no longer PENDING. Completed sessions are not resumable and
	// report this same error.
	ErrSessionNotFound = errors.New("checkout session not found or no longer pending")
)
