// Package gateway holds the mobile-money provider adapters. Adapters
// are pure I/O plus translation: they normalize the destination phone
// number, perform one bounded network call and map the provider's
// response onto the two-outcome Result. They never touch the ledger.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// Request is a normalized charge request. Reference is the internal
// transaction id, forwarded to the provider for reconciliation.
type Request struct {
	PhoneNumber string
	Amount      decimal.Decimal
	Reference   string
}

// Result is the canonical charge outcome. ExternalID is the provider's
// transaction id when one is reported; RawMessage carries the
// provider's human-readable detail for both outcomes.
type Result struct {
	Outcome    Outcome
	ExternalID string
	RawMessage string
}

// Adapter is one external mobile-money rail.
//
// Charge returns a non-nil error only when the provider could not be
// reached before any outcome was determined (timeout, connection
// error, malformed response); a provider that answers with a decline
// is a Result with OutcomeFailure and a nil error.
type Adapter interface {
	Name() string
	NormalizeNumber(number string) string
	Charge(ctx context.Context, req Request) (Result, error)
}

// Registry selects adapters by provider code.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

func (r *Registry) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

func (r *Registry) Adapter(provider string) (Adapter, bool) {
	a, ok := r.adapters[provider]
	return a, ok
}
