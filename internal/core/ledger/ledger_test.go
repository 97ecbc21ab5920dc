package ledger_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bigboss00123/paymoz-MVP/internal/adapter/storage"
	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
	"github.com/bigboss00123/paymoz-MVP/internal/core/gateway"
	"github.com/bigboss00123/paymoz-MVP/internal/core/ledger"
	"github.com/bigboss00123/paymoz-MVP/internal/core/notify"
	"github.com/bigboss00123/paymoz-MVP/internal/core/security"
)

// fakeAdapter stands in for a provider rail. The charge behavior is a
// swappable function so each test can script the provider's answer.
type fakeAdapter struct {
	name    string
	calls   atomic.Int64
	counter atomic.Int64

	chargeFn func(ctx context.Context, req gateway.Request) (gateway.Result, error)
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) NormalizeNumber(number string) string {
	return domain.NormalizeNumber(number)
}

func (f *fakeAdapter) Charge(ctx context.Context, req gateway.Request) (gateway.Result, error) {
	f.calls.Add(1)
	if f.chargeFn != nil {
		return f.chargeFn(ctx, req)
	}
	return gateway.Result{
		Outcome:    gateway.OutcomeSuccess,
		ExternalID: fmt.Sprintf("EXT-%d", f.counter.Add(1)),
	}, nil
}

func declineWith(message string) func(context.Context, gateway.Request) (gateway.Result, error) {
	return func(context.Context, gateway.Request) (gateway.Result, error) {
		return gateway.Result{Outcome: gateway.OutcomeFailure, RawMessage: message}, nil
	}
}

type env struct {
	store *storage.Memory
	svc   *ledger.Service
	mpesa *fakeAdapter
	emola *fakeAdapter
	now   time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store: storage.NewMemory(),
		mpesa: &fakeAdapter{name: "mpesa"},
		emola: &fakeAdapter{name: "emola"},
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	router := domain.NewPrefixRouter(map[string]string{
		"84": "mpesa", "85": "mpesa", "86": "emola", "87": "emola",
	})
	e.svc = ledger.NewService(
		e.store,
		gateway.NewRegistry(e.mpesa, e.emola),
		router,
		notify.NewService(e.store),
		ledger.Config{
			BaseURL: "https://pay.test",
			Now:     func() time.Time { return e.now },
		},
	)
	return e
}

func (e *env) advance(d time.Duration) { e.now = e.now.Add(d) }

// newMerchant onboards an account and credits it with an opening
// balance, returning the plaintext API key.
func (e *env) newMerchant(t *testing.T, balance int64) (string, uuid.UUID) {
	t.Helper()
	result, err := e.svc.CreateAccount(context.Background(), "Test Merchant", "")
	require.NoError(t, err)
	if balance > 0 {
		e.credit(t, result.Account.ID, balance)
	}
	return result.APIKey, result.Account.ID
}

func (e *env) credit(t *testing.T, accountID uuid.UUID, amount int64) {
	t.Helper()
	err := e.store.WithAccountLock(context.Background(), accountID, func(tx ledger.Tx) error {
		return tx.Credit(decimal.NewFromInt(amount))
	})
	require.NoError(t, err)
}

func (e *env) balance(t *testing.T, accountID uuid.UUID) string {
	t.Helper()
	acct, err := e.store.AccountByID(context.Background(), accountID)
	require.NoError(t, err)
	return acct.Balance.String()
}

// seedAccount inserts an account directly, for tests that need custom
// fee overrides the public onboarding path does not expose.
func (e *env) seedAccount(t *testing.T, acct *domain.Account) string {
	t.Helper()
	apiKey, keyHash, err := security.GenerateAPIKey()
	require.NoError(t, err)
	acct.KeyHash = keyHash
	if acct.ID == uuid.Nil {
		acct.ID = uuid.New()
	}
	if acct.SubscriptionStatus == "" {
		acct.SubscriptionStatus = domain.SubscriptionPro
	}
	require.NoError(t, e.store.CreateAccount(context.Background(), acct))
	return apiKey
}
