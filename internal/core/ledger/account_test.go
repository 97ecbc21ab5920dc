package ledger_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
)

func TestCreateAccountStartsTrial(t *testing.T) {
	e := newEnv(t)

	result, err := e.svc.CreateAccount(context.Background(), "Loja da Ana", "https://loja.test/hooks")
	require.NoError(t, err)

	acct := result.Account
	require.Equal(t, domain.SubscriptionTrial, acct.SubscriptionStatus)
	require.Equal(t, e.now, acct.TrialStartDate)
	require.True(t, acct.Balance.IsZero())
	require.True(t, strings.HasPrefix(result.APIKey, "pm_live_"))

	// The issued key authenticates immediately.
	_, err = e.svc.Charge(context.Background(), result.APIKey, "841234567", "100", "mpesa")
	require.NoError(t, err)
}

func TestRotateAPIKeyInvalidatesOldKey(t *testing.T) {
	e := newEnv(t)
	oldKey, accountID := e.newMerchant(t, 0)

	newKey, err := e.svc.RotateAPIKey(context.Background(), accountID)
	require.NoError(t, err)
	require.NotEqual(t, oldKey, newKey)

	_, err = e.svc.Charge(context.Background(), oldKey, "841234567", "100", "mpesa")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = e.svc.Charge(context.Background(), newKey, "841234567", "100", "mpesa")
	require.NoError(t, err)
}

func TestRotateAPIKeyUnknownAccount(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.RotateAPIKey(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
}
