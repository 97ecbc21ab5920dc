package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
	"github.com/bigboss00123/paymoz-MVP/internal/core/gateway"
)

func TestChargeSuccessCreditsNetAmount(t *testing.T) {
	e := newEnv(t)
	apiKey, accountID := e.newMerchant(t, 0)

	result, err := e.svc.Charge(context.Background(), apiKey, "841234567", "1000", "mpesa")
	require.NoError(t, err)

	require.Equal(t, "1000", result.Amount.String())
	require.Equal(t, "100", result.FeeApplied.String())
	require.Equal(t, "900", result.NetCredited.String())
	require.Equal(t, "900", result.NewBalance.String())
	require.NotEmpty(t, result.ExternalID)

	require.Equal(t, "900", e.balance(t, accountID))

	txn, ok := e.store.Transaction(result.TransactionID)
	require.True(t, ok)
	require.Equal(t, domain.TransactionSuccess, txn.Status)
	require.Equal(t, result.ExternalID, txn.ExternalID)
	require.Equal(t, "841234567", txn.PaymentPhoneNumber)
}

func TestChargeAppliesCustomFee(t *testing.T) {
	e := newEnv(t)
	custom := decimal.NewFromInt(5)
	apiKey := e.seedAccount(t, &domain.Account{
		OwnerName:               "Custom Fee Merchant",
		CustomTransactionFeePct: &custom,
	})

	result, err := e.svc.Charge(context.Background(), apiKey, "841234567", "1000", "mpesa")
	require.NoError(t, err)
	require.Equal(t, "50", result.FeeApplied.String())
	require.Equal(t, "950", result.NewBalance.String())
}

func TestChargeDeclinedRecordsFailedTransaction(t *testing.T) {
	e := newEnv(t)
	apiKey, accountID := e.newMerchant(t, 0)
	e.mpesa.chargeFn = declineWith("Insufficient balance")

	_, err := e.svc.Charge(context.Background(), apiKey, "841234567", "1000", "mpesa")
	require.ErrorIs(t, err, domain.ErrChargeDeclined)
	require.Contains(t, err.Error(), "Insufficient balance")

	require.Equal(t, "0", e.balance(t, accountID))

	txns := e.store.TransactionsByAccount(accountID)
	require.Len(t, txns, 1)
	require.Equal(t, domain.TransactionFailed, txns[0].Status)
}

func TestChargeGatewayUnavailable(t *testing.T) {
	e := newEnv(t)
	apiKey, accountID := e.newMerchant(t, 0)
	e.mpesa.chargeFn = func(context.Context, gateway.Request) (gateway.Result, error) {
		return gateway.Result{}, errors.New("connection refused")
	}

	_, err := e.svc.Charge(context.Background(), apiKey, "841234567", "1000", "mpesa")
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)

	// The attempt is persisted even though the provider never answered.
	txns := e.store.TransactionsByAccount(accountID)
	require.Len(t, txns, 1)
	require.Equal(t, domain.TransactionFailed, txns[0].Status)
	require.Equal(t, "0", e.balance(t, accountID))
}

func TestChargeUnauthorized(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Charge(context.Background(), "pm_live_unknown", "841234567", "1000", "mpesa")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = e.svc.Charge(context.Background(), "", "841234567", "1000", "mpesa")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestChargeInvalidAmount(t *testing.T) {
	e := newEnv(t)
	apiKey, _ := e.newMerchant(t, 0)

	for _, amount := range []string{"", "abc", "0", "-10"} {
		_, err := e.svc.Charge(context.Background(), apiKey, "841234567", amount, "mpesa")
		require.ErrorIs(t, err, domain.ErrInvalidAmount, "amount %q", amount)
	}
}

func TestChargeUnsupportedProvider(t *testing.T) {
	e := newEnv(t)
	apiKey, _ := e.newMerchant(t, 0)

	_, err := e.svc.Charge(context.Background(), apiKey, "841234567", "100", "paypal")
	require.ErrorIs(t, err, domain.ErrUnsupportedProvider)
}

func TestTrialExpiryIsPersistedOnDeniedRequest(t *testing.T) {
	e := newEnv(t)
	apiKey, accountID := e.newMerchant(t, 0)

	// Inside the trial window charges go through.
	e.advance(6 * 24 * time.Hour)
	_, err := e.svc.Charge(context.Background(), apiKey, "841234567", "100", "mpesa")
	require.NoError(t, err)

	// Past the window the request is denied and the flip sticks.
	e.advance(2 * 24 * time.Hour)
	_, err = e.svc.Charge(context.Background(), apiKey, "841234567", "100", "mpesa")
	require.ErrorIs(t, err, domain.ErrSubscriptionRequired)

	acct, err := e.store.AccountByID(context.Background(), accountID)
	require.NoError(t, err)
	require.Equal(t, domain.SubscriptionTrialExpired, acct.SubscriptionStatus)

	// Upgrading restores service.
	require.NoError(t, e.svc.UpgradeToPro(context.Background(), apiKey))
	_, err = e.svc.Charge(context.Background(), apiKey, "841234567", "100", "mpesa")
	require.NoError(t, err)
}

func TestConcurrentChargesSerialize(t *testing.T) {
	e := newEnv(t)
	apiKey, accountID := e.newMerchant(t, 0)
	e.mpesa.chargeFn = func(context.Context, gateway.Request) (gateway.Result, error) {
		time.Sleep(50 * time.Millisecond)
		return gateway.Result{Outcome: gateway.OutcomeSuccess, ExternalID: "EXT-SLOW"}, nil
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.svc.Charge(context.Background(), apiKey, "841234567", "1000", "mpesa")
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Both credits land; nothing is lost to a concurrent overwrite.
	require.Equal(t, "1800", e.balance(t, accountID))
	require.Len(t, e.store.TransactionsByAccount(accountID), 2)
}

func TestChargeQueuesWebhook(t *testing.T) {
	e := newEnv(t)
	result, err := e.svc.CreateAccount(context.Background(), "Webhook Merchant", "https://merchant.test/hooks")
	require.NoError(t, err)

	_, err = e.svc.Charge(context.Background(), result.APIKey, "841234567", "500", "mpesa")
	require.NoError(t, err)

	hooks := e.store.Webhooks()
	require.Len(t, hooks, 1)
	require.Equal(t, "https://merchant.test/hooks", hooks[0].URL)
}
