package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
)

// withFeeMerchant seeds a PRO account with a 10% withdrawal fee and a
// 500 MZN balance.
func withFeeMerchant(t *testing.T, e *env) (string, *domain.Account) {
	t.Helper()
	fee := decimal.NewFromInt(10)
	acct := &domain.Account{
		OwnerName:              "Fee Merchant",
		CustomWithdrawalFeePct: &fee,
	}
	apiKey := e.seedAccount(t, acct)
	e.credit(t, acct.ID, 500)
	return apiKey, acct
}

func TestRequestWithdrawalDebitsAmountPlusFee(t *testing.T) {
	e := newEnv(t)
	apiKey, acct := withFeeMerchant(t, e)

	result, err := e.svc.RequestWithdrawal(context.Background(), apiKey, "200", "841234567")
	require.NoError(t, err)

	w := result.Withdrawal
	require.Equal(t, domain.WithdrawalPending, w.Status)
	require.Equal(t, "200", w.Amount.String())
	require.Equal(t, "20", w.Fee.String())
	require.Equal(t, "180", w.NetAmount.String())
	require.Equal(t, "280", result.NewBalance.String())
	require.Equal(t, "280", e.balance(t, acct.ID))
	require.Nil(t, w.ResolvedAt)
}

func TestRequestWithdrawalBelowMinimum(t *testing.T) {
	e := newEnv(t)
	apiKey, _ := withFeeMerchant(t, e)

	_, err := e.svc.RequestWithdrawal(context.Background(), apiKey, "50", "841234567")
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestRequestWithdrawalInsufficientBalance(t *testing.T) {
	e := newEnv(t)
	apiKey, acct := withFeeMerchant(t, e)

	_, err := e.svc.RequestWithdrawal(context.Background(), apiKey, "600", "841234567")
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// 500 covers the amount but not amount plus fee.
	_, err = e.svc.RequestWithdrawal(context.Background(), apiKey, "500", "841234567")
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	require.Equal(t, "500", e.balance(t, acct.ID))
}

func TestCancelWithdrawalRefundsExactly(t *testing.T) {
	e := newEnv(t)
	apiKey, acct := withFeeMerchant(t, e)

	result, err := e.svc.RequestWithdrawal(context.Background(), apiKey, "200", "841234567")
	require.NoError(t, err)

	canceled, err := e.svc.CancelWithdrawal(context.Background(), apiKey, result.Withdrawal.ID)
	require.NoError(t, err)
	require.Equal(t, domain.WithdrawalCanceled, canceled.Withdrawal.Status)
	require.NotNil(t, canceled.Withdrawal.ResolvedAt)
	require.Equal(t, "500", canceled.NewBalance.String())
	require.Equal(t, "500", e.balance(t, acct.ID))
}

func TestCancelWithdrawalNotOwner(t *testing.T) {
	e := newEnv(t)
	apiKey, _ := withFeeMerchant(t, e)
	otherKey, _ := e.newMerchant(t, 0)

	result, err := e.svc.RequestWithdrawal(context.Background(), apiKey, "200", "841234567")
	require.NoError(t, err)

	_, err = e.svc.CancelWithdrawal(context.Background(), otherKey, result.Withdrawal.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRejectWithdrawalRefundsExactly(t *testing.T) {
	e := newEnv(t)
	apiKey, acct := withFeeMerchant(t, e)

	result, err := e.svc.RequestWithdrawal(context.Background(), apiKey, "200", "841234567")
	require.NoError(t, err)

	rejected, err := e.svc.RejectWithdrawal(context.Background(), result.Withdrawal.ID)
	require.NoError(t, err)
	require.Equal(t, domain.WithdrawalRejected, rejected.Withdrawal.Status)
	require.Equal(t, "500", e.balance(t, acct.ID))
}

func TestCompleteWithdrawalKeepsDebit(t *testing.T) {
	e := newEnv(t)
	apiKey, acct := withFeeMerchant(t, e)

	result, err := e.svc.RequestWithdrawal(context.Background(), apiKey, "200", "841234567")
	require.NoError(t, err)

	completed, err := e.svc.CompleteWithdrawal(context.Background(), result.Withdrawal.ID)
	require.NoError(t, err)
	require.Equal(t, domain.WithdrawalCompleted, completed.Withdrawal.Status)
	require.Equal(t, "280", e.balance(t, acct.ID))

	// Terminal states cannot transition again.
	_, err = e.svc.CancelWithdrawal(context.Background(), apiKey, result.Withdrawal.ID)
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	_, err = e.svc.RejectWithdrawal(context.Background(), result.Withdrawal.ID)
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	require.Equal(t, "280", e.balance(t, acct.ID))
}

func TestResolveUnknownWithdrawal(t *testing.T) {
	e := newEnv(t)
	apiKey, _ := withFeeMerchant(t, e)

	_, err := e.svc.CancelWithdrawal(context.Background(), apiKey, uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.svc.CompleteWithdrawal(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListWithdrawals(t *testing.T) {
	e := newEnv(t)
	apiKey, _ := withFeeMerchant(t, e)

	for _, amount := range []string{"100", "150"} {
		_, err := e.svc.RequestWithdrawal(context.Background(), apiKey, amount, "841234567")
		require.NoError(t, err)
	}

	list, err := e.svc.ListWithdrawals(context.Background(), apiKey)
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	e := newEnv(t)
	apiKey, accountID := e.newMerchant(t, 500)

	const workers = 5
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.svc.RequestWithdrawal(context.Background(), apiKey, "150", "841234567")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, domain.ErrInsufficientBalance)
		}
	}

	// Only the requests the balance can cover go through.
	require.Equal(t, 3, succeeded)
	require.Equal(t, "50", e.balance(t, accountID))
}
