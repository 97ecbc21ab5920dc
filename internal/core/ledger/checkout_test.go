package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
	"github.com/bigboss00123/paymoz-MVP/internal/core/ledger"
)

func TestCreateCheckoutSession(t *testing.T) {
	e := newEnv(t)
	apiKey, accountID := e.newMerchant(t, 0)

	result, err := e.svc.CreateCheckoutSession(context.Background(), apiKey, "250", "https://shop.test/return", ledger.CustomerDetails{
		ProductName:  "Curso de Gestão",
		CustomFields: map[string]string{"order": "A-17"},
	})
	require.NoError(t, err)

	sess := result.Session
	require.Equal(t, accountID, sess.AccountID)
	require.Equal(t, domain.CheckoutPending, sess.Status)
	require.Equal(t, "250", sess.Amount.String())
	require.Equal(t, "https://pay.test/checkout/pay/"+sess.ID.String(), result.HostedURL)
	require.Equal(t, e.now.Add(30*time.Minute), sess.ExpiresAt)

	loaded, err := e.svc.CheckoutSession(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, "A-17", loaded.CustomFields["order"])
}

func TestCompleteCheckoutSessionSuccess(t *testing.T) {
	e := newEnv(t)
	apiKey, accountID := e.newMerchant(t, 0)

	created, err := e.svc.CreateCheckoutSession(context.Background(), apiKey, "250", "", ledger.CustomerDetails{})
	require.NoError(t, err)
	sessID := created.Session.ID

	result, err := e.svc.CompleteCheckoutSession(context.Background(), sessID, "841234567", "Maria")
	require.NoError(t, err)
	require.Equal(t, "250", result.Amount.String())

	// Session is COMPLETED and the transaction is bound to it.
	sess, err := e.svc.CheckoutSession(context.Background(), sessID)
	require.NoError(t, err)
	require.Equal(t, domain.CheckoutCompleted, sess.Status)
	require.Equal(t, "Maria", sess.CustomerName)

	txn, ok := e.store.Transaction(result.TransactionID)
	require.True(t, ok)
	require.Equal(t, domain.TransactionSuccess, txn.Status)
	require.NotNil(t, txn.CheckoutSessionID)
	require.Equal(t, sessID, *txn.CheckoutSessionID)

	require.Equal(t, "225", e.balance(t, accountID))

	// A completed session cannot be paid twice.
	_, err = e.svc.CompleteCheckoutSession(context.Background(), sessID, "841234567", "")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	require.Equal(t, "225", e.balance(t, accountID))
}

func TestCompleteCheckoutSessionInfersProvider(t *testing.T) {
	e := newEnv(t)
	apiKey, _ := e.newMerchant(t, 0)

	created, err := e.svc.CreateCheckoutSession(context.Background(), apiKey, "100", "", ledger.CustomerDetails{})
	require.NoError(t, err)

	_, err = e.svc.CompleteCheckoutSession(context.Background(), created.Session.ID, "861234567", "")
	require.NoError(t, err)
	require.Equal(t, int64(1), e.emola.calls.Load())
	require.Equal(t, int64(0), e.mpesa.calls.Load())
}

func TestCompleteCheckoutSessionUnroutableNumber(t *testing.T) {
	e := newEnv(t)
	apiKey, _ := e.newMerchant(t, 0)

	created, err := e.svc.CreateCheckoutSession(context.Background(), apiKey, "100", "", ledger.CustomerDetails{})
	require.NoError(t, err)

	_, err = e.svc.CompleteCheckoutSession(context.Background(), created.Session.ID, "821234567", "")
	require.ErrorIs(t, err, domain.ErrUnsupportedProvider)
}

func TestCompleteCheckoutSessionFailureLeavesPending(t *testing.T) {
	e := newEnv(t)
	apiKey, accountID := e.newMerchant(t, 0)
	e.mpesa.chargeFn = declineWith("Insufficient balance")

	created, err := e.svc.CreateCheckoutSession(context.Background(), apiKey, "250", "", ledger.CustomerDetails{})
	require.NoError(t, err)
	sessID := created.Session.ID

	_, err = e.svc.CompleteCheckoutSession(context.Background(), sessID, "841234567", "")
	require.ErrorIs(t, err, domain.ErrChargeDeclined)

	// The payer can retry: the session stays PENDING and the failed
	// attempt is recorded against it.
	sess, err := e.svc.CheckoutSession(context.Background(), sessID)
	require.NoError(t, err)
	require.Equal(t, domain.CheckoutPending, sess.Status)

	txns := e.store.TransactionsByAccount(accountID)
	require.Len(t, txns, 1)
	require.Equal(t, domain.TransactionFailed, txns[0].Status)
	require.NotNil(t, txns[0].CheckoutSessionID)

	e.mpesa.chargeFn = nil
	_, err = e.svc.CompleteCheckoutSession(context.Background(), sessID, "841234567", "")
	require.NoError(t, err)

	sess, err = e.svc.CheckoutSession(context.Background(), sessID)
	require.NoError(t, err)
	require.Equal(t, domain.CheckoutCompleted, sess.Status)
}

func TestCompleteCheckoutSessionUnknown(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.CompleteCheckoutSession(context.Background(), uuid.New(), "841234567", "")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}
