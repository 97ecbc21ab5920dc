// Package ledger owns the transaction and balance engine: it
// authenticates charge requests, dispatches them to a gateway adapter
// inside the account's critical section, applies the resulting balance
// mutation and drives the withdrawal and checkout state machines.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
	"github.com/bigboss00123/paymoz-MVP/internal/core/fees"
	"github.com/bigboss00123/paymoz-MVP/internal/core/gateway"
	"github.com/bigboss00123/paymoz-MVP/internal/core/notify"
	"github.com/bigboss00123/paymoz-MVP/internal/core/security"
)

// DefaultMinWithdrawal is the policy floor for payout requests, in MZN.
var DefaultMinWithdrawal = decimal.NewFromInt(100)

type Config struct {
	// BaseURL is the public origin used to build hosted checkout links.
	BaseURL string
	// MinWithdrawal overrides DefaultMinWithdrawal when positive.
	MinWithdrawal decimal.Decimal
	// Now overrides the clock. Tests use it to drive trial expiry.
	Now func() time.Time
}

type Service struct {
	store         Store
	gateways      *gateway.Registry
	router        *domain.PrefixRouter
	notifier      notify.Notifier
	baseURL       string
	minWithdrawal decimal.Decimal

	now func() time.Time
}

func NewService(store Store, gateways *gateway.Registry, router *domain.PrefixRouter, notifier notify.Notifier, cfg Config) *Service {
	min := cfg.MinWithdrawal
	if !min.IsPositive() {
		min = DefaultMinWithdrawal
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:         store,
		gateways:      gateways,
		router:        router,
		notifier:      notifier,
		baseURL:       cfg.BaseURL,
		minWithdrawal: min,
		now:           now,
	}
}

// ChargeResult reports a successful charge back to the caller.
type ChargeResult struct {
	TransactionID uuid.UUID
	ExternalID    string
	Amount        decimal.Decimal
	FeeApplied    decimal.Decimal
	NetCredited   decimal.Decimal
	NewBalance    decimal.Decimal
}

// Charge collects a payment from a payer on behalf of the merchant
// identified by apiKey, via the named provider.
//
// The gateway call happens while the account lock is held, so charges
// against one merchant are serialized to a single in-flight provider
// call; this trades latency for lost-update safety on the balance.
func (s *Service) Charge(ctx context.Context, apiKey, phoneNumber, amountStr, provider string) (*ChargeResult, error) {
	acct, err := s.authenticate(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if err := s.checkSubscription(ctx, acct); err != nil {
		return nil, err
	}
	amount, err := domain.ParseAmount(amountStr)
	if err != nil {
		return nil, err
	}
	adapter, ok := s.gateways.Adapter(provider)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, provider)
	}
	result, _, err := s.executeCharge(ctx, acct, adapter, phoneNumber, amount, nil)
	return result, err
}

// executeCharge runs the locked charge sequence: create the PENDING
// transaction, call the provider, then either credit the net amount
// and finalize SUCCESS or record FAILED with no balance mutation.
// When sess is non-nil the charge belongs to a checkout session: its
// PENDING status is re-checked under the lock and flipped to COMPLETED
// together with the successful transaction.
func (s *Service) executeCharge(ctx context.Context, acct *domain.Account, adapter gateway.Adapter, phoneNumber string, amount decimal.Decimal, sess *domain.CheckoutSession) (*ChargeResult, *domain.Transaction, error) {
	normalized := adapter.NormalizeNumber(phoneNumber)

	var (
		result  *ChargeResult
		txn     *domain.Transaction
		gwErr   error
		decline string
	)

	err := s.store.WithAccountLock(ctx, acct.ID, func(tx Tx) error {
		if sess != nil {
			current, err := tx.CheckoutSession(sess.ID)
			if err != nil {
				return err
			}
			if current.Status != domain.CheckoutPending {
				return domain.ErrSessionNotFound
			}
			if sess.CustomerName != "" && current.CustomerName == "" {
				current.CustomerName = sess.CustomerName
			}
			*sess = *current
		}

		txn = &domain.Transaction{
			ID:                 uuid.New(),
			AccountID:          acct.ID,
			Amount:             domain.RoundMZN(amount),
			Status:             domain.TransactionPending,
			PaymentPhoneNumber: normalized,
			CreatedAt:          s.now(),
		}
		if sess != nil {
			sessID := sess.ID
			txn.CheckoutSessionID = &sessID
		}
		if err := tx.CreateTransaction(txn); err != nil {
			return err
		}

		res, err := adapter.Charge(ctx, gateway.Request{
			PhoneNumber: normalized,
			Amount:      txn.Amount,
			Reference:   txn.ID.String(),
		})
		if err != nil {
			gwErr = err
			txn.Status = domain.TransactionFailed
			if sess != nil {
				if uerr := tx.UpdateCheckoutSession(sess); uerr != nil {
					return uerr
				}
			}
			return tx.UpdateTransaction(txn)
		}
		if res.Outcome != gateway.OutcomeSuccess {
			decline = res.RawMessage
			txn.Status = domain.TransactionFailed
			txn.ExternalID = res.ExternalID
			if sess != nil {
				if uerr := tx.UpdateCheckoutSession(sess); uerr != nil {
					return uerr
				}
			}
			return tx.UpdateTransaction(txn)
		}

		locked := tx.Account()
		pct := fees.Resolve(fees.Transaction, locked)
		fee := fees.Amount(txn.Amount, pct)
		net := txn.Amount.Sub(fee)
		if err := tx.Credit(net); err != nil {
			return err
		}
		txn.Status = domain.TransactionSuccess
		txn.ExternalID = res.ExternalID
		if err := tx.UpdateTransaction(txn); err != nil {
			return err
		}
		if sess != nil {
			sess.Status = domain.CheckoutCompleted
			if err := tx.UpdateCheckoutSession(sess); err != nil {
				return err
			}
		}

		result = &ChargeResult{
			TransactionID: txn.ID,
			ExternalID:    txn.ExternalID,
			Amount:        txn.Amount,
			FeeApplied:    fee,
			NetCredited:   net,
			NewBalance:    locked.Balance,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	switch {
	case gwErr != nil:
		s.notifier.SaleFailed(ctx, acct, txn)
		return nil, txn, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, gwErr)
	case txn.Status == domain.TransactionFailed:
		s.notifier.SaleFailed(ctx, acct, txn)
		return nil, txn, fmt.Errorf("%w: %s", domain.ErrChargeDeclined, decline)
	}
	s.notifier.SaleCompleted(ctx, acct, txn)
	return result, txn, nil
}

// UpgradeToPro flips the merchant's subscription to PRO.
func (s *Service) UpgradeToPro(ctx context.Context, apiKey string) error {
	acct, err := s.authenticate(ctx, apiKey)
	if err != nil {
		return err
	}
	return s.store.SetSubscriptionStatus(ctx, acct.ID, domain.SubscriptionPro)
}

// authenticate resolves the merchant account from a raw API key.
func (s *Service) authenticate(ctx context.Context, apiKey string) (*domain.Account, error) {
	if apiKey == "" {
		return nil, domain.ErrUnauthorized
	}
	acct, err := s.store.AccountByKeyHash(ctx, security.HashKey(apiKey))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return acct, nil
}

// checkSubscription enforces the subscription gate. A TRIAL account
// past its window is flipped to TRIAL_EXPIRED and that flip is
// persisted even though the current request is denied.
func (s *Service) checkSubscription(ctx context.Context, acct *domain.Account) error {
	switch acct.SubscriptionStatus {
	case domain.SubscriptionTrialExpired:
		return domain.ErrSubscriptionRequired
	case domain.SubscriptionTrial:
		if !acct.TrialStartDate.IsZero() && s.now().Sub(acct.TrialStartDate) > domain.TrialPeriod {
			acct.SubscriptionStatus = domain.SubscriptionTrialExpired
			if err := s.store.SetSubscriptionStatus(ctx, acct.ID, domain.SubscriptionTrialExpired); err != nil {
				return fmt.Errorf("persist trial expiry: %w", err)
			}
			return domain.ErrSubscriptionRequired
		}
	}
	return nil
}
