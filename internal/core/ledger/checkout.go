package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
)

// CustomerDetails are the optional payer fields a merchant may attach
// to a checkout session at creation time.
type CustomerDetails struct {
	Name         string
	Email        string
	ProductName  string
	CustomFields map[string]string
}

// SessionResult is a freshly created checkout session plus the hosted
// payment URL the merchant redirects the payer to.
type SessionResult struct {
	Session   *domain.CheckoutSession
	HostedURL string
}

// CreateCheckoutSession creates a PENDING session for a pre-declared
// amount. The expiry window is advisory: it is reported to the caller
// but not enforced at completion time.
func (s *Service) CreateCheckoutSession(ctx context.Context, apiKey, amountStr, callbackURL string, customer CustomerDetails) (*SessionResult, error) {
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

	now := s.now()
	sess := &domain.CheckoutSession{
		ID:            uuid.New(),
		AccountID:     acct.ID,
		Amount:        domain.RoundMZN(amount),
		CallbackURL:   callbackURL,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		ProductName:   customer.ProductName,
		CustomFields:  customer.CustomFields,
		Status:        domain.CheckoutPending,
		ExpiresAt:     now.Add(domain.CheckoutExpiry),
		CreatedAt:     now,
	}
	if err := s.store.CreateCheckoutSession(ctx, sess); err != nil {
		return nil, err
	}

	return &SessionResult{
		Session:   sess,
		HostedURL: fmt.Sprintf("%s/checkout/pay/%s", s.baseURL, sess.ID),
	}, nil
}

// CheckoutSession loads a session for the hosted payment page.
func (s *Service) CheckoutSession(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error) {
	return s.store.CheckoutSessionByID(ctx, id)
}

// CompleteCheckoutSession is the hosted-page submit: it infers the
// provider from the payer's phone prefix and charges the session's
// stored amount on behalf of the owning merchant. On success the
// session is marked COMPLETED together with the transaction, exactly
// once; on a failed charge the session stays PENDING so the payer can
// retry, and the FAILED transaction remains bound to it.
func (s *Service) CompleteCheckoutSession(ctx context.Context, id uuid.UUID, phoneNumber, customerName string) (*ChargeResult, error) {
	sess, err := s.store.CheckoutSessionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != domain.CheckoutPending {
		return nil, domain.ErrSessionNotFound
	}

	provider, err := s.router.Route(phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: phone number is not valid for M-Pesa or e-Mola", domain.ErrUnsupportedProvider)
	}
	adapter, ok := s.gateways.Adapter(provider)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, provider)
	}

	acct, err := s.store.AccountByID(ctx, sess.AccountID)
	if err != nil {
		return nil, err
	}

	if customerName != "" && sess.CustomerName == "" {
		sess.CustomerName = customerName
	}

	result, _, err := s.executeCharge(ctx, acct, adapter, phoneNumber, sess.Amount, sess)
	if err != nil {
		return nil, err
	}
	return result, nil
}
