package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
	"github.com/bigboss00123/paymoz-MVP/internal/core/security"
)

// OnboardResult carries the new account together with the one-time
// plaintext API key. Only the hash is stored, so the key cannot be
// recovered later.
type OnboardResult struct {
	Account *domain.Account
	APIKey  string
}

// CreateAccount onboards a merchant on the TRIAL plan with a zero
// balance and a freshly issued API key.
func (s *Service) CreateAccount(ctx context.Context, ownerName, notifyURL string) (*OnboardResult, error) {
	apiKey, keyHash, err := security.GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	now := s.now()
	acct := &domain.Account{
		ID:                 uuid.New(),
		OwnerName:          ownerName,
		KeyHash:            keyHash,
		Balance:            decimal.Zero,
		SubscriptionStatus: domain.SubscriptionTrial,
		TrialStartDate:     now,
		NotifyURL:          notifyURL,
		CreatedAt:          now,
	}
	if err := s.store.CreateAccount(ctx, acct); err != nil {
		return nil, err
	}
	return &OnboardResult{Account: acct, APIKey: apiKey}, nil
}

// RotateAPIKey replaces the account's credential. The previous key
// stops working the moment the new hash is stored.
func (s *Service) RotateAPIKey(ctx context.Context, accountID uuid.UUID) (string, error) {
	if _, err := s.store.AccountByID(ctx, accountID); err != nil {
		return "", err
	}
	apiKey, keyHash, err := security.GenerateAPIKey()
	if err != nil {
		return "", err
	}
	if err := s.store.SetAPIKeyHash(ctx, accountID, keyHash); err != nil {
		return "", err
	}
	return apiKey, nil
}
