package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
	"github.com/bigboss00123/paymoz-MVP/internal/core/fees"
)

// WithdrawalResult reports a withdrawal transition and the balance it
// left behind.
type WithdrawalResult struct {
	Withdrawal *domain.Withdrawal
	NewBalance decimal.Decimal
}

// RequestWithdrawal creates a PENDING payout request. The balance is
// debited amount+fee immediately so the same funds cannot be withdrawn
// twice while the request awaits operator review.
func (s *Service) RequestWithdrawal(ctx context.Context, apiKey, amountStr, phoneNumber string) (*WithdrawalResult, error) {
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
	if amount.LessThan(s.minWithdrawal) {
		return nil, fmt.Errorf("%w: minimum withdrawal is %s MZN", domain.ErrInvalidAmount, s.minWithdrawal)
	}

	var result *WithdrawalResult
	err = s.store.WithAccountLock(ctx, acct.ID, func(tx Tx) error {
		locked := tx.Account()
		if locked.Balance.LessThan(amount) {
			return domain.ErrInsufficientBalance
		}
		pct := fees.Resolve(fees.Withdrawal, locked)
		fee := fees.Amount(amount, pct)
		if err := tx.Debit(amount.Add(fee)); err != nil {
			return err
		}
		w := &domain.Withdrawal{
			ID:          uuid.New(),
			AccountID:   locked.ID,
			Amount:      domain.RoundMZN(amount),
			Fee:         fee,
			NetAmount:   domain.RoundMZN(amount.Sub(fee)),
			PhoneNumber: domain.NormalizeNumber(phoneNumber),
			Status:      domain.WithdrawalPending,
			RequestedAt: s.now(),
		}
		if err := tx.CreateWithdrawal(w); err != nil {
			return err
		}
		result = &WithdrawalResult{Withdrawal: w, NewBalance: locked.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.WithdrawalRequested(ctx, acct, result.Withdrawal)
	return result, nil
}

// CancelWithdrawal cancels a PENDING request. Only the owning account
// may cancel; the debited amount+fee is credited back exactly.
func (s *Service) CancelWithdrawal(ctx context.Context, apiKey string, id uuid.UUID) (*WithdrawalResult, error) {
	acct, err := s.authenticate(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.WithdrawalByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.AccountID != acct.ID {
		// An API key can only act on its own withdrawal records.
		return nil, domain.ErrNotFound
	}
	result, err := s.resolveWithdrawal(ctx, acct.ID, id, domain.WithdrawalCanceled)
	if err != nil {
		return nil, err
	}
	s.notifier.WithdrawalResolved(ctx, acct, result.Withdrawal)
	return result, nil
}

// RejectWithdrawal is the operator rejecting a PENDING request; the
// debited amount+fee is credited back exactly.
func (s *Service) RejectWithdrawal(ctx context.Context, id uuid.UUID) (*WithdrawalResult, error) {
	return s.operatorResolve(ctx, id, domain.WithdrawalRejected)
}

// CompleteWithdrawal is the operator confirming the payout went out.
// The debit taken at creation becomes permanent.
func (s *Service) CompleteWithdrawal(ctx context.Context, id uuid.UUID) (*WithdrawalResult, error) {
	return s.operatorResolve(ctx, id, domain.WithdrawalCompleted)
}

// ListWithdrawals returns the calling account's payout history.
func (s *Service) ListWithdrawals(ctx context.Context, apiKey string) ([]*domain.Withdrawal, error) {
	acct, err := s.authenticate(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return s.store.WithdrawalsByAccount(ctx, acct.ID)
}

func (s *Service) operatorResolve(ctx context.Context, id uuid.UUID, to domain.WithdrawalStatus) (*WithdrawalResult, error) {
	existing, err := s.store.WithdrawalByID(ctx, id)
	if err != nil {
		return nil, err
	}
	acct, err := s.store.AccountByID(ctx, existing.AccountID)
	if err != nil {
		return nil, err
	}
	result, err := s.resolveWithdrawal(ctx, existing.AccountID, id, to)
	if err != nil {
		return nil, err
	}
	s.notifier.WithdrawalResolved(ctx, acct, result.Withdrawal)
	return result, nil
}

// resolveWithdrawal performs a terminal transition under the account
// lock. The withdrawal is re-read inside the critical section so two
// racing transitions cannot both observe PENDING.
func (s *Service) resolveWithdrawal(ctx context.Context, accountID, id uuid.UUID, to domain.WithdrawalStatus) (*WithdrawalResult, error) {
	var result *WithdrawalResult
	err := s.store.WithAccountLock(ctx, accountID, func(tx Tx) error {
		w, err := tx.Withdrawal(id)
		if err != nil {
			return err
		}
		if w.Status != domain.WithdrawalPending {
			return fmt.Errorf("%w: withdrawal is %s", domain.ErrInvalidStateTransition, w.Status)
		}
		w.Status = to
		resolvedAt := s.now()
		w.ResolvedAt = &resolvedAt
		if err := tx.UpdateWithdrawal(w); err != nil {
			return err
		}
		if to == domain.WithdrawalCanceled || to == domain.WithdrawalRejected {
			if err := tx.Credit(w.Amount.Add(w.Fee)); err != nil {
				return err
			}
		}
		result = &WithdrawalResult{Withdrawal: w, NewBalance: tx.Account().Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
