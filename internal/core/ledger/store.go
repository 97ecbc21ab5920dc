package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
)

// Store is the persistence contract the ledger service runs against.
//
// WithAccountLock acquires an exclusive critical section scoped to one
// account, loads its current state and runs fn against it. On normal
// return every mutation made through the Tx is persisted atomically;
// if fn returns an error nothing is persisted. Two concurrent calls
// for the same account are fully serialized, including any network
// call made inside fn; calls for different accounts never block each
// other.
type Store interface {
	CreateAccount(ctx context.Context, acct *domain.Account) error
	AccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	AccountByKeyHash(ctx context.Context, keyHash string) (*domain.Account, error)
	SetAPIKeyHash(ctx context.Context, accountID uuid.UUID, keyHash string) error
	SetSubscriptionStatus(ctx context.Context, accountID uuid.UUID, status domain.SubscriptionStatus) error

	CreateCheckoutSession(ctx context.Context, sess *domain.CheckoutSession) error
	CheckoutSessionByID(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error)

	WithdrawalByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	WithdrawalsByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Withdrawal, error)

	WithAccountLock(ctx context.Context, accountID uuid.UUID, fn func(tx Tx) error) error
}

// Tx is the view of one locked account inside a critical section.
// Account returns the state loaded under the lock; Credit and Debit
// mutate that state, and Debit fails with ErrInsufficientBalance if
// it would drive the balance negative.
type Tx interface {
	Account() *domain.Account
	Credit(amount decimal.Decimal) error
	Debit(amount decimal.Decimal) error

	CreateTransaction(txn *domain.Transaction) error
	UpdateTransaction(txn *domain.Transaction) error

	CreateWithdrawal(w *domain.Withdrawal) error
	UpdateWithdrawal(w *domain.Withdrawal) error
	Withdrawal(id uuid.UUID) (*domain.Withdrawal, error)

	CheckoutSession(id uuid.UUID) (*domain.CheckoutSession, error)
	UpdateCheckoutSession(sess *domain.CheckoutSession) error
}
