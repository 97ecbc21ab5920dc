package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	SubscriptionTrial        SubscriptionStatus = "TRIAL"
	SubscriptionPro          SubscriptionStatus = "PRO"
	SubscriptionTrialExpired SubscriptionStatus = "TRIAL_EXPIRED"
)

// TrialPeriod is how long a TRIAL account may transact before it is
// flipped to TRIAL_EXPIRED on its next request.
const TrialPeriod = 7 * 24 * time.Hour

// Account is a merchant tenant. Balance is mutated only inside the
// account-scoped critical section owned by the ledger service.
type Account struct {
	ID                      uuid.UUID
	OwnerName               string
	KeyHash                 string
	Balance                 decimal.Decimal
	SubscriptionStatus      SubscriptionStatus
	TrialStartDate          time.Time
	CustomTransactionFeePct *decimal.Decimal
	CustomWithdrawalFeePct  *decimal.Decimal
	Package                 *Package
	NotifyURL               string
	CreatedAt               time.Time
}

// Package is a named fee schedule. Immutable reference data; accounts
// hold a non-owning reference.
type Package struct {
	ID                uuid.UUID
	Name              string
	Price             decimal.Decimal
	Active            bool
	TransactionFeePct decimal.Decimal
	WithdrawalFeePct  decimal.Decimal
}

type TransactionStatus string

const (
	TransactionPending TransactionStatus = "PENDING"
	TransactionSuccess TransactionStatus = "SUCCESS"
	TransactionFailed  TransactionStatus = "FAILED"
)

// Transaction is a single charge attempt. Identity is immutable once
// created; status transitions exactly once to SUCCESS or FAILED and
// rows are never deleted.
type Transaction struct {
	ID                 uuid.UUID
	AccountID          uuid.UUID
	Amount             decimal.Decimal
	Status             TransactionStatus
	ExternalID         string
	PaymentPhoneNumber string
	CheckoutSessionID  *uuid.UUID
	CreatedAt          time.Time
}

type CheckoutSessionStatus string

const (
	CheckoutPending   CheckoutSessionStatus = "PENDING"
	CheckoutCompleted CheckoutSessionStatus = "COMPLETED"
	CheckoutExpired   CheckoutSessionStatus = "EXPIRED"
)

// CheckoutExpiry is advisory: ExpiresAt is reported to the caller at
// creation but completion does not check it and no sweep enforces it.
const CheckoutExpiry = 30 * time.Minute

// CheckoutSession is a pre-declared payable amount completed through a
// hosted page. It transitions to COMPLETED at most once.
type CheckoutSession struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	Amount        decimal.Decimal
	CallbackURL   string
	CustomerName  string
	CustomerEmail string
	ProductName   string
	CustomFields  map[string]string
	Status        CheckoutSessionStatus
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "PENDING"
	WithdrawalCompleted WithdrawalStatus = "COMPLETED"
	WithdrawalRejected  WithdrawalStatus = "REJECTED"
	WithdrawalCanceled  WithdrawalStatus = "CANCELED"
)

// Withdrawal is a merchant payout request (saque). The balance is
// debited Amount+Fee when the request is created; CANCELED and
// REJECTED refund exactly that amount, COMPLETED keeps the debit.
// Fee is snapshotted at creation so the refund never depends on the
// fee schedule in force later.
type Withdrawal struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	NetAmount   decimal.Decimal
	PhoneNumber string
	Status      WithdrawalStatus
	RequestedAt time.Time
	ResolvedAt  *time.Time
}
