// Package fees resolves the effective fee percentage for a merchant
// operation: custom account override first, then the account's package
// schedule, then a hard-coded default.
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
)

type Kind int

const (
	Transaction Kind = iota
	Withdrawal
)

// Defaults when neither a custom override nor a package is set. The
// asymmetry (10% for charges, 0% for withdrawals) reproduces the
// behavior of the original fee schedule.
var (
	DefaultTransactionFeePct = decimal.NewFromInt(10)
	DefaultWithdrawalFeePct  = decimal.Zero
)

// Resolve returns the effective fee percentage for the given operation
// kind, in priority order: custom override, package schedule, default.
func Resolve(kind Kind, acct *domain.Account) decimal.Decimal {
	switch kind {
	case Withdrawal:
		if acct.CustomWithdrawalFeePct != nil {
			return *acct.CustomWithdrawalFeePct
		}
		if acct.Package != nil {
			return acct.Package.WithdrawalFeePct
		}
		return DefaultWithdrawalFeePct
	default:
		if acct.CustomTransactionFeePct != nil {
			return *acct.CustomTransactionFeePct
		}
		if acct.Package != nil {
			return acct.Package.TransactionFeePct
		}
		return DefaultTransactionFeePct
	}
}

// Amount computes the fee on a gross amount at the given percentage,
// rounded to the currency minor unit.
func Amount(gross, percent decimal.Decimal) decimal.Decimal {
	return domain.RoundMZN(gross.Mul(percent).Div(decimal.NewFromInt(100)))
}
