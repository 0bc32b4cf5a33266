package money

import (
	"github.com/shopspring/decimal"
)

// FeeSchedule describes the withdrawal fee: a fraction of the gross amount,
// clamped by an optional floor and ceiling. An explicit schedule is passed
// into the withdrawal flow rather than read from ambient config so tests can
// supply deterministic values.
type FeeSchedule struct {
	Rate decimal.Decimal
	Min  Money
	Max  *Money
}

// Apply returns (fee, net) for a gross withdrawal amount.
// The fee is rounded half-up to 2 digits before clamping, and
// net = amount - fee exactly.
func (fs FeeSchedule) Apply(amount Money) (Money, Money) {
	fee := amount.Mul(fs.Rate)

	if fee.LessThan(fs.Min) {
		fee = fs.Min
	}

	if fs.Max != nil && fee.GreaterThan(*fs.Max) {
		fee = *fs.Max
	}

	net := amount.Sub(fee)
	return fee, net
}
