package models

import (
	"database/sql"
	"time"

	"github.com/cradoe/quizash/internal/money"
)

type WithdrawalRequest struct {
	ID                string         `db:"id"`
	UserID            string         `db:"user_id"`
	Amount            money.Money    `db:"amount"`
	Fee               money.Money    `db:"fee"`
	NetAmount         money.Money    `db:"net_amount"`
	BankName          string         `db:"bank_name"`
	AccountName       string         `db:"account_name"`
	AccountNumber     string         `db:"account_number"`
	BankCode          string         `db:"bank_code"`
	Status            string         `db:"status"`
	Note              sql.NullString `db:"note"`
	RecipientCode     sql.NullString `db:"recipient_code"`
	TransferCode      sql.NullString `db:"transfer_code"`
	TransferReference sql.NullString `db:"transfer_reference"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         sql.NullTime   `db:"updated_at"`
	ProcessedAt       sql.NullTime   `db:"processed_at"`
}

// define possible withdrawal request status
const (
	WithdrawalStatusPending    = "pending"
	WithdrawalStatusApproved   = "approved"
	WithdrawalStatusProcessing = "processing"
	WithdrawalStatusPaid       = "paid"
	WithdrawalStatusRejected   = "rejected"
	WithdrawalStatusFailed     = "failed"
)

// withdrawalTransitions is the complete set of legal status moves, kept as
// one table so the legal set can be audited and tested in isolation from
// persistence. Statuses missing from the map are terminal.
var withdrawalTransitions = map[string][]string{
	WithdrawalStatusPending:    {WithdrawalStatusApproved, WithdrawalStatusRejected},
	WithdrawalStatusApproved:   {WithdrawalStatusProcessing, WithdrawalStatusRejected, WithdrawalStatusPaid},
	WithdrawalStatusProcessing: {WithdrawalStatusPaid, WithdrawalStatusFailed, WithdrawalStatusRejected},
}

// IsTerminalWithdrawalStatus reports whether a status has no outgoing
// transitions. A request in a terminal status is immutable.
func IsTerminalWithdrawalStatus(status string) bool {
	switch status {
	case WithdrawalStatusPaid, WithdrawalStatusRejected, WithdrawalStatusFailed:
		return true
	}
	return false
}

// IsValidWithdrawalStatus reports whether a status is one of the known enum
// values at all.
func IsValidWithdrawalStatus(status string) bool {
	switch status {
	case WithdrawalStatusPending, WithdrawalStatusApproved, WithdrawalStatusProcessing,
		WithdrawalStatusPaid, WithdrawalStatusRejected, WithdrawalStatusFailed:
		return true
	}
	return false
}

// CanTransitionWithdrawal reports whether a (current, target) pair is in the
// transition table.
func CanTransitionWithdrawal(current, target string) bool {
	for _, allowed := range withdrawalTransitions[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (wr *WithdrawalRequest) IsFinal() bool {
	return IsTerminalWithdrawalStatus(wr.Status)
}

// WithdrawalTransitionEffects describes the side effects a legal status
// change carries beyond rewriting the status column.
type WithdrawalTransitionEffects struct {
	// RefundGross returns the full reserved amount, fee included, to the
	// wallet. Only a rejection pays money back; a failed payout keeps the
	// funds held until support resolves it with the gateway.
	RefundGross bool

	// StampProcessedAt sets processed_at to now.
	StampProcessedAt bool
}

// WithdrawalEffectsFor returns the side effects of moving a request to
// target. alreadyProcessed reports whether processed_at was set by an
// earlier transition; intermediate statuses stamp it only the first time
// the request progresses, while terminal statuses always overwrite it so
// it records when the request was finally settled.
func WithdrawalEffectsFor(target string, alreadyProcessed bool) WithdrawalTransitionEffects {
	switch target {
	case WithdrawalStatusRejected:
		return WithdrawalTransitionEffects{RefundGross: true, StampProcessedAt: true}
	case WithdrawalStatusPaid, WithdrawalStatusFailed:
		return WithdrawalTransitionEffects{StampProcessedAt: true}
	case WithdrawalStatusApproved, WithdrawalStatusProcessing:
		return WithdrawalTransitionEffects{StampProcessedAt: !alreadyProcessed}
	}
	return WithdrawalTransitionEffects{}
}
