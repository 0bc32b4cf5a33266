package models

import (
	"time"

	"github.com/cradoe/quizash/internal/money"
)

type WalletTransaction struct {
	ID        string      `db:"id"`
	UserID    string      `db:"user_id"`
	Amount    money.Money `db:"amount"`
	Type      string      `db:"type"`
	CreatedAt time.Time   `db:"created_at"`
}

// define possible wallet transaction types
const (
	WalletTransactionWithdrawalReserve = "withdrawal_reserve"
	WalletTransactionWithdrawalRefund  = "withdrawal_refund"
	WalletTransactionReferralBonus     = "referral_bonus"
)
