package models

import (
	"time"

	"github.com/cradoe/quizash/internal/money"
)

// ReferralEarning records a referral bonus. The unique constraint on
// subscription_id is the idempotency guard that prevents double-crediting
// when a confirming webhook is replayed.
type ReferralEarning struct {
	ID             string      `db:"id"`
	ReferrerID     string      `db:"referrer_id"`
	ReferredUserID string      `db:"referred_user_id"`
	SubscriptionID string      `db:"subscription_id"`
	Amount         money.Money `db:"amount"`
	CreatedAt      time.Time   `db:"created_at"`
}
