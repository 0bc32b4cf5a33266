package models

import (
	"database/sql"
	"time"

	"github.com/cradoe/quizash/internal/money"
)

type Subscription struct {
	ID          string       `db:"id"`
	UserID      string       `db:"user_id"`
	Amount      money.Money  `db:"amount"`
	Currency    string       `db:"currency"`
	Reference   string       `db:"reference"`
	IsConfirmed bool         `db:"is_confirmed"`
	PaidAt      sql.NullTime `db:"paid_at"`
	ExpiresAt   sql.NullTime `db:"expires_at"`
	CreatedAt   time.Time    `db:"created_at"`
}

// IsActive reports whether the subscription is confirmed and unexpired.
func (s *Subscription) IsActive() bool {
	return s.IsConfirmed && s.ExpiresAt.Valid && s.ExpiresAt.Time.After(time.Now())
}
