package models

import (
	"database/sql"
	"time"

	"github.com/cradoe/quizash/internal/money"
)

type User struct {
	ID             string         `db:"id"`
	FirstName      string         `db:"first_name"`
	LastName       string         `db:"last_name"`
	Email          string         `db:"email"`
	HashedPassword string         `db:"hashed_password"`
	ReferralCode   string         `db:"referral_code"`
	ReferredBy     sql.NullString `db:"referred_by"`
	WalletBalance  money.Money    `db:"wallet_balance"`
	IsAdmin        bool           `db:"is_admin"`
	Status         string         `db:"status"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      sql.NullTime   `db:"updated_at"`
	DeletedAt      sql.NullTime   `db:"deleted_at"`
}
