package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cradoe/quizash/internal/models"
	"github.com/cradoe/quizash/internal/money"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type ReferralEarningRepository interface {
	CreditSubscriptionBonus(ctx context.Context, subscription *models.Subscription, rate decimal.Decimal) (*models.ReferralEarning, error)
	StatsForUser(userID string) (*ReferralStats, error)
	RecentForUser(userID string, limit int) ([]models.ReferralEarning, error)
}

type ReferralStats struct {
	TotalEarnings  money.Money `db:"total_earnings"`
	TotalReferrals int         `db:"total_referrals"`
}

type ReferralEarningRepositoryImpl struct {
	db *sqlx.DB
}

func NewReferralEarningRepository(db *sqlx.DB) ReferralEarningRepository {
	return &ReferralEarningRepositoryImpl{db: db}
}

// CreditSubscriptionBonus pays the referrer of a freshly confirmed
// subscription. It is a safe no-op (nil, nil) when the payer has no referrer
// code, the code doesn't resolve, the referrer is the payer, or a bonus was
// already paid for this subscription. The earning insert and the wallet
// credit happen in one transaction; the existence check runs inside that
// same transaction and the unique constraint on subscription_id backstops a
// race between two concurrent confirming calls.
func (repo *ReferralEarningRepositoryImpl) CreditSubscriptionBonus(ctx context.Context, subscription *models.Subscription, rate decimal.Decimal) (*models.ReferralEarning, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	var payer models.User

	query := `SELECT id, referred_by FROM users WHERE id=$1 AND deleted_at IS NULL`

	err = tx.GetContext(ctx, &payer, query, subscription.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if !payer.ReferredBy.Valid || payer.ReferredBy.String == "" {
		return nil, nil
	}

	var referrer models.User

	query = `SELECT id FROM users WHERE referral_code=$1 AND deleted_at IS NULL`

	err = tx.GetContext(ctx, &referrer, query, payer.ReferredBy.String)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	// self-referral protection
	if referrer.ID == payer.ID {
		return nil, nil
	}

	var alreadyEarned bool

	query = `SELECT EXISTS(SELECT 1 FROM referral_earnings WHERE subscription_id=$1)`

	err = tx.GetContext(ctx, &alreadyEarned, query, subscription.ID)
	if err != nil {
		return nil, err
	}

	if alreadyEarned {
		return nil, nil
	}

	bonus := subscription.Amount.Mul(rate)

	earning := &models.ReferralEarning{
		ReferrerID:     referrer.ID,
		ReferredUserID: payer.ID,
		SubscriptionID: subscription.ID,
		Amount:         bonus,
	}

	query = `
		INSERT INTO referral_earnings (referrer_id, referred_user_id, subscription_id, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err = tx.QueryRowContext(ctx, query,
		earning.ReferrerID,
		earning.ReferredUserID,
		earning.SubscriptionID,
		earning.Amount,
	).Scan(&earning.ID, &earning.CreatedAt)
	if err != nil {
		// a concurrent call won the insert; treat as the duplicate no-op
		if isUniqueViolation(err) {
			return nil, nil
		}
		return nil, err
	}

	err = creditWalletTx(ctx, tx, referrer.ID, bonus, models.WalletTransactionReferralBonus)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return earning, nil
}

func (repo *ReferralEarningRepositoryImpl) StatsForUser(userID string) (*ReferralStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var stats ReferralStats

	query := `
		SELECT COALESCE(SUM(amount), 0) AS total_earnings, COUNT(*) AS total_referrals
		FROM referral_earnings
		WHERE referrer_id=$1`

	err := repo.db.GetContext(ctx, &stats, query, userID)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

func (repo *ReferralEarningRepositoryImpl) RecentForUser(userID string, limit int) ([]models.ReferralEarning, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var earnings []models.ReferralEarning

	query := `
		SELECT id, referrer_id, referred_user_id, subscription_id, amount, created_at
		FROM referral_earnings
		WHERE referrer_id=$1
		ORDER BY created_at DESC
		LIMIT $2`

	err := repo.db.SelectContext(ctx, &earnings, query, userID, limit)
	if err != nil {
		return nil, err
	}

	return earnings, nil
}
