package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cradoe/quizash/internal/models"
	"github.com/jmoiron/sqlx"
)

type SubscriptionRepository interface {
	Insert(subscription *models.Subscription) (string, error)
	FindByReference(reference string) (*models.Subscription, bool, error)
	FindActiveByUserID(userID string) (*models.Subscription, bool, error)
	Confirm(ctx context.Context, reference string, paidAt time.Time, validityDays int) (*models.Subscription, bool, error)
}

const subscriptionColumns = `
	id, user_id, amount, currency, reference, is_confirmed, paid_at, expires_at, created_at`

type SubscriptionRepositoryImpl struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) SubscriptionRepository {
	return &SubscriptionRepositoryImpl{db: db}
}

func (repo *SubscriptionRepositoryImpl) Insert(subscription *models.Subscription) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO subscriptions (user_id, amount, reference)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := repo.db.GetContext(ctx, &id, query,
		subscription.UserID,
		subscription.Amount,
		subscription.Reference,
	)
	if err != nil {
		return "", err
	}

	return id, nil
}

func (repo *SubscriptionRepositoryImpl) FindByReference(reference string) (*models.Subscription, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var subscription models.Subscription

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE reference=$1`

	err := repo.db.GetContext(ctx, &subscription, query, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &subscription, true, nil
}

func (repo *SubscriptionRepositoryImpl) FindActiveByUserID(userID string) (*models.Subscription, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var subscription models.Subscription

	query := `
		SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE user_id=$1 AND is_confirmed=TRUE AND expires_at > NOW()
		ORDER BY expires_at DESC
		LIMIT 1`

	err := repo.db.GetContext(ctx, &subscription, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &subscription, true, nil
}

// Confirm marks a subscription paid, exactly once. Confirmation is
// monotonic: if another delivery of the same event already confirmed it, the
// second call observes is_confirmed under the row lock and reports
// confirmed=false without writing anything. The returned bool tells the
// caller whether THIS call performed the confirmation (and therefore owns
// follow-up work like the referral bonus).
func (repo *SubscriptionRepositoryImpl) Confirm(ctx context.Context, reference string, paidAt time.Time, validityDays int) (*models.Subscription, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}

	defer tx.Rollback()

	var subscription models.Subscription

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE reference=$1 FOR UPDATE`

	err = tx.GetContext(ctx, &subscription, query, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, ErrNotFound
		}
		return nil, false, err
	}

	if subscription.IsConfirmed {
		return &subscription, false, nil
	}

	expiresAt := paidAt.AddDate(0, 0, validityDays)

	query = `
		UPDATE subscriptions
		SET is_confirmed=TRUE, paid_at=$1, expires_at=$2
		WHERE id=$3
		RETURNING ` + subscriptionColumns

	err = tx.GetContext(ctx, &subscription, query, paidAt, expiresAt, subscription.ID)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	return &subscription, true, nil
}
