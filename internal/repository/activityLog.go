// Logging is a critical part of the system
// Every action (synchronous or asynchronous) should be logged.
// This helps in audit and will also be used to trace activites.
// ...
// We used polymorphism to define entity and entity_id
// This allow our table to be used for different part of the application
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

type ActivityRepository interface {
	Insert(log *ActivityLog) (*ActivityLog, error)
}

type ActivityLog struct {
	ID          string         `db:"id"`
	UserID      sql.NullString `db:"user_id"`
	Entity      string         `db:"entity"`
	EntityId    string         `db:"entity_id"`
	Description string         `db:"description"`
	CreatedAt   time.Time      `db:"created_at"`
}

const (
	// ActivityLogUserEntity is used in activites that has to do with user accounts and the users table
	ActivityLogUserEntity = "user"

	// ActivityLogWithdrawalEntity is used in activites that has to do with withdrawal requests
	ActivityLogWithdrawalEntity = "withdrawal"

	// ActivityLogSubscriptionEntity is used in activites that has to do with subscription payments
	ActivityLogSubscriptionEntity = "subscription"

	// ActivityLogWebhookEntity is used for inbound gateway events, including
	// rejected signatures, which we treat as security events
	ActivityLogWebhookEntity = "webhook"
)

// NullString wraps a user id for logs that may not be tied to an account,
// such as webhook events that fail signature checks.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type ActivityRepositoryImpl struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &ActivityRepositoryImpl{db: db}
}

func (repo *ActivityRepositoryImpl) Insert(log *ActivityLog) (*ActivityLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO activity_logs (user_id, entity, entity_id, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := repo.db.QueryRowContext(ctx, query,
		log.UserID,
		log.Entity,
		log.EntityId,
		log.Description,
	).Scan(&log.ID, &log.CreatedAt)

	if err != nil {
		return nil, err
	}

	return log, nil
}
