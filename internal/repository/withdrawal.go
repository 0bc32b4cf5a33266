package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cradoe/quizash/internal/models"
	"github.com/jmoiron/sqlx"
)

type WithdrawalRepository interface {
	GetOne(id string) (*models.WithdrawalRequest, bool, error)
	GetAllByUserID(userID string, limit int) ([]models.WithdrawalRequest, error)
	FindByTransferReference(reference string) (*models.WithdrawalRequest, bool, error)
	UpdateStatus(ctx context.Context, id, targetStatus, note string) (*models.WithdrawalRequest, error)
	SetTransferDetails(id, recipientCode, transferCode, transferReference string) error
}

const withdrawalColumns = `
	id, user_id, amount, fee, net_amount, bank_name, account_name, account_number, bank_code,
	status, note, recipient_code, transfer_code, transfer_reference,
	created_at, updated_at, processed_at`

type WithdrawalRepositoryImpl struct {
	db *sqlx.DB
}

func NewWithdrawalRepository(db *sqlx.DB) WithdrawalRepository {
	return &WithdrawalRepositoryImpl{db: db}
}

func (repo *WithdrawalRepositoryImpl) GetOne(id string) (*models.WithdrawalRequest, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var request models.WithdrawalRequest

	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id=$1`

	err := repo.db.GetContext(ctx, &request, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &request, true, nil
}

func (repo *WithdrawalRepositoryImpl) GetAllByUserID(userID string, limit int) ([]models.WithdrawalRequest, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var requests []models.WithdrawalRequest

	query := `
		SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2`

	err := repo.db.SelectContext(ctx, &requests, query, userID, limit)
	if err != nil {
		return nil, err
	}

	return requests, nil
}

func (repo *WithdrawalRepositoryImpl) FindByTransferReference(reference string) (*models.WithdrawalRequest, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var request models.WithdrawalRequest

	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE transfer_reference=$1`

	err := repo.db.GetContext(ctx, &request, query, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &request, true, nil
}

// UpdateStatus drives the withdrawal state machine under lock:
// the request row is locked first, then — only when a refund is owed — the
// owner's wallet row. That fixed order is what keeps concurrent operator
// actions and user-initiated reservations from deadlocking, since the
// reservation path locks the wallet row alone.
//
// Rejection refunds the gross amount: it was reserved (debited) from the
// wallet at request-creation time. A failed transfer does NOT refund — that
// asymmetry is carried over from the existing product behavior and should go
// to product for clarification before anyone "fixes" it.
func (repo *WithdrawalRepositoryImpl) UpdateStatus(ctx context.Context, id, targetStatus, note string) (*models.WithdrawalRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	var request models.WithdrawalRequest

	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id=$1 FOR UPDATE`

	err = tx.GetContext(ctx, &request, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if request.IsFinal() {
		return nil, ErrTerminalState
	}

	if !models.CanTransitionWithdrawal(request.Status, targetStatus) {
		return nil, ErrInvalidTransition
	}

	effects := models.WithdrawalEffectsFor(targetStatus, request.ProcessedAt.Valid)

	if effects.RefundGross {
		// wallet row locked second, after the request row
		err = creditWalletTx(ctx, tx, request.UserID, request.Amount, models.WalletTransactionWithdrawalRefund)
		if err != nil {
			return nil, err
		}
	}

	noteValue := sql.NullString{String: note, Valid: note != ""}

	if effects.StampProcessedAt {
		query = `
			UPDATE withdrawal_requests
			SET status=$1, note=$2, processed_at=NOW(), updated_at=NOW()
			WHERE id=$3
			RETURNING ` + withdrawalColumns
	} else {
		query = `
			UPDATE withdrawal_requests
			SET status=$1, note=$2, updated_at=NOW()
			WHERE id=$3
			RETURNING ` + withdrawalColumns
	}

	err = tx.GetContext(ctx, &request, query, targetStatus, noteValue, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &request, nil
}

func (repo *WithdrawalRepositoryImpl) SetTransferDetails(id, recipientCode, transferCode, transferReference string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE withdrawal_requests
		SET recipient_code=$1, transfer_code=$2, transfer_reference=$3, updated_at=NOW()
		WHERE id=$4`

	_, err := repo.db.ExecContext(ctx, query, recipientCode, transferCode, transferReference, id)
	return err
}
