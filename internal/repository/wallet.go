package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cradoe/quizash/internal/models"
	"github.com/cradoe/quizash/internal/money"
	"github.com/jmoiron/sqlx"
)

// WalletRepository owns every mutation of users.wallet_balance. The balance
// is only ever changed inside a transaction holding SELECT ... FOR UPDATE on
// the user row; callers outside this package never touch the column.
type WalletRepository interface {
	Balance(userID string) (money.Money, bool, error)
	WithdrawableBalance(userID string) (money.Money, error)
	ReserveWithdrawal(ctx context.Context, request *models.WithdrawalRequest) (*models.WithdrawalRequest, error)
	Credit(ctx context.Context, userID string, amount money.Money, transactionType string) error
}

type WalletRepositoryImpl struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) WalletRepository {
	return &WalletRepositoryImpl{db: db}
}

func (repo *WalletRepositoryImpl) Balance(userID string) (money.Money, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var balance money.Money

	query := `SELECT wallet_balance FROM users WHERE id=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &balance, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return money.Zero(), false, nil
		}
		return money.Zero(), false, err
	}

	return balance, true, nil
}

// WithdrawableBalance computes balance minus the amounts reserved on
// non-terminal withdrawal requests. This unlocked read is advisory only —
// display and early validation. The authoritative check runs inside
// ReserveWithdrawal under the row lock.
func (repo *WalletRepositoryImpl) WithdrawableBalance(userID string) (money.Money, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var balance money.Money

	query := `SELECT wallet_balance FROM users WHERE id=$1 AND deleted_at IS NULL`
	if err := repo.db.GetContext(ctx, &balance, query, userID); err != nil {
		return money.Zero(), err
	}

	pending, err := pendingWithdrawalSum(ctx, repo.db, userID)
	if err != nil {
		return money.Zero(), err
	}

	return balance.Sub(pending), nil
}

// ReserveWithdrawal creates a pending withdrawal request and debits the
// gross amount from the wallet as one atomic unit:
// lock the user row, recompute the withdrawable balance under that lock,
// debit, insert. Two concurrent requests from the same user serialize on the
// row lock, so the second always observes the first's debit.
func (repo *WalletRepositoryImpl) ReserveWithdrawal(ctx context.Context, request *models.WithdrawalRequest) (*models.WithdrawalRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	var balance money.Money

	query := `
		SELECT wallet_balance FROM users WHERE id=$1 AND deleted_at IS NULL FOR UPDATE`

	err = tx.GetContext(ctx, &balance, query, request.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// The earlier, unlocked withdrawable check in the handler is advisory.
	// This re-check under the lock is the authoritative one; without it two
	// concurrent requests could both pass the advisory check and
	// over-withdraw.
	pending, err := pendingWithdrawalSum(ctx, tx, request.UserID)
	if err != nil {
		return nil, err
	}

	withdrawable := balance.Sub(pending)
	if request.Amount.GreaterThan(withdrawable) {
		return nil, ErrInsufficientFunds
	}

	query = `
		UPDATE users SET wallet_balance = wallet_balance - $1, updated_at = NOW()
		WHERE id=$2 AND deleted_at IS NULL`

	_, err = tx.ExecContext(ctx, query, request.Amount, request.UserID)
	if err != nil {
		return nil, err
	}

	query = `
		INSERT INTO withdrawal_requests
			(user_id, amount, fee, net_amount, bank_name, account_name, account_number, bank_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, status, created_at`

	err = tx.QueryRowContext(ctx, query,
		request.UserID,
		request.Amount,
		request.Fee,
		request.NetAmount,
		request.BankName,
		request.AccountName,
		request.AccountNumber,
		request.BankCode,
	).Scan(&request.ID, &request.Status, &request.CreatedAt)
	if err != nil {
		return nil, err
	}

	err = insertWalletTransaction(ctx, tx, request.UserID, money.Zero().Sub(request.Amount), models.WalletTransactionWithdrawalReserve)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return request, nil
}

// Credit adds amount to a user's wallet under the row lock, recording a
// wallet transaction for the audit trail. The whole operation is one
// transaction.
func (repo *WalletRepositoryImpl) Credit(ctx context.Context, userID string, amount money.Money, transactionType string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	if err := creditWalletTx(ctx, tx, userID, amount, transactionType); err != nil {
		return err
	}

	return tx.Commit()
}

// creditWalletTx locks the user row and applies the credit inside the
// caller's transaction. Used by Credit and by operations that must combine
// the credit with other writes (refund on rejection, referral bonus).
func creditWalletTx(ctx context.Context, tx *sqlx.Tx, userID string, amount money.Money, transactionType string) error {
	var balance money.Money

	query := `
		SELECT wallet_balance FROM users WHERE id=$1 AND deleted_at IS NULL FOR UPDATE`

	err := tx.GetContext(ctx, &balance, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	query = `
		UPDATE users SET wallet_balance = wallet_balance + $1, updated_at = NOW()
		WHERE id=$2 AND deleted_at IS NULL`

	_, err = tx.ExecContext(ctx, query, amount, userID)
	if err != nil {
		return err
	}

	return insertWalletTransaction(ctx, tx, userID, amount, transactionType)
}

func insertWalletTransaction(ctx context.Context, tx *sqlx.Tx, userID string, amount money.Money, transactionType string) error {
	query := `
		INSERT INTO wallet_transactions (user_id, amount, type)
		VALUES ($1, $2, $3)`

	_, err := tx.ExecContext(ctx, query, userID, amount, transactionType)
	return err
}

// pendingWithdrawalSum totals the gross amounts of non-terminal withdrawal
// requests. Reservation debits the gross amount, so summing gross here does
// not double-count the fee.
func pendingWithdrawalSum(ctx context.Context, q sqlx.QueryerContext, userID string) (money.Money, error) {
	var sum money.Money

	query := `
		SELECT COALESCE(SUM(amount), 0) FROM withdrawal_requests
		WHERE user_id=$1 AND status IN ($2, $3, $4)`

	err := sqlx.GetContext(ctx, q, &sum, query, userID,
		models.WithdrawalStatusPending,
		models.WithdrawalStatusApproved,
		models.WithdrawalStatusProcessing,
	)
	if err != nil {
		return money.Zero(), err
	}

	return sum, nil
}
