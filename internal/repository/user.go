package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cradoe/quizash/internal/models"
	"github.com/jmoiron/sqlx"
)

type UserRepository interface {
	Insert(user *models.User, tx *sqlx.Tx) (string, error)
	GetOne(id string) (*models.User, bool, error)
	GetByEmail(email string) (*models.User, bool, error)
	FindByReferralCode(code string) (*models.User, bool, error)
	CheckIfReferralCodeExist(code string) (bool, error)
}

const (
	// UserAccountActiveStatus indicates that the user's account is active and fully functional.
	UserAccountActiveStatus = "active"

	// UserAccountLockedStatus indicates that the user's account has been locked,
	// for example after suspicious wallet activity or administrative action.
	UserAccountLockedStatus = "locked"
)

type UserRepositoryImpl struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (repo *UserRepositoryImpl) Insert(user *models.User, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string
	query := `
		INSERT INTO users (first_name, last_name, email, hashed_password, referral_code, referred_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if tx != nil {
		err := tx.QueryRowContext(ctx, query,
			user.FirstName,
			user.LastName,
			user.Email,
			user.HashedPassword,
			user.ReferralCode,
			user.ReferredBy,
		).Scan(&id)
		if err != nil {
			return "", err
		}
	} else {
		err := repo.db.GetContext(ctx, &id, query,
			user.FirstName,
			user.LastName,
			user.Email,
			user.HashedPassword,
			user.ReferralCode,
			user.ReferredBy,
		)
		if err != nil {
			return "", err
		}
	}

	return id, nil
}

func (repo *UserRepositoryImpl) GetOne(id string) (*models.User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user models.User

	query := `
        SELECT id, first_name, last_name, email, hashed_password, referral_code, referred_by,
               wallet_balance, is_admin, status, created_at
        FROM users WHERE id=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &user, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &user, true, nil
}

func (repo *UserRepositoryImpl) GetByEmail(email string) (*models.User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user models.User

	query := `
        SELECT id, first_name, last_name, email, hashed_password, referral_code, referred_by,
               wallet_balance, is_admin, status, created_at
        FROM users WHERE email=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &user, query, email)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &user, true, nil
}

func (repo *UserRepositoryImpl) FindByReferralCode(code string) (*models.User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user models.User

	query := `
        SELECT id, first_name, last_name, email, referral_code, wallet_balance, status, created_at
        FROM users WHERE referral_code=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &user, query, code)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &user, true, nil
}

func (repo *UserRepositoryImpl) CheckIfReferralCodeExist(code string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var exists bool

	query := `SELECT EXISTS(SELECT 1 FROM users WHERE referral_code=$1)`

	err := repo.db.GetContext(ctx, &exists, query, code)
	if err != nil {
		return false, err
	}

	return exists, nil
}
