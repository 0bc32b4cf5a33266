package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInsufficientFunds is returned when a withdrawal reservation exceeds
	// the withdrawable balance recomputed under the wallet lock.
	ErrInsufficientFunds = errors.New("insufficient withdrawable balance")

	// ErrTerminalState is returned when a status change is attempted on a
	// request that is already paid, rejected or failed.
	ErrTerminalState = errors.New("withdrawal request is already final")

	// ErrInvalidTransition is returned when the (current, target) pair is not
	// in the transition table.
	ErrInvalidTransition = errors.New("invalid withdrawal status transition")
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
