package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithdrawalTransitionTable(t *testing.T) {
	tests := []struct {
		current string
		target  string
		allowed bool
	}{
		{WithdrawalStatusPending, WithdrawalStatusApproved, true},
		{WithdrawalStatusPending, WithdrawalStatusRejected, true},
		{WithdrawalStatusPending, WithdrawalStatusProcessing, false},
		{WithdrawalStatusPending, WithdrawalStatusPaid, false},
		{WithdrawalStatusPending, WithdrawalStatusFailed, false},

		{WithdrawalStatusApproved, WithdrawalStatusProcessing, true},
		{WithdrawalStatusApproved, WithdrawalStatusRejected, true},
		{WithdrawalStatusApproved, WithdrawalStatusPaid, true},
		{WithdrawalStatusApproved, WithdrawalStatusFailed, false},
		{WithdrawalStatusApproved, WithdrawalStatusPending, false},

		{WithdrawalStatusProcessing, WithdrawalStatusPaid, true},
		{WithdrawalStatusProcessing, WithdrawalStatusFailed, true},
		{WithdrawalStatusProcessing, WithdrawalStatusRejected, true},
		{WithdrawalStatusProcessing, WithdrawalStatusApproved, false},
		{WithdrawalStatusProcessing, WithdrawalStatusPending, false},
	}

	for _, tt := range tests {
		got := CanTransitionWithdrawal(tt.current, tt.target)
		require.Equal(t, tt.allowed, got, "%s -> %s", tt.current, tt.target)
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	terminals := []string{WithdrawalStatusPaid, WithdrawalStatusRejected, WithdrawalStatusFailed}
	all := []string{
		WithdrawalStatusPending, WithdrawalStatusApproved, WithdrawalStatusProcessing,
		WithdrawalStatusPaid, WithdrawalStatusRejected, WithdrawalStatusFailed,
	}

	for _, terminal := range terminals {
		require.True(t, IsTerminalWithdrawalStatus(terminal))

		for _, target := range all {
			require.False(t, CanTransitionWithdrawal(terminal, target),
				"terminal status %s must not transition to %s", terminal, target)
		}
	}
}

func TestWithdrawalEffectsFor(t *testing.T) {
	tests := []struct {
		target           string
		alreadyProcessed bool
		refund           bool
		stamp            bool
	}{
		// rejection is the only move that puts money back, and it always
		// records when it happened
		{WithdrawalStatusRejected, false, true, true},
		{WithdrawalStatusRejected, true, true, true},

		// a settled payout stamps but never refunds
		{WithdrawalStatusPaid, false, false, true},
		{WithdrawalStatusPaid, true, false, true},

		// a failed payout keeps the funds held, no refund
		{WithdrawalStatusFailed, false, false, true},
		{WithdrawalStatusFailed, true, false, true},

		// intermediate statuses stamp only the first progression
		{WithdrawalStatusApproved, false, false, true},
		{WithdrawalStatusApproved, true, false, false},
		{WithdrawalStatusProcessing, false, false, true},
		{WithdrawalStatusProcessing, true, false, false},
	}

	for _, tt := range tests {
		effects := WithdrawalEffectsFor(tt.target, tt.alreadyProcessed)
		require.Equal(t, tt.refund, effects.RefundGross,
			"refund for target %s (alreadyProcessed=%v)", tt.target, tt.alreadyProcessed)
		require.Equal(t, tt.stamp, effects.StampProcessedAt,
			"stamp for target %s (alreadyProcessed=%v)", tt.target, tt.alreadyProcessed)
	}
}

func TestIsValidWithdrawalStatus(t *testing.T) {
	require.True(t, IsValidWithdrawalStatus(WithdrawalStatusPending))
	require.True(t, IsValidWithdrawalStatus(WithdrawalStatusFailed))
	require.False(t, IsValidWithdrawalStatus("completed"))
	require.False(t, IsValidWithdrawalStatus(""))
}
