package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSplitEntryFee(t *testing.T) {
	tests := []struct {
		name             string
		bonus            float64
		withdrawable     float64
		fee              float64
		wantBonusUsed    float64
		wantWithdrawable float64
		wantOK           bool
	}{
		{name: "bonus covers fee entirely", bonus: 100, withdrawable: 50, fee: 60, wantBonusUsed: 60, wantWithdrawable: 0, wantOK: true},
		{name: "bonus exhausted then cash", bonus: 30, withdrawable: 100, fee: 50, wantBonusUsed: 30, wantWithdrawable: 20, wantOK: true},
		{name: "no bonus", bonus: 0, withdrawable: 80, fee: 50, wantBonusUsed: 0, wantWithdrawable: 50, wantOK: true},
		{name: "exact combined balance", bonus: 20, withdrawable: 30, fee: 50, wantBonusUsed: 20, wantWithdrawable: 30, wantOK: true},
		{name: "fee equals bonus", bonus: 50, withdrawable: 10, fee: 50, wantBonusUsed: 50, wantWithdrawable: 0, wantOK: true},
		{name: "insufficient combined", bonus: 10, withdrawable: 20, fee: 50, wantOK: false},
		{name: "zero fee", bonus: 10, withdrawable: 0, fee: 0, wantBonusUsed: 0, wantWithdrawable: 0, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bonusUsed, withdrawableUsed, ok := SplitEntryFee(tt.bonus, tt.withdrawable, tt.fee)
			require.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			require.Equal(t, tt.wantBonusUsed, bonusUsed)
			require.Equal(t, tt.wantWithdrawable, withdrawableUsed)
			require.Equal(t, tt.fee, bonusUsed+withdrawableUsed)
		})
	}
}

type fakeNetError struct{ timeout bool }

func (e *fakeNetError) Error() string   { return "connection reset" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: true},
		{name: "wrapped deadline", err: fmt.Errorf("lock tournament: %w", context.DeadlineExceeded), want: true},
		{name: "net error", err: &fakeNetError{}, want: true},
		{name: "already registered", err: ErrAlreadyRegistered, want: false},
		{name: "tournament full", err: ErrTournamentFull, want: false},
		{name: "insufficient balance", err: ErrInsufficientBalance, want: false},
		{name: "record not found", err: gorm.ErrRecordNotFound, want: false},
		{name: "verification mismatch", err: &VerificationError{Reason: "player mismatch"}, want: false},
		{name: "generic error", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestRegister_RetriesTransientFailures(t *testing.T) {
	s := NewRegistrationService(nil, nil)
	s.backoffUnit = time.Millisecond

	attempts := 0
	s.attemptFn = func(ctx context.Context, in RegisterInput) error {
		attempts++
		// Every attempt runs under its own deadline.
		_, ok := ctx.Deadline()
		require.True(t, ok)
		return context.DeadlineExceeded
	}

	err := s.Register(context.Background(), RegisterInput{UserID: "u1", TournamentID: "t1"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 3, attempts)
}

func TestRegister_BusinessErrorReturnsImmediately(t *testing.T) {
	s := NewRegistrationService(nil, nil)
	s.backoffUnit = time.Millisecond

	attempts := 0
	s.attemptFn = func(context.Context, RegisterInput) error {
		attempts++
		return ErrTournamentFull
	}

	err := s.Register(context.Background(), RegisterInput{UserID: "u1", TournamentID: "t1"})
	require.ErrorIs(t, err, ErrTournamentFull)
	require.Equal(t, 1, attempts)
}

func TestRegister_SucceedsAfterTransientFailure(t *testing.T) {
	s := NewRegistrationService(nil, nil)
	s.backoffUnit = time.Millisecond

	attempts := 0
	s.attemptFn = func(context.Context, RegisterInput) error {
		attempts++
		if attempts < 2 {
			return &fakeNetError{}
		}
		return nil
	}

	require.NoError(t, s.Register(context.Background(), RegisterInput{UserID: "u1", TournamentID: "t1"}))
	require.Equal(t, 2, attempts)
}

func TestRegister_CancelledDuringBackoff(t *testing.T) {
	s := NewRegistrationService(nil, nil)
	s.backoffUnit = time.Minute // force the loop to sit in backoff

	ctx, cancel := context.WithCancel(context.Background())
	s.attemptFn = func(context.Context, RegisterInput) error {
		cancel()
		return context.DeadlineExceeded
	}

	err := s.Register(ctx, RegisterInput{UserID: "u1", TournamentID: "t1"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRegistrationCreateError(t *testing.T) {
	// The concurrent-duplicate loser hits the primary-key constraint and
	// must read as the duplicate, never as a generic failure.
	require.ErrorIs(t, registrationCreateError(gorm.ErrDuplicatedKey), ErrAlreadyRegistered)
	require.ErrorIs(t,
		registrationCreateError(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)),
		ErrAlreadyRegistered)

	other := errors.New("connection reset")
	err := registrationCreateError(other)
	require.NotErrorIs(t, err, ErrAlreadyRegistered)
	require.ErrorIs(t, err, other)
}

func TestRefreshAllowed_Debounce(t *testing.T) {
	s := NewRegistrationService(nil, nil)

	require.True(t, s.RefreshAllowed())
	require.False(t, s.RefreshAllowed())

	// The limiter refills one token per two seconds; a short wait is not
	// enough.
	time.Sleep(50 * time.Millisecond)
	require.False(t, s.RefreshAllowed())
}
