package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: ErrTournamentNotFound, want: fiber.StatusNotFound},
		{name: "no submission", err: ErrNoSubmission, want: fiber.StatusNotFound},
		{name: "not registered", err: ErrNotRegistered, want: fiber.StatusNotFound},
		{name: "duplicate", err: ErrAlreadyRegistered, want: fiber.StatusConflict},
		{name: "full", err: ErrTournamentFull, want: fiber.StatusForbidden},
		{name: "closed", err: ErrRegistrationClosed, want: fiber.StatusForbidden},
		{name: "insufficient", err: ErrInsufficientBalance, want: fiber.StatusPaymentRequired},
		{name: "analysis failed", err: fmt.Errorf("%w: no usable signal", ErrAnalysisFailed), want: fiber.StatusUnprocessableEntity},
		{name: "verification", err: &VerificationError{Reason: "player mismatch"}, want: fiber.StatusUnprocessableEntity},
		{name: "unknown", err: errors.New("boom"), want: fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestUserMessage_NeverLeaksInternals(t *testing.T) {
	require.Equal(t, ErrInsufficientBalance.Error(), UserMessage(ErrInsufficientBalance))
	require.Equal(t, "verification failed: player mismatch",
		UserMessage(&VerificationError{Reason: "player mismatch"}))
	require.Equal(t, "the request timed out, please try again",
		UserMessage(fmt.Errorf("lock tournament: %w", context.DeadlineExceeded)))

	msg := UserMessage(errors.New(`pq: relation "wallets" does not exist`))
	require.Equal(t, "something went wrong, please try again", msg)
}

func TestIsBusinessError(t *testing.T) {
	require.True(t, IsBusinessError(ErrTournamentFull))
	require.True(t, IsBusinessError(fmt.Errorf("register: %w", ErrAlreadyRegistered)))
	require.True(t, IsBusinessError(&VerificationError{Reason: "size"}))
	require.False(t, IsBusinessError(context.DeadlineExceeded))
	require.False(t, IsBusinessError(errors.New("boom")))
}
