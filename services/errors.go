package services

import (
	"context"
	"errors"
	"net"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Business-rule failures. These are terminal: never retried, surfaced to the
// user as-is at the handler boundary.
var (
	ErrAlreadyRegistered   = errors.New("you are already registered for this tournament")
	ErrTournamentFull      = errors.New("tournament is full")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrRegistrationClosed  = errors.New("registration is closed for this tournament")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrNotRegistered       = errors.New("you are not registered for this tournament")
	ErrNoSubmission        = errors.New("no result submission found for this tournament")
	ErrAnalysisFailed      = errors.New("could not read match results from the screenshot")
)

// VerificationError is a post-hoc cross-check mismatch in the payout
// pipeline. Its reason is persisted on the submission for audit.
type VerificationError struct {
	Reason string
}

func (e *VerificationError) Error() string {
	return "verification failed: " + e.Reason
}

var businessErrors = []error{
	ErrAlreadyRegistered,
	ErrTournamentFull,
	ErrInsufficientBalance,
	ErrRegistrationClosed,
	ErrTournamentNotFound,
	ErrWalletNotFound,
	ErrNotRegistered,
	ErrNoSubmission,
	ErrAnalysisFailed,
}

// IsBusinessError reports whether err is a terminal rule failure rather than
// a transport problem.
func IsBusinessError(err error) bool {
	for _, be := range businessErrors {
		if errors.Is(err, be) {
			return true
		}
	}
	var ve *VerificationError
	return errors.As(err, &ve)
}

// isRetryable classifies transient failures: timeouts and network errors are
// worth another attempt, everything else is surfaced immediately.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsBusinessError(err) {
		return false
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// HTTPStatus maps an error to the status code handlers respond with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrTournamentNotFound),
		errors.Is(err, ErrWalletNotFound),
		errors.Is(err, ErrNoSubmission),
		errors.Is(err, ErrNotRegistered):
		return fiber.StatusNotFound
	case errors.Is(err, ErrAlreadyRegistered):
		return fiber.StatusConflict
	case errors.Is(err, ErrTournamentFull),
		errors.Is(err, ErrRegistrationClosed):
		return fiber.StatusForbidden
	case errors.Is(err, ErrInsufficientBalance):
		return fiber.StatusPaymentRequired
	case errors.Is(err, ErrAnalysisFailed):
		return fiber.StatusUnprocessableEntity
	}
	var ve *VerificationError
	if errors.As(err, &ve) {
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

// UserMessage returns the sentence shown to the player for err. Raw driver
// or transport errors are never leaked.
func UserMessage(err error) string {
	if IsBusinessError(err) {
		return err.Error()
	}
	var ve *VerificationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "the request timed out, please try again"
	}
	return "something went wrong, please try again"
}
