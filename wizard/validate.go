package wizard

import "strings"

// Validation messages surfaced verbatim to the user.
const (
	MsgTeamNameRequired     = "Team name is required"
	MsgTeamNameTooShort     = "Team name must be at least 2 characters"
	MsgTournamentIDRequired = "Tournament ID is required"
	MsgPaymentRequired      = "Payment method is required"
	MsgPaymentInvalid       = "Invalid payment method"
	MsgTermsNotAccepted     = "You must accept the terms and conditions"
)

// Validate runs the rules for a single step and returns the first failure
// message, or "" when the step is clean. It is pure: no I/O, no mutation.
//
// REVIEW and CONFIRM cascade over the prior steps; CONFIRM checks the terms
// box first, then falls through to DETAILS and PAYMENT.
func Validate(d StepData, step Step) string {
	switch step {
	case StepDetails:
		return validateDetails(d)
	case StepPayment:
		return validatePayment(d)
	case StepReview:
		if msg := validateDetails(d); msg != "" {
			return msg
		}
		return validatePayment(d)
	case StepConfirm:
		if !d.TermsAccepted {
			return MsgTermsNotAccepted
		}
		if msg := validateDetails(d); msg != "" {
			return msg
		}
		return validatePayment(d)
	}
	return ""
}

// IsComplete reports whether every step independently validates clean.
func IsComplete(d StepData) bool {
	for _, s := range AllSteps() {
		if Validate(d, s) != "" {
			return false
		}
	}
	return true
}

func validateDetails(d StepData) string {
	name := strings.TrimSpace(d.TeamName)
	if name == "" {
		return MsgTeamNameRequired
	}
	if len(name) < 2 {
		return MsgTeamNameTooShort
	}
	if strings.TrimSpace(d.TournamentID) == "" {
		return MsgTournamentIDRequired
	}
	return ""
}

func validatePayment(d StepData) string {
	method := strings.TrimSpace(d.PaymentMethod)
	if method == "" {
		return MsgPaymentRequired
	}
	switch method {
	case PaymentWallet, PaymentUPI, PaymentCard:
		return ""
	}
	return MsgPaymentInvalid
}
