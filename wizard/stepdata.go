// Package wizard implements the linear multi-step registration form:
// a draft value type, pure per-step validation, and a state machine that
// survives process restarts through a small snapshot store.
package wizard

// Step is one position in the fixed four-step registration flow.
// The order is REVIEW < PAYMENT < DETAILS < CONFIRM; REVIEW is the entry
// point and CONFIRM is terminal for forward navigation.
type Step int

const (
	StepReview Step = iota
	StepPayment
	StepDetails
	StepConfirm
)

var stepNames = map[Step]string{
	StepReview:  "REVIEW",
	StepPayment: "PAYMENT",
	StepDetails: "DETAILS",
	StepConfirm: "CONFIRM",
}

func (s Step) String() string { return stepNames[s] }

// Next returns the following step, clamped at CONFIRM.
func (s Step) Next() Step {
	if s >= StepConfirm {
		return StepConfirm
	}
	return s + 1
}

// Previous returns the preceding step, clamped at REVIEW.
func (s Step) Previous() Step {
	if s <= StepReview {
		return StepReview
	}
	return s - 1
}

// AllSteps in flow order.
func AllSteps() []Step {
	return []Step{StepReview, StepPayment, StepDetails, StepConfirm}
}

// Payment methods accepted by the PAYMENT step.
const (
	PaymentWallet = "wallet"
	PaymentUPI    = "upi"
	PaymentCard   = "card"
)

// StepData is the mutable draft of a pending registration. It is treated as
// an immutable value: every mutation goes through Clone / the machine's
// UpdateData transform and produces a new instance.
type StepData struct {
	TournamentID  string   `json:"tournament_id"`
	TeamName      string   `json:"team_name"`
	PlayerIDs     []string `json:"player_ids"`
	PaymentMethod string   `json:"payment_method"`
	TermsAccepted bool     `json:"terms_accepted"`
}

// Clone returns a deep copy so transforms never alias the player list.
func (d StepData) Clone() StepData {
	out := d
	if d.PlayerIDs != nil {
		out.PlayerIDs = make([]string, len(d.PlayerIDs))
		copy(out.PlayerIDs, d.PlayerIDs)
	}
	return out
}
