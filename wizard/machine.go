package wizard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"tournament-arena-system/utils"
)

// ErrValidation marks a Submit rejected by the final validation pass. The
// user-facing message is in State.LastError.
var ErrValidation = errors.New("wizard validation failed")

// State is what the UI observes: current step, the draft, and the last
// validation or submission failure.
type State struct {
	Step      Step     `json:"step"`
	Data      StepData `json:"data"`
	LastError string   `json:"last_error,omitempty"`
}

// SubmitFunc performs the actual registration once the wizard passes final
// validation. It is expected to return boundary-translated errors whose
// Error() text is safe to show the user.
type SubmitFunc func(ctx context.Context, data StepData) error

// Machine is the linear registration wizard. Forward motion is gated by
// Validate; backward motion is unconditional. Every state change is
// persisted through the snapshot store and published to subscribers.
type Machine struct {
	mu     sync.Mutex
	state  State
	store  SnapshotStore
	key    string
	submit SubmitFunc
	states *utils.StateHolder[State]
}

// NewMachine builds a wizard, restoring `{step, data}` from the snapshot
// store if a draft survives from a previous process.
func NewMachine(ctx context.Context, store SnapshotStore, key string, submit SubmitFunc) *Machine {
	m := &Machine{
		state:  State{Step: StepReview},
		store:  store,
		key:    key,
		submit: submit,
		states: utils.NewStateHolder[State](),
	}
	if store != nil {
		if snap, err := store.Load(ctx, key); err != nil {
			log.Printf("[WIZARD] failed to restore snapshot %s: %v", key, err)
		} else if snap != nil {
			m.state.Step = snap.Step
			m.state.Data = snap.Data
		}
	}
	m.states.Set(m.state)
	return m
}

// State returns the current wizard state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a listener for state changes; the current state is
// replayed immediately.
func (m *Machine) Subscribe(fn func(State)) func() {
	return m.states.Subscribe(fn)
}

// UpdateData applies a copy-on-write transform to the draft and clears the
// last error.
func (m *Machine) UpdateData(ctx context.Context, transform func(StepData) StepData) {
	m.mu.Lock()
	m.state.Data = transform(m.state.Data.Clone())
	m.state.LastError = ""
	m.persistLocked(ctx)
	st := m.state
	m.mu.Unlock()
	m.states.Set(st)
}

// Next validates the current step. On failure it records the message and
// stays; on success it clears the error and advances, clamped at CONFIRM.
func (m *Machine) Next(ctx context.Context) {
	m.mu.Lock()
	if msg := Validate(m.state.Data, m.state.Step); msg != "" {
		m.state.LastError = msg
	} else {
		m.state.LastError = ""
		m.state.Step = m.state.Step.Next()
	}
	m.persistLocked(ctx)
	st := m.state
	m.mu.Unlock()
	m.states.Set(st)
}

// Previous retreats one step unconditionally, clamped at REVIEW. There is
// no validation gate on backward motion.
func (m *Machine) Previous(ctx context.Context) {
	m.mu.Lock()
	m.state.Step = m.state.Step.Previous()
	m.state.LastError = ""
	m.persistLocked(ctx)
	st := m.state
	m.mu.Unlock()
	m.states.Set(st)
}

// Reset returns the wizard to an empty draft at REVIEW.
func (m *Machine) Reset(ctx context.Context) {
	m.mu.Lock()
	m.state = State{Step: StepReview}
	if m.store != nil {
		if err := m.store.Delete(ctx, m.key); err != nil {
			log.Printf("[WIZARD] failed to delete snapshot %s: %v", m.key, err)
		}
	}
	st := m.state
	m.mu.Unlock()
	m.states.Set(st)
}

// Submit runs the full CONFIRM validation one last time, then hands the
// draft to the registration executor. The draft survives any failure; on
// success the wizard resets to empty.
func (m *Machine) Submit(ctx context.Context) error {
	m.mu.Lock()
	if msg := Validate(m.state.Data, StepConfirm); msg != "" {
		m.state.LastError = msg
		st := m.state
		m.mu.Unlock()
		m.states.Set(st)
		return fmt.Errorf("%w: %s", ErrValidation, msg)
	}
	m.state.LastError = ""
	data := m.state.Data.Clone()
	st := m.state
	m.mu.Unlock()
	m.states.Set(st)

	if err := m.submit(ctx, data); err != nil {
		m.mu.Lock()
		m.state.LastError = err.Error()
		st := m.state
		m.mu.Unlock()
		m.states.Set(st)
		return err
	}

	m.Reset(ctx)
	return nil
}

// persistLocked writes the `{step, data}` snapshot; persistence failures
// never block the wizard, they only lose restart continuity.
func (m *Machine) persistLocked(ctx context.Context) {
	if m.store == nil {
		return
	}
	snap := Snapshot{Step: m.state.Step, Data: m.state.Data}
	if err := m.store.Save(ctx, m.key, snap); err != nil {
		log.Printf("[WIZARD] failed to persist snapshot %s: %v", m.key, err)
	}
}
