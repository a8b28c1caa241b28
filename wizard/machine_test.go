package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestMachine(t *testing.T, submit SubmitFunc) (*Machine, *MemorySnapshotStore) {
	t.Helper()
	store := NewMemorySnapshotStore()
	m := NewMachine(context.Background(), store, SnapshotKey("u1", "t1"), submit)
	return m, store
}

func TestMachine_NextGatedByValidation(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t, nil)

	// REVIEW cascades DETAILS then PAYMENT; an empty draft fails on the
	// team name and the machine stays put.
	m.Next(ctx)
	st := m.State()
	require.Equal(t, StepReview, st.Step)
	require.Equal(t, MsgTeamNameRequired, st.LastError)

	m.UpdateData(ctx, func(d StepData) StepData {
		d.TeamName = "Night Owls"
		d.TournamentID = "t1"
		d.PaymentMethod = PaymentWallet
		return d
	})
	m.Next(ctx)
	st = m.State()
	require.Equal(t, StepPayment, st.Step)
	require.Empty(t, st.LastError)
}

func TestMachine_PreviousUnconditional(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t, nil)

	// Backward motion needs no valid draft and clamps at REVIEW.
	m.Previous(ctx)
	require.Equal(t, StepReview, m.State().Step)

	m.UpdateData(ctx, func(d StepData) StepData {
		d.TeamName = "AB"
		d.TournamentID = "t1"
		d.PaymentMethod = PaymentUPI
		return d
	})
	m.Next(ctx)
	m.Next(ctx)
	require.Equal(t, StepDetails, m.State().Step)

	m.Previous(ctx)
	require.Equal(t, StepPayment, m.State().Step)
	require.Empty(t, m.State().LastError)
}

func TestMachine_UpdateDataClearsErrorAndCopies(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t, nil)

	m.Next(ctx)
	require.NotEmpty(t, m.State().LastError)

	m.UpdateData(ctx, func(d StepData) StepData {
		d.PlayerIDs = []string{"p1"}
		return d
	})
	before := m.State()
	require.Empty(t, before.LastError)

	// The transform operates on a clone; earlier observed states keep
	// their own player list.
	m.UpdateData(ctx, func(d StepData) StepData {
		d.PlayerIDs[0] = "p2"
		return d
	})
	require.Equal(t, "p1", before.Data.PlayerIDs[0])
	require.Equal(t, "p2", m.State().Data.PlayerIDs[0])
}

func TestMachine_SubmitValidationFailure(t *testing.T) {
	ctx := context.Background()
	called := false
	m, _ := newTestMachine(t, func(context.Context, StepData) error {
		called = true
		return nil
	})

	err := m.Submit(ctx)
	require.ErrorIs(t, err, ErrValidation)
	require.False(t, called)
	require.Equal(t, MsgTermsNotAccepted, m.State().LastError)
}

func TestMachine_SubmitExecutorFailureKeepsDraft(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("Insufficient wallet balance")
	m, store := newTestMachine(t, func(context.Context, StepData) error {
		return boom
	})

	fill(ctx, m)
	err := m.Submit(ctx)
	require.ErrorIs(t, err, boom)

	st := m.State()
	require.Equal(t, boom.Error(), st.LastError)
	require.Equal(t, "Night Owls", st.Data.TeamName)

	// The snapshot survives for a later retry.
	snap, loadErr := store.Load(ctx, SnapshotKey("u1", "t1"))
	require.NoError(t, loadErr)
	require.NotNil(t, snap)
	require.Equal(t, "Night Owls", snap.Data.TeamName)
}

func TestMachine_SubmitSuccessResets(t *testing.T) {
	ctx := context.Background()
	var got StepData
	m, store := newTestMachine(t, func(_ context.Context, d StepData) error {
		got = d
		return nil
	})

	fill(ctx, m)
	require.NoError(t, m.Submit(ctx))
	require.Equal(t, "Night Owls", got.TeamName)
	require.Equal(t, PaymentWallet, got.PaymentMethod)

	st := m.State()
	require.Equal(t, StepReview, st.Step)
	require.Equal(t, StepData{}, st.Data)

	snap, err := store.Load(ctx, SnapshotKey("u1", "t1"))
	require.NoError(t, err)
	require.Nil(t, snap)
}

func TestMachine_RestoresFromSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySnapshotStore()
	key := SnapshotKey("u1", "t1")

	first := NewMachine(ctx, store, key, nil)
	first.UpdateData(ctx, func(d StepData) StepData {
		d.TeamName = "Night Owls"
		d.TournamentID = "t1"
		d.PaymentMethod = PaymentCard
		return d
	})
	first.Next(ctx)
	require.Equal(t, StepPayment, first.State().Step)

	// A fresh machine (new process) picks up where the draft left off.
	second := NewMachine(ctx, store, key, nil)
	st := second.State()
	require.Equal(t, StepPayment, st.Step)
	require.Equal(t, "Night Owls", st.Data.TeamName)
}

func TestMachine_SubscribeReplaysCurrentState(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t, nil)

	var states []State
	unsub := m.Subscribe(func(s State) { states = append(states, s) })
	require.Len(t, states, 1)
	require.Equal(t, StepReview, states[0].Step)

	m.UpdateData(ctx, func(d StepData) StepData {
		d.TeamName = "AB"
		return d
	})
	require.Len(t, states, 2)

	unsub()
	m.Previous(ctx)
	require.Len(t, states, 2)
}

func fill(ctx context.Context, m *Machine) {
	m.UpdateData(ctx, func(d StepData) StepData {
		d.TeamName = "Night Owls"
		d.TournamentID = "t1"
		d.PaymentMethod = PaymentWallet
		d.TermsAccepted = true
		return d
	})
}
