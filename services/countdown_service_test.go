package services

import (
	"testing"
	"time"

	"tournament-arena-system/models"

	"github.com/stretchr/testify/require"
)

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{name: "zero", d: 0, want: "00:00"},
		{name: "seconds only", d: 42 * time.Second, want: "00:42"},
		{name: "under an hour", d: 14*time.Minute + 5*time.Second, want: "14:05"},
		{name: "just under an hour", d: 59*time.Minute + 59*time.Second, want: "59:59"},
		{name: "exactly one hour", d: time.Hour, want: "01:00:00"},
		{name: "hours", d: 2*time.Hour + 3*time.Minute + 4*time.Second, want: "02:03:04"},
		{name: "negative clamps to zero", d: -5 * time.Second, want: "00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FormatRemaining(tt.d))
		})
	}
}

func TestComputeCountdowns(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	done := now.Add(-time.Minute)

	ts := []models.Tournament{
		{ID: "upcoming", Status: models.TournamentStatusPublished, StartTime: now.Add(3 * time.Hour)},
		{ID: "starts-soon", Status: models.TournamentStatusPublished, StartTime: now.Add(30 * time.Minute)},
		{ID: "room-open", Status: models.TournamentStatusPublished, StartTime: now.Add(10 * time.Minute)},
		{ID: "ongoing", Status: models.TournamentStatusPublished, StartTime: now.Add(-90 * time.Minute)},
		{ID: "completed", Status: models.TournamentStatusPublished, StartTime: now.Add(-3 * time.Hour)},
		{ID: "flagged-done", Status: models.TournamentStatusCompleted, StartTime: now.Add(time.Hour), CompletedAt: &done},
	}

	got := ComputeCountdowns(ts, now)

	// Pre-start states count down to the start time.
	require.Equal(t, "03:00:00", got["upcoming"])
	require.Equal(t, "30:00", got["starts-soon"])
	require.Equal(t, "10:00", got["room-open"])

	// Ongoing counts down to the end boundary (start + 2h).
	require.Equal(t, "30:00", got["ongoing"])

	// Completed tournaments get no entry at all.
	require.NotContains(t, got, "completed")
	require.NotContains(t, got, "flagged-done")
	require.Len(t, got, 4)
}

func TestCountdownService_PublishesOnlyOnChange(t *testing.T) {
	s := NewCountdownService()
	now := time.Now()
	s.SetTournaments([]models.Tournament{
		{ID: "t1", Status: models.TournamentStatusPublished, StartTime: now.Add(time.Hour)},
	})

	var published []map[string]string
	s.Subscribe(func(m map[string]string) { published = append(published, m) })

	s.tick()
	first := len(published)
	require.GreaterOrEqual(t, first, 1)

	// Within the same wall-clock second the map is unchanged and no new
	// notification fires; ticking twice back-to-back must not double up.
	s.tick()
	s.tick()
	require.LessOrEqual(t, len(published), first+1)

	require.Contains(t, s.Countdowns(), "t1")
}

func TestCountdownService_CountdownsReturnsCopy(t *testing.T) {
	s := NewCountdownService()
	s.SetTournaments([]models.Tournament{
		{ID: "t1", Status: models.TournamentStatusPublished, StartTime: time.Now().Add(time.Hour)},
	})
	s.tick()

	snapshot := s.Countdowns()
	snapshot["t1"] = "tampered"
	require.NotEqual(t, "tampered", s.Countdowns()["t1"])
}
