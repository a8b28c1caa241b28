package services

import (
	"fmt"
	"log"
	"maps"
	"sync"
	"time"

	"tournament-arena-system/models"
	"tournament-arena-system/utils"

	"github.com/go-co-op/gocron/v2"
)

// CountdownService recomputes human-readable time-remaining strings once a
// second over the currently loaded tournament list. Downstream observers are
// only notified when the computed map actually changed.
type CountdownService struct {
	mu          sync.Mutex
	tournaments []models.Tournament
	current     map[string]string

	states *utils.StateHolder[map[string]string]
	sched  gocron.Scheduler
}

func NewCountdownService() *CountdownService {
	return &CountdownService{
		current: map[string]string{},
		states:  utils.NewStateHolder[map[string]string](),
	}
}

// SetTournaments replaces the list the ticker iterates. Called whenever the
// tournament list is (re)loaded.
func (s *CountdownService) SetTournaments(ts []models.Tournament) {
	s.mu.Lock()
	s.tournaments = ts
	s.mu.Unlock()
}

// Start launches the 1-second ticker job. It runs for the lifetime of the
// service and must be stopped on teardown.
func (s *CountdownService) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	s.sched = sched
	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Second),
		gocron.NewTask(s.tick),
	)
	if err != nil {
		return err
	}
	sched.Start()
	return nil
}

// Stop cancels the ticker.
func (s *CountdownService) Stop() {
	if s.sched != nil {
		if err := s.sched.Shutdown(); err != nil {
			log.Printf("[COUNTDOWN] scheduler shutdown: %v", err)
		}
	}
}

func (s *CountdownService) tick() {
	now := time.Now()
	s.mu.Lock()
	next := ComputeCountdowns(s.tournaments, now)
	if maps.Equal(s.current, next) {
		s.mu.Unlock()
		return
	}
	s.current = next
	published := maps.Clone(next)
	s.mu.Unlock()

	s.states.Set(published)
}

// Countdowns returns the last computed map.
func (s *CountdownService) Countdowns() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.current)
}

// Subscribe registers a listener for countdown changes; the current map is
// replayed immediately.
func (s *CountdownService) Subscribe(fn func(map[string]string)) func() {
	return s.states.Subscribe(fn)
}

// ComputeCountdowns builds the id -> remaining-time map for one instant.
// Upcoming states count down to the start time, ongoing states to the end
// boundary; completed tournaments get no entry.
func ComputeCountdowns(ts []models.Tournament, now time.Time) map[string]string {
	out := make(map[string]string, len(ts))
	for i := range ts {
		t := &ts[i]
		switch t.Lifecycle(now) {
		case models.StatusUpcoming, models.StatusStartsSoon, models.StatusRoomOpen:
			out[t.ID] = FormatRemaining(t.StartTime.Sub(now))
		case models.StatusOngoing:
			out[t.ID] = FormatRemaining(t.EndBoundary().Sub(now))
		}
	}
	return out
}

// FormatRemaining renders a duration as HH:MM:SS, or MM:SS when under an
// hour. Negative durations clamp to zero.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
