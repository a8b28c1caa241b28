package services

import (
	"log"
	"time"

	"tournament-arena-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartLifecycleScheduler runs the minute-level housekeeping this service is
// trusted with: completing overdue tournaments and reconciling the
// registered_teams display counter from the registrations table. The
// registration transaction deliberately never touches that counter.
func (s *TournamentService) StartLifecycleScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			s.completeOverdue()
			s.reconcileCounters()
		}),
	)
}

// completeOverdue marks published tournaments as completed once their end
// boundary (start + 2h when no explicit completion exists) has passed.
func (s *TournamentService) completeOverdue() {
	var tournaments []models.Tournament
	now := time.Now()
	err := s.DB.
		Where("status = ? AND completed_at IS NULL AND start_time <= ?",
			models.TournamentStatusPublished, now.Add(-models.DefaultDuration)).
		Find(&tournaments).Error
	if err != nil {
		log.Printf("[Scheduler] DB error: %v", err)
		return
	}

	for _, t := range tournaments {
		completedAt := t.StartTime.Add(models.DefaultDuration)
		err := s.DB.Model(&t).Updates(map[string]interface{}{
			"status":       models.TournamentStatusCompleted,
			"completed_at": &completedAt,
		}).Error
		if err != nil {
			log.Printf("[Scheduler] failed to complete tournament %s: %v", t.ID, err)
		} else {
			log.Printf("Auto-completed tournament: %s", t.Name)
		}
	}
}

// reconcileCounters makes registered_teams converge on the true row count.
// Display reads may be transiently stale between runs; capacity enforcement
// never relies on this counter.
func (s *TournamentService) reconcileCounters() {
	err := s.DB.Exec(`
		UPDATE tournaments t
		SET registered_teams = sub.cnt
		FROM (
			SELECT tournament_id, COUNT(*) AS cnt
			FROM tournament_registrations
			GROUP BY tournament_id
		) sub
		WHERE t.id = sub.tournament_id
		  AND t.registered_teams <> sub.cnt
	`).Error
	if err != nil {
		log.Printf("[Scheduler] counter reconciliation failed: %v", err)
	}
}
