package models

import (
	"encoding/json"
	"time"
)

// SubmissionStatus is the one-way state machine of a result submission.
// A document that reached StatusPrizeDistributed must never be paid again.
type SubmissionStatus string

const (
	StatusPendingVerification SubmissionStatus = "Pending Verification"
	StatusVerifiedNoPrize     SubmissionStatus = "Verified - No Prize"
	StatusPrizeDistributed    SubmissionStatus = "Prize Distributed"
	StatusVerificationFailed  SubmissionStatus = "Verification Failed"
)

// ResultSubmission records a proof-of-result screenshot, the fields the
// image analysis extracted from it, and an audit snapshot of the tournament
// taken before analysis. The snapshot freezes the reward basis so later
// edits to the tournament cannot retroactively change a payout.
type ResultSubmission struct {
	ID           string `json:"id" gorm:"primaryKey"`
	TournamentID string `json:"tournament_id" gorm:"not null;index"`
	UserID       string `json:"user_id" gorm:"not null;index"`

	ScreenshotURL string `json:"screenshot_url"`

	// Analyzed fields, exactly as extracted.
	AnalyzedRank        int    `json:"analyzed_rank"`
	AnalyzedKills       int    `json:"analyzed_kills"`
	AnalyzedMaxCapacity int    `json:"analyzed_max_capacity"`
	AnalyzedPlayerName  string `json:"analyzed_player_name"`

	// Audit snapshot, frozen before analysis.
	AuditedMaxTeams   int     `json:"audited_max_teams"`
	AuditedKillReward float64 `json:"audited_kill_reward"`
	AuditedPrizePool  string  `json:"audited_prize_pool"`
	AuditedPlayerIDs  string  `json:"-" gorm:"type:text;column:audited_player_ids"`

	// KillPrize = kills x audited kill reward, computed once at submit time.
	KillPrize float64 `json:"kill_prize"`

	Status                    SubmissionStatus `json:"status" gorm:"default:'Pending Verification'"`
	VerificationFailureReason string           `json:"verification_failure_reason,omitempty"`
	PaidAt                    *time.Time       `json:"paid_at,omitempty"`

	Timestamps
}

// SetAuditedPlayerIDs encodes the registered player list into the snapshot.
func (s *ResultSubmission) SetAuditedPlayerIDs(ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	s.AuditedPlayerIDs = string(raw)
	return nil
}

// AuditedPlayerIDList decodes the snapshotted player list.
func (s *ResultSubmission) AuditedPlayerIDList() []string {
	if s.AuditedPlayerIDs == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(s.AuditedPlayerIDs), &ids); err != nil {
		return nil
	}
	return ids
}
