package models

import (
	"time"
)

// TournamentStatus is the raw, stored lifecycle flag. The user-facing
// lifecycle (ComputedStatus) is derived from timestamps at read time and is
// never written to the database.
type TournamentStatus string

const (
	TournamentStatusDraft     TournamentStatus = "draft"
	TournamentStatusPublished TournamentStatus = "published"
	TournamentStatusCancelled TournamentStatus = "cancelled"
	TournamentStatusCompleted TournamentStatus = "completed"
)

// ComputedStatus is the derived lifecycle state shown to players.
type ComputedStatus string

const (
	StatusUpcoming   ComputedStatus = "UPCOMING"
	StatusStartsSoon ComputedStatus = "STARTS_SOON"
	StatusRoomOpen   ComputedStatus = "ROOM_OPEN"
	StatusOngoing    ComputedStatus = "ONGOING"
	StatusCompleted  ComputedStatus = "COMPLETED"
)

// Lifecycle thresholds relative to StartTime.
const (
	StartsSoonWindow = 60 * time.Minute
	RoomOpenWindow   = 15 * time.Minute
	DefaultDuration  = 2 * time.Hour
)

// Tournament represents a single eSports tournament players can register for.
type Tournament struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Slug        string `json:"slug" gorm:"uniqueIndex"`
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`
	Game        string `json:"game"`
	Rules       string `json:"rules"`

	EntryFee   float64 `json:"entry_fee" gorm:"default:0"`
	PrizePool  string  `json:"prize_pool"`
	KillReward float64 `json:"kill_reward" gorm:"default:0"`

	MaxTeams int `json:"max_teams" gorm:"default:0"`
	// RegisteredTeams is a display counter reconciled by the lifecycle
	// scheduler, never incremented inside the registration transaction.
	// Capacity checks count registration rows under lock instead.
	RegisteredTeams int `json:"registered_teams" gorm:"default:0"`

	StartTime   time.Time  `json:"start_time" gorm:"not null"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Room credentials are only exposed once the room opens.
	RoomID       string `json:"room_id,omitempty"`
	RoomPassword string `json:"room_password,omitempty"`

	BannerURL string           `json:"banner_url"`
	Status    TournamentStatus `json:"status" gorm:"default:'draft'"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Calculated fields (not stored in DB)
	LiveStatus ComputedStatus `json:"live_status,omitempty" gorm:"-"`
	Countdown  string         `json:"countdown,omitempty" gorm:"-"`
}

// EndBoundary returns the moment the tournament stops counting as ongoing:
// the explicit completion time if one was recorded, otherwise start + 2h.
func (t *Tournament) EndBoundary() time.Time {
	if t.CompletedAt != nil {
		return *t.CompletedAt
	}
	return t.StartTime.Add(DefaultDuration)
}

// Lifecycle derives the user-facing status from timestamps at read time.
func (t *Tournament) Lifecycle(now time.Time) ComputedStatus {
	if t.Status == TournamentStatusCompleted || t.Status == TournamentStatusCancelled {
		return StatusCompleted
	}
	if !now.Before(t.EndBoundary()) {
		return StatusCompleted
	}
	if !now.Before(t.StartTime) {
		return StatusOngoing
	}
	until := t.StartTime.Sub(now)
	switch {
	case until <= RoomOpenWindow:
		return StatusRoomOpen
	case until <= StartsSoonWindow:
		return StatusStartsSoon
	default:
		return StatusUpcoming
	}
}

// RegistrationOpen reports whether new registrations are still accepted.
// Registration closes once the room opens.
func (t *Tournament) RegistrationOpen(now time.Time) bool {
	if t.Status != TournamentStatusPublished {
		return false
	}
	s := t.Lifecycle(now)
	return s == StatusUpcoming || s == StatusStartsSoon
}
