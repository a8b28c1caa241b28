package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RegistrationKey builds the deterministic composite key for a registration.
// Using it as the primary key doubles as the uniqueness constraint and the
// idempotency guard against duplicate submissions.
func RegistrationKey(userID, tournamentID string) string {
	return fmt.Sprintf("%s_%s", userID, tournamentID)
}

// TournamentRegistration records one team's paid slot in a tournament.
type TournamentRegistration struct {
	ID           string `json:"id" gorm:"primaryKey"` // {userID}_{tournamentID}
	TournamentID string `json:"tournament_id" gorm:"not null;index"`
	UserID       string `json:"user_id" gorm:"not null;index"`

	TeamName string `json:"team_name" gorm:"not null"`
	// PlayerIDs is the ordered list of in-game IDs, JSON-encoded.
	PlayerIDs string `json:"-" gorm:"type:text;column:player_ids"`

	PaymentStatus string  `json:"payment_status" gorm:"default:'paid'"`
	PaymentMethod string  `json:"payment_method"`
	AmountPaid    float64 `json:"amount_paid"`

	// Username is a display-name snapshot taken at registration time.
	Username     string    `json:"username"`
	RegisteredAt time.Time `json:"registered_at" gorm:"autoCreateTime"`
}

// SetPlayerIDs encodes the ordered player list into the stored column.
func (r *TournamentRegistration) SetPlayerIDs(ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	r.PlayerIDs = string(raw)
	return nil
}

// PlayerIDList decodes the stored player list. A corrupt or empty column
// yields an empty slice rather than an error to keep read paths total.
func (r *TournamentRegistration) PlayerIDList() []string {
	if r.PlayerIDs == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(r.PlayerIDs), &ids); err != nil {
		return nil
	}
	return ids
}
