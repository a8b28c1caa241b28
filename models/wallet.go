package models

import (
	"time"

	"gorm.io/gorm"
)

// Wallet holds a user's balance split into two buckets. BonusBalance is
// promotional credit spent first on entry fees and never withdrawable;
// WithdrawableBalance is real funds.
type Wallet struct {
	UserID              string  `json:"user_id" gorm:"primaryKey"`
	BonusBalance        float64 `json:"bonus_balance" gorm:"default:0"`
	WithdrawableBalance float64 `json:"withdrawable_balance" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TotalBalance is what the player sees as their balance.
func (w *Wallet) TotalBalance() float64 {
	return w.BonusBalance + w.WithdrawableBalance
}

// TransactionType classifies wallet ledger entries.
type TransactionType string

const (
	TransactionTypeEntryFee   TransactionType = "entry_fee"
	TransactionTypeKillReward TransactionType = "kill_reward"
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

// WalletTransaction is an append-only ledger row. Fee deductions are stored
// with a negative amount, credits with a positive one.
type WalletTransaction struct {
	ID           string          `json:"id" gorm:"primaryKey"`
	UserID       string          `json:"user_id" gorm:"not null;index"`
	TournamentID string          `json:"tournament_id,omitempty" gorm:"index"`
	Type         TransactionType `json:"type" gorm:"not null"`
	Amount       float64         `json:"amount" gorm:"not null"`
	BalanceAfter float64         `json:"balance_after"`
	Description  string          `json:"description"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
