package models

import "time"

// StreakRecord tracks daily-login streaks per wallet. One row per wallet,
// mutated in place by the streak service. LastClaimDate is a UTC calendar
// date (midnight timestamp) — the academy runs on a single canonical
// calendar, no per-user timezones.
type StreakRecord struct {
	ID            string     `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress string     `gorm:"uniqueIndex;not null" json:"wallet_address"`
	CurrentStreak int        `json:"current_streak" gorm:"default:0"`
	LongestStreak int        `json:"longest_streak" gorm:"default:0"`
	LastClaimDate *time.Time `json:"last_claim_date,omitempty"`

	Timestamps
}
