package models

import "time"

// XPSource identifies which academy action produced a ledger entry
type XPSource string

const (
	SourceCourseCompletion XPSource = "course_completion"
	SourceBountySubmission XPSource = "bounty_submission"
	SourceBountyWinner     XPSource = "bounty_winner_bonus"
	SourceDailyLogin       XPSource = "daily_login"
	SourceAdminAdjustment  XPSource = "admin_adjustment"
)

// XPEvent is one append-only entry in the XP ledger. Rows are never
// updated or deleted; the sum of Delta per wallet is the authoritative
// XP total. IdempotencyKey is derived from (wallet, source, reference)
// so a retried award maps onto the same row and the unique index
// rejects the duplicate insert.
type XPEvent struct {
	ID             string   `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress  string   `gorm:"index;not null" json:"wallet_address"`
	Delta          int64    `gorm:"not null" json:"delta"` // signed; negative only for admin corrections
	Source         XPSource `gorm:"type:varchar(32);not null" json:"source"`
	ReferenceID    string   `gorm:"not null" json:"reference_id"` // course ID, submission ID, claim date, ...
	Reason         string   `json:"reason,omitempty"`
	IdempotencyKey string   `gorm:"uniqueIndex;not null" json:"idempotency_key"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
