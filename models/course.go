package models

import "time"

// CourseCompletion records a user finishing a course (append-only).
// Course content itself lives in an external service; we only keep the
// completion fact plus the XP it carried.
type CourseCompletion struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress string `gorm:"index;not null" json:"wallet_address"`
	CourseID      string `gorm:"index;not null" json:"course_id"`
	CourseName    string `json:"course_name,omitempty"`

	// XP awarded (pre-calculated to avoid recomputation)
	XPEarned int64 `json:"xp_earned" gorm:"default:0"`

	CompletedAt time.Time `json:"completed_at" gorm:"autoCreateTime"`
}
