package models

import "time"

// SubmissionStatus is the moderation state of a bounty submission
type SubmissionStatus string

const (
	SubmissionSubmitted     SubmissionStatus = "submitted"
	SubmissionApproved      SubmissionStatus = "approved"
	SubmissionRejected      SubmissionStatus = "rejected"
	SubmissionNeedsRevision SubmissionStatus = "needs_revision"
)

// Placement is a competitive rank on an approved submission
type Placement string

const (
	PlacementFirst  Placement = "first"
	PlacementSecond Placement = "second"
	PlacementThird  Placement = "third"
)

// BountySubmission = one user entry for a bounty. Rows only move forward
// (submitted → approved/rejected/needs_revision) and are never deleted;
// a resubmission after needs_revision creates a fresh row so the audit
// trail keeps every attempt.
type BountySubmission struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	BountyID      string `gorm:"index;not null" json:"bounty_id"` // links to external bounty content service
	WalletAddress string `gorm:"index;not null" json:"wallet_address"`

	// Submission payload
	Title      string `json:"title,omitempty"`
	Submission string `gorm:"type:text" json:"submission,omitempty"` // link or text of the entry

	// Moderation
	Status     SubmissionStatus `gorm:"type:varchar(16);not null;default:'submitted'" json:"status"`
	Reviewer   string           `json:"reviewer,omitempty"`
	ReviewedAt *time.Time       `json:"reviewed_at,omitempty"`

	// XP & prizes
	Placement *Placement `gorm:"type:varchar(8)" json:"placement,omitempty"` // set at most once, approved only
	XPAwarded int64      `json:"xp_awarded" gorm:"default:0"`
	SOLPrize  float64    `json:"sol_prize" gorm:"default:0"` // non-XP prize, metadata only — never enters the ledger

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
