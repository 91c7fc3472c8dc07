package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"hoodie-academy/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BountyService struct {
	Ledger *LedgerService
	DB     *gorm.DB
}

func NewBountyService(db *gorm.DB, ledger *LedgerService) *BountyService {
	return &BountyService{DB: db, Ledger: ledger}
}

// Submit creates a fresh submission row for a bounty. A wallet with a
// pending or already-approved entry for the same bounty cannot submit
// again; a needs_revision or rejected entry is resubmittable — the old
// row stays untouched as audit trail.
func (s *BountyService) Submit(bountyID, wallet, title, submission string) (*models.BountySubmission, error) {
	if bountyID == "" || wallet == "" {
		return nil, fmt.Errorf("%w: bounty id and wallet are required", ErrInvalidAmount)
	}

	var sub models.BountySubmission
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var blocking int64
		if err := tx.Model(&models.BountySubmission{}).
			Where("bounty_id = ? AND wallet_address = ? AND status IN ?",
				bountyID, wallet,
				[]models.SubmissionStatus{models.SubmissionSubmitted, models.SubmissionApproved}).
			Count(&blocking).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if blocking > 0 {
			return fmt.Errorf("%w: wallet already has a pending or approved entry for bounty %s", ErrState, bountyID)
		}

		sub = models.BountySubmission{
			ID:            uuid.NewString(),
			BountyID:      bountyID,
			WalletAddress: wallet,
			Title:         title,
			Submission:    submission,
			Status:        models.SubmissionSubmitted,
		}
		if err := tx.Create(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// The open-entry unique index caught a submit racing past
				// the count check.
				return fmt.Errorf("%w: wallet already has a pending or approved entry for bounty %s", ErrState, bountyID)
			}
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Moderate moves a submission out of the submitted state. Only
// submitted → approved/rejected/needs_revision is legal; anything else
// is a StateError. Approval awards XP through the ledger keyed on the
// submission id, so a duplicated moderation call can never double-pay
// even if it slips past the state check.
func (s *BountyService) Moderate(submissionID string, decision models.SubmissionStatus, reviewer string, xp int64) (*models.BountySubmission, error) {
	switch decision {
	case models.SubmissionApproved, models.SubmissionRejected, models.SubmissionNeedsRevision:
	default:
		return nil, fmt.Errorf("%w: unknown decision %q", ErrInvalidAmount, decision)
	}

	var sub models.BountySubmission
	var awardRes *AwardResult
	var awardDelta int64

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", submissionID).First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
			}
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if sub.Status != models.SubmissionSubmitted {
			return fmt.Errorf("%w: submission %s is %s, only submitted entries can be moderated", ErrState, submissionID, sub.Status)
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":      decision,
			"reviewer":    reviewer,
			"reviewed_at": &now,
		}

		if decision == models.SubmissionApproved {
			if xp <= 0 {
				xp = s.Ledger.Weights.BountyXP
			}
			reason := fmt.Sprintf("bounty %s approved", sub.BountyID)
			res, err := s.Ledger.AwardTx(tx, sub.WalletAddress, xp, models.SourceBountySubmission, sub.ID, reason, AwardOptions{})
			if err != nil {
				return err
			}
			awardRes = res
			awardDelta = xp
			updates["xp_awarded"] = xp
		}

		// The status predicate makes the transition first-writer-wins:
		// if a concurrent moderation committed between our read and this
		// write, zero rows match and the whole tx (award included) rolls
		// back instead of overwriting a terminal state.
		result := tx.Model(&models.BountySubmission{}).
			Where("id = ? AND status = ?", submissionID, models.SubmissionSubmitted).
			Updates(updates)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return result.Error
			}
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: submission %s was moderated by a concurrent call", ErrState, submissionID)
		}

		sub.Status = decision
		sub.Reviewer = reviewer
		sub.ReviewedAt = &now
		if decision == models.SubmissionApproved {
			sub.XPAwarded = xp
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Concurrent moderation already awarded this submission.
		return nil, fmt.Errorf("%w: submission %s was moderated by a concurrent call", ErrState, submissionID)
	}
	if err != nil {
		return nil, err
	}

	if awardRes != nil {
		s.Ledger.EmitAwardSignals(sub.WalletAddress, awardDelta, models.SourceBountySubmission, awardRes)
	}
	log.Printf("🏴 Bounty submission %s → %s (reviewer: %s)", submissionID, sub.Status, reviewer)
	return &sub, nil
}

// AwardWinner assigns a placement to an approved submission, at most
// once, and pays the placement bonus as a second ledger entry keyed on
// the submission id. A non-XP prize (SOL) is recorded on the row as
// metadata — it never touches the ledger.
func (s *BountyService) AwardWinner(submissionID string, placement models.Placement, xpBonus int64, solPrize float64) (*models.BountySubmission, error) {
	bonus, ok := PlacementBonusXP[placement]
	if !ok {
		return nil, fmt.Errorf("%w: unknown placement %q", ErrInvalidAmount, placement)
	}
	if xpBonus > 0 {
		bonus = xpBonus
	}

	var sub models.BountySubmission
	var awardRes *AwardResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", submissionID).First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
			}
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if sub.Status != models.SubmissionApproved {
			return fmt.Errorf("%w: submission %s is %s, only approved entries can place", ErrState, submissionID, sub.Status)
		}
		if sub.Placement != nil {
			return fmt.Errorf("%w: submission %s already placed %s", ErrState, submissionID, *sub.Placement)
		}

		reason := fmt.Sprintf("bounty %s winner (%s place)", sub.BountyID, placement)
		res, err := s.Ledger.AwardTx(tx, sub.WalletAddress, bonus, models.SourceBountyWinner, sub.ID, reason, AwardOptions{})
		if err != nil {
			return err
		}
		awardRes = res

		// Same first-writer-wins guard as Moderate: the placement must
		// still be free at write time or the bonus rolls back.
		result := tx.Model(&models.BountySubmission{}).
			Where("id = ? AND status = ? AND placement IS NULL", submissionID, models.SubmissionApproved).
			Updates(map[string]interface{}{
				"placement":  placement,
				"xp_awarded": sub.XPAwarded + bonus,
				"sol_prize":  solPrize,
			})
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return result.Error
			}
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: submission %s was placed by a concurrent call", ErrState, submissionID)
		}

		sub.Placement = &placement
		sub.XPAwarded += bonus
		sub.SOLPrize = solPrize
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("%w: submission %s already holds a winner bonus", ErrState, submissionID)
	}
	if err != nil {
		return nil, err
	}

	if awardRes != nil {
		s.Ledger.EmitAwardSignals(sub.WalletAddress, bonus, models.SourceBountyWinner, awardRes)
	}
	log.Printf("🏆 Bounty winner: submission %s placed %s (+%d XP, %.2f SOL)", submissionID, placement, bonus, solPrize)
	return &sub, nil
}

// GetSubmission loads one submission.
func (s *BountyService) GetSubmission(submissionID string) (*models.BountySubmission, error) {
	var sub models.BountySubmission
	if err := s.DB.Where("id = ?", submissionID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &sub, nil
}

// ListSubmissions returns a wallet's submissions, newest first.
func (s *BountyService) ListSubmissions(wallet string, page, size int) ([]models.BountySubmission, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	var total int64
	if err := s.DB.Model(&models.BountySubmission{}).Where("wallet_address = ?", wallet).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var subs []models.BountySubmission
	if err := s.DB.Where("wallet_address = ?", wallet).
		Order("created_at DESC").
		Limit(size).Offset((page - 1) * size).
		Find(&subs).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return subs, total, nil
}
