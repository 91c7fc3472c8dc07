package services

import (
	"fmt"

	"hoodie-academy/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompleteCourse records a course completion and awards course XP in one
// transaction. Re-completing the same course is a ledger no-op (keyed on
// the course id) and does not add a second completion row.
func (s *LedgerService) CompleteCourse(wallet, courseID, courseName string, xpOverride int64) (*AwardResult, error) {
	if courseID == "" {
		return nil, fmt.Errorf("%w: course id is required", ErrInvalidAmount)
	}
	xp := s.Weights.CourseXP
	if xpOverride > 0 {
		xp = xpOverride
	}

	var res *AwardResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		reason := fmt.Sprintf("completed course %s", courseID)
		awardRes, err := s.AwardTx(tx, wallet, xp, models.SourceCourseCompletion, courseID, reason, AwardOptions{})
		if err != nil {
			return err
		}
		res = awardRes
		if awardRes.Duplicate {
			return nil
		}

		completion := models.CourseCompletion{
			ID:            uuid.NewString(),
			WalletAddress: wallet,
			CourseID:      courseID,
			CourseName:    courseName,
			XPEarned:      xp,
		}
		if err := tx.Create(&completion).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitSignals(wallet, xp, models.SourceCourseCompletion, res)
	return res, nil
}

// GetCompletions returns a wallet's completed courses, newest first.
func (s *LedgerService) GetCompletions(wallet string) ([]models.CourseCompletion, error) {
	var completions []models.CourseCompletion
	if err := s.DB.Where("wallet_address = ?", wallet).
		Order("completed_at DESC").
		Find(&completions).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return completions, nil
}
