package services

import (
	"errors"
	"fmt"
	"time"

	"hoodie-academy/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StreakService struct {
	Ledger *LedgerService
	DB     *gorm.DB
}

func NewStreakService(db *gorm.DB, ledger *LedgerService) *StreakService {
	return &StreakService{DB: db, Ledger: ledger}
}

// ClaimResult is the outcome of a daily-login claim. AlreadyClaimed is an
// expected outcome, not an error — the handler returns it with 200.
type ClaimResult struct {
	CurrentStreak  int   `json:"current_streak"`
	LongestStreak  int   `json:"longest_streak"`
	XPAwarded      int64 `json:"xp_awarded"`
	AlreadyClaimed bool  `json:"already_claimed"`
	NewTotal       int64 `json:"new_total"`
	LeveledUp      bool  `json:"leveled_up"`
	NewLevel       int   `json:"new_level"`
}

// claimDay truncates to the canonical calendar day. The academy runs on
// UTC — server locale and user timezones never enter streak math.
func claimDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ClaimDailyLogin advances the wallet's streak for the given date. The
// award funnels through the ledger keyed on (wallet, daily_login, day),
// so a retried claim for the same day can neither double-pay nor
// double-increment the streak.
func (s *StreakService) ClaimDailyLogin(wallet string, date time.Time) (*ClaimResult, error) {
	if wallet == "" {
		return nil, fmt.Errorf("%w: wallet is required", ErrInvalidAmount)
	}
	today := claimDay(date)

	res, awardRes, awardDelta, err := s.claimOnce(wallet, today)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A unique index fired. If the day's ledger row exists, the other
		// same-day claim won; otherwise the collision was the streak (or
		// user) row create for a brand-new wallet — retry once now that
		// the row exists.
		key := IdempotencyKey(wallet, models.SourceDailyLogin, today.Format("2006-01-02"))
		var ev models.XPEvent
		evErr := s.DB.Where("idempotency_key = ?", key).First(&ev).Error
		if evErr == nil {
			rec, recErr := s.GetStreak(wallet)
			if recErr != nil {
				return nil, recErr
			}
			return &ClaimResult{
				CurrentStreak:  rec.CurrentStreak,
				LongestStreak:  rec.LongestStreak,
				AlreadyClaimed: true,
			}, nil
		}
		if !errors.Is(evErr, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, evErr)
		}
		res, awardRes, awardDelta, err = s.claimOnce(wallet, today)
	}
	if err != nil {
		return nil, err
	}

	if awardRes != nil {
		s.Ledger.EmitAwardSignals(wallet, awardDelta, models.SourceDailyLogin, awardRes)
	}
	return res, nil
}

func (s *StreakService) claimOnce(wallet string, today time.Time) (*ClaimResult, *AwardResult, int64, error) {
	var res ClaimResult
	var awardRes *AwardResult
	var awardDelta int64

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		rec, err := s.ensureRecordTx(tx, wallet)
		if err != nil {
			return err
		}

		if rec.LastClaimDate != nil && claimDay(*rec.LastClaimDate).Equal(today) {
			res = ClaimResult{
				CurrentStreak:  rec.CurrentStreak,
				LongestStreak:  rec.LongestStreak,
				AlreadyClaimed: true,
			}
			return nil
		}

		newStreak := 1
		xp := s.Ledger.Weights.DailyLoginXP
		if rec.LastClaimDate != nil && claimDay(*rec.LastClaimDate).AddDate(0, 0, 1).Equal(today) {
			newStreak = rec.CurrentStreak + 1
			xp += s.Ledger.Weights.StreakBonusXP
		}

		dayKey := today.Format("2006-01-02")
		reason := fmt.Sprintf("daily login (streak %d)", newStreak)
		awardRes, err = s.Ledger.AwardTx(tx, wallet, xp, models.SourceDailyLogin, dayKey, reason, AwardOptions{})
		if err != nil {
			return err
		}
		if awardRes.Duplicate {
			// Concurrent claim for the same day already landed; report
			// it as claimed and leave the streak row alone.
			res = ClaimResult{
				CurrentStreak:  rec.CurrentStreak,
				LongestStreak:  rec.LongestStreak,
				AlreadyClaimed: true,
			}
			awardRes = nil
			return nil
		}
		awardDelta = xp

		rec.CurrentStreak = newStreak
		if newStreak > rec.LongestStreak {
			rec.LongestStreak = newStreak
		}
		rec.LastClaimDate = &today
		if err := tx.Save(rec).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		res = ClaimResult{
			CurrentStreak: rec.CurrentStreak,
			LongestStreak: rec.LongestStreak,
			XPAwarded:     xp,
			NewTotal:      awardRes.NewTotal,
			LeveledUp:     awardRes.LeveledUp,
			NewLevel:      awardRes.NewLevel,
		}
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}
	return &res, awardRes, awardDelta, nil
}

// GetStreak returns the wallet's streak row (zero-valued if never claimed).
func (s *StreakService) GetStreak(wallet string) (*models.StreakRecord, error) {
	var rec models.StreakRecord
	err := s.DB.Where("wallet_address = ?", wallet).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.StreakRecord{WalletAddress: wallet}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &rec, nil
}

func (s *StreakService) ensureRecordTx(tx *gorm.DB, wallet string) (*models.StreakRecord, error) {
	var rec models.StreakRecord
	err := tx.Where("wallet_address = ?", wallet).First(&rec).Error
	if err == nil {
		return &rec, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	rec = models.StreakRecord{
		ID:            uuid.NewString(),
		WalletAddress: wallet,
	}
	if err := tx.Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another claim created the row first; keep the chain so the
			// caller can retry against the now-existing record.
			return nil, fmt.Errorf("create streak record %s: %w", wallet, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &rec, nil
}
