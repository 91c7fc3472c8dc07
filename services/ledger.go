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

// XPWeights define relative values (tunable via config/env later)
type XPWeights struct {
	CourseXP      int64 // per completed course, unless the course overrides it
	BountyXP      int64 // base award on submission approval
	DailyLoginXP  int64 // first claim / streak reset
	StreakBonusXP int64 // extra per claim while a streak is alive
}

var DefaultXPWeights = XPWeights{
	CourseXP:      100,
	BountyXP:      250,
	DailyLoginXP:  10,
	StreakBonusXP: 5,
}

// PlacementBonusXP is the single canonical placement-bonus table. Every
// winner award reads from here — never duplicate these constants at call
// sites.
var PlacementBonusXP = map[models.Placement]int64{
	models.PlacementFirst:  1000,
	models.PlacementSecond: 600,
	models.PlacementThird:  300,
}

// idemNamespace seeds deterministic idempotency keys (uuid v5).
var idemNamespace = uuid.MustParse("8f0c2e34-9a61-4d5b-b1de-7c40aa6e5a21")

// IdempotencyKey derives the ledger key for a logical award. The same
// (wallet, source, reference) always produces the same key, so retries
// and duplicate calls collapse onto one ledger row.
func IdempotencyKey(wallet string, source models.XPSource, referenceID string) string {
	return uuid.NewSHA1(idemNamespace, []byte(wallet+"|"+string(source)+"|"+referenceID)).String()
}

// AwardResult is what every mutation path reports back
type AwardResult struct {
	EventID   string `json:"event_id"`
	NewTotal  int64  `json:"new_total"`
	LeveledUp bool   `json:"leveled_up"`
	NewLevel  int    `json:"new_level"`
	Duplicate bool   `json:"duplicate"` // true when the idempotency key already applied — no-op
}

// AwardOptions carry the rarely-used switches on Award
type AwardOptions struct {
	AllowNegative bool // admin corrections only
}

type LedgerService struct {
	DB       *gorm.DB
	Weights  XPWeights
	Notifier *Notifier // optional; nil disables signals
}

func NewLedgerService(db *gorm.DB, notifier *Notifier) *LedgerService {
	return &LedgerService{DB: db, Weights: DefaultXPWeights, Notifier: notifier}
}

// Award appends one ledger row and refreshes the cached total/level as a
// single transaction. Safe to retry: a repeated call with the same
// (wallet, source, referenceID) is a no-op, a reused key with a different
// payload fails with ErrConflict.
func (s *LedgerService) Award(wallet string, delta int64, source models.XPSource, referenceID, reason string, opts AwardOptions) (*AwardResult, error) {
	res, err := s.awardOnce(wallet, delta, source, referenceID, reason, opts)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a race at a unique index — either the idempotency key or,
		// for a brand-new wallet, the user row itself.
		dup, derr := s.classifyDuplicate(wallet, delta, source, referenceID)
		if derr == nil {
			return dup, nil
		}
		if !errors.Is(derr, gorm.ErrRecordNotFound) {
			return nil, derr
		}
		// No ledger row holds the key, so the collision was the user row
		// create. The row exists now; one retry resolves it.
		res, err = s.awardOnce(wallet, delta, source, referenceID, reason, opts)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.classifyDuplicate(wallet, delta, source, referenceID)
		}
	}
	if err != nil {
		return nil, err
	}
	s.emitSignals(wallet, delta, source, res)
	return res, nil
}

func (s *LedgerService) awardOnce(wallet string, delta int64, source models.XPSource, referenceID, reason string, opts AwardOptions) (*AwardResult, error) {
	var res *AwardResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		res, txErr = s.AwardTx(tx, wallet, delta, source, referenceID, reason, opts)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AwardTx is the transactional core of Award, for services that bundle
// an award with their own writes (streak claims, bounty moderation).
// Callers own the enclosing transaction and must emit signals themselves
// after commit (EmitAwardSignals).
func (s *LedgerService) AwardTx(tx *gorm.DB, wallet string, delta int64, source models.XPSource, referenceID, reason string, opts AwardOptions) (*AwardResult, error) {
	if wallet == "" || referenceID == "" {
		return nil, fmt.Errorf("%w: wallet and reference id are required", ErrInvalidAmount)
	}
	if delta <= 0 && !opts.AllowNegative {
		return nil, fmt.Errorf("%w: delta must be positive (got %d)", ErrInvalidAmount, delta)
	}

	key := IdempotencyKey(wallet, source, referenceID)

	// Replay check first: a retried call returns the current state as a
	// no-op, a mismatched payload is a bug signal.
	var existing models.XPEvent
	err := tx.Where("idempotency_key = ?", key).First(&existing).Error
	if err == nil {
		if existing.Delta != delta || existing.Source != source {
			return nil, fmt.Errorf("%w: key %s already holds delta=%d source=%s", ErrConflict, key, existing.Delta, existing.Source)
		}
		user, uerr := s.findUserTx(tx, wallet)
		if uerr != nil {
			return nil, uerr
		}
		return &AwardResult{
			EventID:   existing.ID,
			NewTotal:  user.TotalXP,
			NewLevel:  user.Level,
			Duplicate: true,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	user, err := s.ensureUserTx(tx, wallet)
	if err != nil {
		return nil, err
	}
	oldLevel := user.Level

	event := models.XPEvent{
		ID:             uuid.NewString(),
		WalletAddress:  wallet,
		Delta:          delta,
		Source:         source,
		ReferenceID:    referenceID,
		Reason:         reason,
		IdempotencyKey: key,
	}
	if err := tx.Create(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err // unwound by Award for classification
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Atomic conditional increment — concurrent awards for the same
	// wallet cannot lose an update.
	if err := tx.Model(&models.User{}).
		Where("wallet_address = ?", wallet).
		UpdateColumn("total_xp", gorm.Expr("total_xp + ?", delta)).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Level-up detection reads the post-write total, never the stale copy.
	fresh, err := s.findUserTx(tx, wallet)
	if err != nil {
		return nil, err
	}
	newLevel := LevelFor(fresh.TotalXP)
	if newLevel != fresh.Level {
		updates := map[string]interface{}{"level": newLevel}
		if newLevel > oldLevel {
			now := time.Now().UTC()
			updates["last_level_up_at"] = &now
		}
		if err := tx.Model(&models.User{}).
			Where("wallet_address = ?", wallet).
			Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	log.Printf("🎓 XP Awarded: %s → %+d (%s), total=%d, lvl=%d (reason: %s)",
		wallet, delta, source, fresh.TotalXP, newLevel, reason)

	return &AwardResult{
		EventID:   event.ID,
		NewTotal:  fresh.TotalXP,
		LeveledUp: newLevel > oldLevel,
		NewLevel:  newLevel,
	}, nil
}

// EmitAwardSignals publishes best-effort notifications for an award that
// already committed. Call after the enclosing transaction succeeds.
func (s *LedgerService) EmitAwardSignals(wallet string, delta int64, source models.XPSource, res *AwardResult) {
	s.emitSignals(wallet, delta, source, res)
}

func (s *LedgerService) emitSignals(wallet string, delta int64, source models.XPSource, res *AwardResult) {
	if s.Notifier == nil || res == nil || res.Duplicate {
		return
	}
	s.Notifier.Publish(Signal{
		Type:    SignalAwardGranted,
		Wallet:  wallet,
		Delta:   delta,
		Source:  string(source),
		TotalXP: res.NewTotal,
		Level:   res.NewLevel,
		SentAt:  time.Now().UTC(),
	})
	if res.LeveledUp {
		s.Notifier.Publish(Signal{
			Type:    SignalLevelUp,
			Wallet:  wallet,
			TotalXP: res.NewTotal,
			Level:   res.NewLevel,
			Title:   LevelTitle(res.NewLevel),
			SentAt:  time.Now().UTC(),
		})
	}
}

// classifyDuplicate resolves a unique-index loss outside the failed
// transaction: same payload → no-op result, different payload → conflict.
func (s *LedgerService) classifyDuplicate(wallet string, delta int64, source models.XPSource, referenceID string) (*AwardResult, error) {
	key := IdempotencyKey(wallet, source, referenceID)
	var existing models.XPEvent
	if err := s.DB.Where("idempotency_key = ?", key).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The duplicate wasn't the ledger key; let the caller retry.
			return nil, fmt.Errorf("no ledger row holds key %s: %w", key, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if existing.Delta != delta || existing.Source != source {
		return nil, fmt.Errorf("%w: key %s already holds delta=%d source=%s", ErrConflict, key, existing.Delta, existing.Source)
	}
	var user models.User
	if err := s.DB.Where("wallet_address = ?", wallet).First(&user).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &AwardResult{
		EventID:   existing.ID,
		NewTotal:  user.TotalXP,
		NewLevel:  user.Level,
		Duplicate: true,
	}, nil
}

func (s *LedgerService) ensureUserTx(tx *gorm.DB, wallet string) (*models.User, error) {
	var user models.User
	err := tx.Where("wallet_address = ?", wallet).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	user = models.User{
		ID:            uuid.NewString(),
		WalletAddress: wallet,
		TotalXP:       0,
		Level:         1,
	}
	if err := tx.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another first award for this wallet created the row between
			// our read and write; keep the chain so Award can retry.
			return nil, fmt.Errorf("create user %s: %w", wallet, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &user, nil
}

func (s *LedgerService) findUserTx(tx *gorm.DB, wallet string) (*models.User, error) {
	var user models.User
	if err := tx.Where("wallet_address = ?", wallet).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: wallet %s", ErrNotFound, wallet)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &user, nil
}

// XPSummary is the read model behind GET /s/user/xp
type XPSummary struct {
	WalletAddress   string   `json:"wallet_address"`
	TotalXP         int64    `json:"total_xp"`
	Level           int      `json:"level"`
	Title           string   `json:"title"`
	NextLevel       int      `json:"next_level,omitempty"`
	XPIntoLevel     int64    `json:"xp_into_level"`
	XPForNextLevel  int64    `json:"xp_for_next_level"`
	ProgressPercent int      `json:"progress_percent"`
	Unlocks         []string `json:"unlocks"`
}

// GetXP returns the cached total plus derived level progress and unlocks.
func (s *LedgerService) GetXP(wallet string) (*XPSummary, error) {
	user, err := s.findUserTx(s.DB, wallet)
	if err != nil {
		return nil, err
	}
	prog := Progress(user.TotalXP)
	return &XPSummary{
		WalletAddress:   user.WalletAddress,
		TotalXP:         user.TotalXP,
		Level:           prog.Level,
		Title:           prog.Title,
		NextLevel:       prog.NextLevel,
		XPIntoLevel:     prog.XPIntoLevel,
		XPForNextLevel:  prog.XPForNextLevel,
		ProgressPercent: prog.ProgressPercent,
		Unlocks:         TotalUnlocks(prog.Level),
	}, nil
}

// GetHistory returns the wallet's ledger page, newest first.
func (s *LedgerService) GetHistory(wallet string, page, size int) ([]models.XPEvent, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	var total int64
	if err := s.DB.Model(&models.XPEvent{}).Where("wallet_address = ?", wallet).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var events []models.XPEvent
	if err := s.DB.Where("wallet_address = ?", wallet).
		Order("created_at DESC").
		Limit(size).Offset(offset).
		Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return events, total, nil
}

// LeaderboardEntry is one row of the academy leaderboard
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	WalletAddress string `json:"wallet_address"`
	TotalXP       int64  `json:"total_xp"`
	Level         int    `json:"level"`
	Title         string `json:"title"`
}

// GetLeaderboard returns the top wallets by cached total.
func (s *LedgerService) GetLeaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	var users []models.User
	if err := s.DB.Order("total_xp DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	entries := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = LeaderboardEntry{
			Rank:          i + 1,
			WalletAddress: u.WalletAddress,
			TotalXP:       u.TotalXP,
			Level:         u.Level,
			Title:         LevelTitle(u.Level),
		}
	}
	return entries, nil
}

// RecomputeTotal re-derives one wallet's cache from the ledger and
// repairs any drift. Returns the drift that was corrected (0 = clean).
func (s *LedgerService) RecomputeTotal(wallet string) (int64, error) {
	var drift int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := s.findUserTx(tx, wallet)
		if err != nil {
			return err
		}

		var sum int64
		if err := tx.Model(&models.XPEvent{}).
			Where("wallet_address = ?", wallet).
			Select("COALESCE(SUM(delta), 0)").
			Scan(&sum).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		drift = sum - user.TotalXP
		level := LevelFor(sum)
		if drift == 0 && level == user.Level {
			return nil
		}

		log.Printf("🔧 Reconcile %s: cache=%d ledger=%d (drift %+d)", wallet, user.TotalXP, sum, drift)

		// Compare-and-swap on the total we read: if an award moved the
		// cache while we were summing, its increment is newer than our
		// snapshot — skip and let the next sweep re-derive.
		result := tx.Model(&models.User{}).
			Where("wallet_address = ? AND total_xp = ?", wallet, user.TotalXP).
			Updates(map[string]interface{}{"total_xp": sum, "level": level})
		if result.Error != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
		}
		if result.RowsAffected == 0 {
			drift = 0
		}
		return nil
	})
	return drift, err
}

// ReconcileAll sweeps every wallet and repairs cache drift. Used by the
// scheduler and the admin endpoint.
func (s *LedgerService) ReconcileAll() (int, error) {
	var wallets []string
	if err := s.DB.Model(&models.User{}).Pluck("wallet_address", &wallets).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	repaired := 0
	for _, w := range wallets {
		drift, err := s.RecomputeTotal(w)
		if err != nil {
			log.Printf("[Reconcile] failed for %s: %v", w, err)
			continue
		}
		if drift != 0 {
			repaired++
		}
	}
	return repaired, nil
}
