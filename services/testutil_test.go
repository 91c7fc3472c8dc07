package services

import (
	"testing"

	"hoodie-academy/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB spins up an in-memory sqlite DB with the full schema.
// MaxOpenConns(1) keeps concurrent transactions serialized the way a
// single postgres row lock would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.XPEvent{},
		&models.StreakRecord{},
		&models.BountySubmission{},
		&models.CourseCompletion{},
	))
	require.NoError(t, db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_bounty_open_entry
		ON bounty_submissions (bounty_id, wallet_address)
		WHERE status IN ('submitted', 'approved')`).Error)
	return db
}

func newTestLedger(t *testing.T) *LedgerService {
	t.Helper()
	return NewLedgerService(newTestDB(t), nil)
}
