package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"hoodie-academy/models"
	"hoodie-academy/services"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestApp(t *testing.T) *fiber.App {
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

	notifier := services.NewNotifier()
	ledger := services.NewLedgerService(db, notifier)
	streak := services.NewStreakService(db, ledger)

	app := fiber.New()
	SetupXPRoutes(app, ledger, streak, notifier)
	return app
}

func TestDailyClaimIgnoresClientDate(t *testing.T) {
	app := newTestApp(t)

	claim := func(body string) map[string]interface{} {
		req := httptest.NewRequest(fiber.MethodPost, "/s/user/daily-claim", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Wallet-Address", "wallet-test")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var out map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	first := claim(`{"date":"2020-01-01"}`)
	assert.Equal(t, true, first["success"])
	assert.Equal(t, float64(1), first["current_streak"])

	// A second claim with a different fabricated date must collapse onto
	// today's key — one claim per wallet per UTC day, whatever the body says.
	second := claim(`{"date":"2020-01-02"}`)
	assert.Equal(t, false, second["success"])
	assert.Equal(t, true, second["already_claimed"])
	assert.Equal(t, float64(1), second["current_streak"])
}
