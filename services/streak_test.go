package services

import (
	"testing"
	"time"

	"hoodie-academy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStreak(t *testing.T) *StreakService {
	t.Helper()
	ledger := newTestLedger(t)
	return NewStreakService(ledger.DB, ledger)
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestClaimFirstEver(t *testing.T) {
	svc := newTestStreak(t)

	res, err := svc.ClaimDailyLogin(testWallet, day("2026-08-01"))
	require.NoError(t, err)
	assert.False(t, res.AlreadyClaimed)
	assert.Equal(t, 1, res.CurrentStreak)
	assert.Equal(t, 1, res.LongestStreak)
	assert.Equal(t, DefaultXPWeights.DailyLoginXP, res.XPAwarded)
	assert.Equal(t, DefaultXPWeights.DailyLoginXP, res.NewTotal)
}

func TestClaimSameDayTwice(t *testing.T) {
	svc := newTestStreak(t)

	_, err := svc.ClaimDailyLogin(testWallet, day("2026-08-01"))
	require.NoError(t, err)

	res, err := svc.ClaimDailyLogin(testWallet, day("2026-08-01"))
	require.NoError(t, err)
	assert.True(t, res.AlreadyClaimed)
	assert.Equal(t, 1, res.CurrentStreak)
	assert.Equal(t, int64(0), res.XPAwarded)

	// No second ledger entry, total untouched
	summary, err := svc.Ledger.GetXP(testWallet)
	require.NoError(t, err)
	assert.Equal(t, DefaultXPWeights.DailyLoginXP, summary.TotalXP)

	var count int64
	require.NoError(t, svc.DB.Model(&models.XPEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestClaimConsecutiveDays(t *testing.T) {
	svc := newTestStreak(t)

	for i, d := range []string{"2026-08-01", "2026-08-02", "2026-08-03"} {
		res, err := svc.ClaimDailyLogin(testWallet, day(d))
		require.NoError(t, err)
		assert.Equal(t, i+1, res.CurrentStreak, "day %s", d)
		assert.Equal(t, i+1, res.LongestStreak)
	}

	// Continuation days carry the streak bonus, the first day does not
	res, err := svc.ClaimDailyLogin(testWallet, day("2026-08-04"))
	require.NoError(t, err)
	assert.Equal(t, 4, res.CurrentStreak)
	assert.Equal(t, DefaultXPWeights.DailyLoginXP+DefaultXPWeights.StreakBonusXP, res.XPAwarded)
}

func TestClaimGapResetsStreak(t *testing.T) {
	svc := newTestStreak(t)

	_, err := svc.ClaimDailyLogin(testWallet, day("2026-08-01"))
	require.NoError(t, err)
	_, err = svc.ClaimDailyLogin(testWallet, day("2026-08-02"))
	require.NoError(t, err)

	// 2-day gap → back to 1, longest streak preserved
	res, err := svc.ClaimDailyLogin(testWallet, day("2026-08-05"))
	require.NoError(t, err)
	assert.False(t, res.AlreadyClaimed)
	assert.Equal(t, 1, res.CurrentStreak)
	assert.Equal(t, 2, res.LongestStreak)
	assert.Equal(t, DefaultXPWeights.DailyLoginXP, res.XPAwarded)
}

func TestClaimLongestStreakHighWater(t *testing.T) {
	svc := newTestStreak(t)

	for _, d := range []string{"2026-08-01", "2026-08-02", "2026-08-03"} {
		_, err := svc.ClaimDailyLogin(testWallet, day(d))
		require.NoError(t, err)
	}
	_, err := svc.ClaimDailyLogin(testWallet, day("2026-08-10"))
	require.NoError(t, err)
	res, err := svc.ClaimDailyLogin(testWallet, day("2026-08-11"))
	require.NoError(t, err)

	assert.Equal(t, 2, res.CurrentStreak)
	assert.Equal(t, 3, res.LongestStreak)
}

func TestClaimFunnelsThroughLedgerKey(t *testing.T) {
	svc := newTestStreak(t)

	// An award already recorded for the day (e.g., a crashed claim that
	// committed its ledger row) makes a later claim report alreadyClaimed
	// instead of double-paying.
	xp := DefaultXPWeights.DailyLoginXP
	_, err := svc.Ledger.Award(testWallet, xp, models.SourceDailyLogin, "2026-08-01", "daily login (streak 1)", AwardOptions{})
	require.NoError(t, err)

	res, err := svc.ClaimDailyLogin(testWallet, day("2026-08-01"))
	require.NoError(t, err)
	assert.True(t, res.AlreadyClaimed)

	var count int64
	require.NoError(t, svc.DB.Model(&models.XPEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetStreakUnclaimedWallet(t *testing.T) {
	svc := newTestStreak(t)

	rec, err := svc.GetStreak(testWallet)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.CurrentStreak)
	assert.Nil(t, rec.LastClaimDate)
}
