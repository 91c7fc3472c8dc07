package services

import (
	"testing"

	"hoodie-academy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForThresholds(t *testing.T) {
	assert.Equal(t, 1, LevelFor(0))
	assert.Equal(t, 1, LevelFor(99))
	assert.Equal(t, 2, LevelFor(100))
	assert.Equal(t, 2, LevelFor(299))
	assert.Equal(t, 3, LevelFor(300))
	assert.Equal(t, 4, LevelFor(600))
	assert.Equal(t, 7, LevelFor(5000))
	assert.Equal(t, 7, LevelFor(1_000_000))
}

func TestLevelForNegativeXP(t *testing.T) {
	// Admin corrections can push a total below zero; the ladder bottoms
	// out at level 1 rather than underflowing.
	assert.Equal(t, 1, LevelFor(-50))
}

func TestLevelForMonotonic(t *testing.T) {
	prev := LevelFor(0)
	for xp := int64(0); xp <= 6000; xp += 7 {
		cur := LevelFor(xp)
		require.GreaterOrEqual(t, cur, prev, "level dropped at xp=%d", xp)
		prev = cur
	}
}

func TestLevelTableAscending(t *testing.T) {
	for i := 1; i < len(models.LevelTable); i++ {
		require.Greater(t, models.LevelTable[i].Threshold, models.LevelTable[i-1].Threshold)
		require.Equal(t, models.LevelTable[i-1].Level+1, models.LevelTable[i].Level)
	}
}

func TestProgressMidLevel(t *testing.T) {
	// 150 XP sits halfway between level 2 (100) and level 3 (300)
	p := Progress(150)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, "Hoodie Scholar", p.Title)
	assert.Equal(t, 3, p.NextLevel)
	assert.Equal(t, int64(50), p.XPIntoLevel)
	assert.Equal(t, int64(200), p.XPForNextLevel)
	assert.Equal(t, 25, p.ProgressPercent)
}

func TestProgressMaxLevel(t *testing.T) {
	p := Progress(99999)
	assert.Equal(t, 7, p.Level)
	assert.Equal(t, 0, p.NextLevel)
	assert.Equal(t, int64(0), p.XPForNextLevel)
	assert.Equal(t, 100, p.ProgressPercent)
}

func TestProgressDeterministic(t *testing.T) {
	assert.Equal(t, Progress(423), Progress(423))
}

func TestTotalUnlocksUnion(t *testing.T) {
	assert.Equal(t, []string{"academy_chat"}, TotalUnlocks(1))

	got := TotalUnlocks(5)
	assert.Equal(t, []string{
		"academy_chat",
		"bounty_board",
		"squad_channels",
		"course_voting",
		"mentor_lounge",
		"bounty_review",
	}, got)

	// Order-preserving and deduplicated across the whole ladder
	all := TotalUnlocks(7)
	seen := map[string]bool{}
	for _, u := range all {
		require.False(t, seen[u], "duplicate unlock %s", u)
		seen[u] = true
	}
}
