package services

import (
	"hoodie-academy/models"
)

// Leveling engine: pure functions over models.LevelTable. No I/O, no
// persisted state — identical XP always yields identical output, so the
// cached level on the user row can be refreshed from here at any time.

// LevelFor returns the highest level whose threshold <= xp.
// XP below the first threshold (possible after admin corrections) still
// maps to level 1.
func LevelFor(xp int64) int {
	level := models.LevelTable[0].Level
	for _, def := range models.LevelTable {
		if xp >= def.Threshold {
			level = def.Level
		} else {
			break
		}
	}
	return level
}

// LevelTitle returns the title for a level, defaulting to the first rung
// for out-of-range input.
func LevelTitle(level int) string {
	for _, def := range models.LevelTable {
		if def.Level == level {
			return def.Title
		}
	}
	return models.LevelTable[0].Title
}

// LevelProgress describes where an XP total sits on the ladder
type LevelProgress struct {
	Level           int    `json:"level"`
	Title           string `json:"title"`
	NextLevel       int    `json:"next_level,omitempty"` // 0 = max level reached
	XPIntoLevel     int64  `json:"xp_into_level"`
	XPForNextLevel  int64  `json:"xp_for_next_level"` // 0 if max
	ProgressPercent int    `json:"progress_percent"`  // 100 if max
}

// Progress computes current level, next level and percent complete for
// an XP total. Percent is 100 at the top of the ladder.
func Progress(xp int64) LevelProgress {
	idx := 0
	for i, def := range models.LevelTable {
		if xp >= def.Threshold {
			idx = i
		} else {
			break
		}
	}

	cur := models.LevelTable[idx]
	p := LevelProgress{
		Level:       cur.Level,
		Title:       cur.Title,
		XPIntoLevel: xp - cur.Threshold,
	}
	if p.XPIntoLevel < 0 {
		p.XPIntoLevel = 0
	}

	if idx == len(models.LevelTable)-1 {
		p.ProgressPercent = 100
		return p
	}

	next := models.LevelTable[idx+1]
	p.NextLevel = next.Level
	p.XPForNextLevel = next.Threshold - cur.Threshold
	if p.XPForNextLevel > 0 {
		p.ProgressPercent = int(p.XPIntoLevel * 100 / p.XPForNextLevel)
	}
	if p.ProgressPercent > 100 {
		p.ProgressPercent = 100
	}
	return p
}

// TotalUnlocks returns every perk unlocked at or below the given level,
// deduplicated, in ladder order.
func TotalUnlocks(level int) []string {
	seen := make(map[string]bool)
	var unlocks []string
	for _, def := range models.LevelTable {
		if def.Level > level {
			break
		}
		for _, u := range def.Unlocks {
			if !seen[u] {
				seen[u] = true
				unlocks = append(unlocks, u)
			}
		}
	}
	return unlocks
}
