package models

// LevelDefinition: one row of the static leveling table. Thresholds are
// cumulative XP and strictly ascending; unlocks are perks granted at
// that level (a user holds the union of unlocks for every level reached).
type LevelDefinition struct {
	Level     int      `json:"level"`
	Title     string   `json:"title"`
	Threshold int64    `json:"xp_threshold"`
	Unlocks   []string `json:"unlocks"`
}

// LevelTable is the canonical academy ladder. Static config, not persisted —
// the leveling engine evaluates it on demand whenever a cached level needs
// refreshing.
var LevelTable = []LevelDefinition{
	{
		Level:     1,
		Title:     "Hoodie Rookie",
		Threshold: 0,
		Unlocks:   []string{"academy_chat"},
	},
	{
		Level:     2,
		Title:     "Hoodie Scholar",
		Threshold: 100,
		Unlocks:   []string{"bounty_board"},
	},
	{
		Level:     3,
		Title:     "Hoodie Apprentice",
		Threshold: 300,
		Unlocks:   []string{"squad_channels"},
	},
	{
		Level:     4,
		Title:     "Hoodie Graduate",
		Threshold: 600,
		Unlocks:   []string{"course_voting"},
	},
	{
		Level:     5,
		Title:     "Hoodie Mentor",
		Threshold: 1200,
		Unlocks:   []string{"mentor_lounge", "bounty_review"},
	},
	{
		Level:     6,
		Title:     "Hoodie Master",
		Threshold: 2500,
		Unlocks:   []string{"masterclass_archive"},
	},
	{
		Level:     7,
		Title:     "Hoodie Legend",
		Threshold: 5000,
		Unlocks:   []string{"legend_lounge", "custom_flair"},
	},
}
