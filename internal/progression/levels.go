// Package progression turns leadership activity into experience, levels,
// streaks and achievement unlocks.
//
// All mutation of a user's GamificationStats goes through Engine.AddXP so
// that level always agrees with total experience.
package progression

// levelThresholds[i] is the cumulative XP at which level i+1 begins.
var levelThresholds = []int{
	0,     // 1
	100,   // 2
	250,   // 3
	500,   // 4
	1000,  // 5
	2000,  // 6
	3500,  // 7
	5000,  // 8
	7500,  // 9
	10000, // 10
}

// XPPerLevelBeyondTable is the flat cost of each level past the table.
const XPPerLevelBeyondTable = 5000

// CalculateLevel returns the level reached with xp total experience. It is
// defined for every int; negative input is treated as zero.
func CalculateLevel(xp int) int {
	if xp < 0 {
		xp = 0
	}

	last := levelThresholds[len(levelThresholds)-1]
	if xp >= last {
		return len(levelThresholds) + (xp-last)/XPPerLevelBeyondTable
	}

	level := 1
	for i, threshold := range levelThresholds {
		if xp >= threshold {
			level = i + 1
		}
	}
	return level
}

// LevelThreshold returns the cumulative XP at which level begins.
// Levels below 1 are clamped to 1.
func LevelThreshold(level int) int {
	if level < 1 {
		level = 1
	}
	if level <= len(levelThresholds) {
		return levelThresholds[level-1]
	}
	last := levelThresholds[len(levelThresholds)-1]
	return last + (level-len(levelThresholds))*XPPerLevelBeyondTable
}

// Progress describes how far a total sits inside its current level.
type Progress struct {
	Level         int `json:"level"`
	CurrentXP     int `json:"currentXp"`
	XPToNext      int `json:"xpToNextLevel"`
	LevelSpan     int `json:"levelSpan"`
	NextLevelXP   int `json:"nextLevelXp"`
	PercentToNext int `json:"percentToNext"`
}

// ProgressFor computes the level progress for total experience xp.
func ProgressFor(xp int) Progress {
	if xp < 0 {
		xp = 0
	}
	level := CalculateLevel(xp)
	floor := LevelThreshold(level)
	next := LevelThreshold(level + 1)
	span := next - floor

	p := Progress{
		Level:       level,
		CurrentXP:   xp - floor,
		XPToNext:    next - xp,
		LevelSpan:   span,
		NextLevelXP: next,
	}
	if span > 0 {
		p.PercentToNext = p.CurrentXP * 100 / span
	}
	return p
}
