// Package progression holds the leveling curve and the static reward tables.
// Nothing here performs I/O.
package progression

import "darkQuestsAPI/internal/player"

// XPPerLevel is the width of every level band.
const XPPerLevel = 100

// Level returns floor(xp/100)+1. Level 1 starts at 0 xp.
func Level(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// XPForNextLevel is the total xp threshold used as the progress bar denominator.
func XPForNextLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return level * XPPerLevel
}

// XPProgress is the xp accumulated inside the current level band.
func XPProgress(xp int) int {
	if xp < 0 {
		return 0
	}
	return xp % XPPerLevel
}

func ProgressPercent(xp int) float64 {
	return float64(XPProgress(xp)) / float64(XPForNextLevel(Level(xp))) * 100
}

func Progress(xp int) player.Progress {
	level := Level(xp)
	return player.Progress{
		Level:           level,
		XPProgress:      XPProgress(xp),
		XPForNextLevel:  XPForNextLevel(level),
		ProgressPercent: ProgressPercent(xp),
	}
}
