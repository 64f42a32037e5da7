package study

import (
	"errors"
	"math"
)

const (
	// SubtaskXP is awarded when a subtask goes from open to completed.
	SubtaskXP = 500

	// FocusSessionXP is awarded for a finished focus session.
	FocusSessionXP = 1000

	// xpLevelCoef scales the quadratic level curve: level N begins at
	// xpLevelCoef * (N-1)^2.
	xpLevelCoef = 100
)

// ErrInvalidXP is returned for non-positive XP awards.
var ErrInvalidXP = errors.New("xp amount must be positive")

// AwardXP adds amount to total. XP never decreases.
func AwardXP(total, amount int) (int, error) {
	if amount <= 0 {
		return total, ErrInvalidXP
	}
	return total + amount, nil
}

// LevelForXP returns floor(sqrt(xp/100)) + 1. Level 1 covers 0-99 XP,
// level 2 covers 100-399, level 3 covers 400-899.
func LevelForXP(xp int) int {
	if xp < xpLevelCoef {
		return 1
	}
	q := xp / xpLevelCoef
	r := int(math.Sqrt(float64(q)))
	// Correct float error at perfect squares.
	for r*r > q {
		r--
	}
	for (r+1)*(r+1) <= q {
		r++
	}
	return r + 1
}

// XPForLevel returns the total XP at which level begins.
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	n := level - 1
	return xpLevelCoef * n * n
}

// LevelProgress reports how far xp is into its level band: into is the XP
// earned since the level began and span is the band width.
func LevelProgress(xp int) (into, span int) {
	if xp < 0 {
		xp = 0
	}
	level := LevelForXP(xp)
	start := XPForLevel(level)
	return xp - start, XPForLevel(level+1) - start
}
