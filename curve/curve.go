// Package curve converts between levels and cumulative XP.
//
// A Curve is the quadratic RequiredFor(L) = A·L² + B·L + C with C fixed at
// -(A+B), so reaching level 1 never requires any XP. Everything in the
// package is pure and safe for concurrent use.
package curve

import (
	"errors"
	"math"
	"math/bits"
)

// ErrInvalidCurve is returned by Validate when a curve would produce a
// non-positive level-up cost.
var ErrInvalidCurve = errors.New("curve: invalid coefficients")

// Curve holds the quadratic coefficients of the level threshold function.
type Curve struct {
	A int64 `json:"a" mapstructure:"a" yaml:"a"`
	B int64 `json:"b" mapstructure:"b" yaml:"b"`
}

// Default is the curve used when none is configured: 200 XP to reach
// level 2, then 100 more per level on every subsequent step.
func Default() Curve {
	return Curve{A: 50, B: 50}
}

// Validate reports whether every level-up costs a positive amount of XP.
// A must be non-negative and the cost of the first level-up (3A+B) positive;
// together they make ForLevelUp strictly positive for all levels.
func (c Curve) Validate() error {
	if c.A < 0 || 3*c.A+c.B <= 0 {
		return ErrInvalidCurve
	}
	return nil
}

// RequiredFor returns the cumulative XP needed to reach level.
// Levels below 1 are treated as 1.
func (c Curve) RequiredFor(level int) int64 {
	if level < 1 {
		level = 1
	}
	l := int64(level)
	return (l - 1) * (c.A*(l+1) + c.B)
}

// ForLevelUp returns the XP needed to go from level to level+1.
func (c Curve) ForLevelUp(level int) int64 {
	if level < 1 {
		level = 1
	}
	return c.A*(2*int64(level)+1) + c.B
}

// LevelFor returns the level reached with total cumulative XP.
// Negative totals are treated as zero.
func (c Curve) LevelFor(total int64) int {
	if total <= 0 || c.Validate() != nil {
		return 1
	}

	var level int
	if c.A == 0 {
		level = 1 + int(total/c.B)
	} else {
		a, b := float64(c.A), float64(c.B)
		disc := b*b + 4*a*(a+b+float64(total))
		level = int((-b + math.Sqrt(disc)) / (2 * a))
	}
	if level < 1 {
		level = 1
	}

	// Float rounding can land one step off in either direction. Thresholds
	// past math.MaxInt64 are never reached.
	for level > 1 {
		if req, ok := c.requiredChecked(level); ok && req <= total {
			break
		}
		level--
	}
	for {
		next, ok := c.requiredChecked(level + 1)
		if !ok || next > total {
			break
		}
		level++
	}
	return level
}

// requiredChecked is RequiredFor with overflow detection. ok is false when
// the threshold does not fit in an int64.
func (c Curve) requiredChecked(level int) (req int64, ok bool) {
	if level <= 1 {
		return 0, true
	}
	l := int64(level)

	hi, f := bits.Mul64(uint64(c.A), uint64(l+1))
	if hi != 0 || f > math.MaxInt64 {
		return 0, false
	}
	if c.B > 0 && int64(f) > math.MaxInt64-c.B {
		return 0, false
	}
	// Positive for every level >= 2 on a valid curve.
	step := int64(f) + c.B

	hi, r := bits.Mul64(uint64(l-1), uint64(step))
	if hi != 0 || r > math.MaxInt64 {
		return 0, false
	}
	return int64(r), true
}

// Progress breaks a cumulative total down relative to its level.
type Progress struct {
	Level          int   `json:"level"`
	XPIntoLevel    int64 `json:"xp_into_level"`
	XPForThisLevel int64 `json:"xp_for_this_level"`
	XPToNextLevel  int64 `json:"xp_to_next_level"`
}

// ProgressFor returns the progress breakdown for total cumulative XP.
// Zero or negative totals yield level 1 with no progress.
func (c Curve) ProgressFor(total int64) Progress {
	if total < 0 {
		total = 0
	}
	level := c.LevelFor(total)
	into := total - c.RequiredFor(level)
	need := c.ForLevelUp(level)
	return Progress{
		Level:          level,
		XPIntoLevel:    into,
		XPForThisLevel: need,
		XPToNextLevel:  need - into,
	}
}

// Total converts a level and the XP earned within it back to a cumulative
// total.
func (c Curve) Total(level int, xpIntoLevel int64) int64 {
	return c.RequiredFor(level) + xpIntoLevel
}

// ──────────────────────────────────────────────────
// Default-curve helpers
// ──────────────────────────────────────────────────

// RequiredFor calls Default().RequiredFor.
func RequiredFor(level int) int64 { return Default().RequiredFor(level) }

// ForLevelUp calls Default().ForLevelUp.
func ForLevelUp(level int) int64 { return Default().ForLevelUp(level) }

// LevelFor calls Default().LevelFor.
func LevelFor(total int64) int { return Default().LevelFor(total) }

// ProgressFor calls Default().ProgressFor.
func ProgressFor(total int64) Progress { return Default().ProgressFor(total) }
