// internal/needs/needs.go
// Package needs holds the need-meter rendering policy: percentage bands and
// the percentage-point change shown when an agent's need moves.
package needs

import (
	"fmt"
	"math"
)

// LifePurpose is the only need the debate server reports.
const LifePurpose = "life_purpose"

// Band is the visual band of a need-meter.
type Band int

const (
	BandCritical Band = iota
	BandLow
	BandMedium
	BandHigh
	BandFull
)

func (b Band) String() string {
	switch b {
	case BandCritical:
		return "critical"
	case BandLow:
		return "low"
	case BandMedium:
		return "medium"
	case BandHigh:
		return "high"
	case BandFull:
		return "full"
	default:
		return "unknown"
	}
}

// Percent converts a need value in [0,1] to a whole percentage, clamped to [0,100].
func Percent(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	p := int(math.Round(v * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// BandFor maps a percentage to its band.
func BandFor(p int) Band {
	switch {
	case p < 20:
		return BandCritical
	case p < 40:
		return BandLow
	case p < 60:
		return BandMedium
	case p < 80:
		return BandHigh
	default:
		return BandFull
	}
}

// BandOf is BandFor(Percent(v)).
func BandOf(v float64) Band {
	return BandFor(Percent(v))
}

// Direction of a need change.
type Direction int

const (
	Increase Direction = iota
	Decrease
)

// Arrow returns the marker shown next to the change.
func (d Direction) Arrow() string {
	if d == Decrease {
		return "↓"
	}
	return "↑"
}

func (d Direction) String() string {
	if d == Decrease {
		return "decrease"
	}
	return "increase"
}

// Change is a percentage-point movement between two need values.
type Change struct {
	Points    float64 // absolute, rounded to one decimal
	Direction Direction
}

// Compare computes the change from old to new. A zero change counts as an increase.
func Compare(old, new float64) Change {
	delta := (new - old) * 100
	dir := Increase
	if delta < 0 {
		dir = Decrease
	}
	return Change{
		Points:    math.Round(math.Abs(delta)*10) / 10,
		Direction: dir,
	}
}

// String renders e.g. "↑ 17.0%".
func (c Change) String() string {
	return fmt.Sprintf("%s %.1f%%", c.Direction.Arrow(), c.Points)
}
