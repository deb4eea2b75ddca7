// Package bend holds the per-interval pitch bend lookup used by legato
// transitions. Filling the table once per calibration change keeps the
// per-note path to a single index.
package bend

import "github.com/cbegin/legatofx/internal/numeric"

// Steps is the number of semitone intervals covered by the table.
const Steps = 12

// Table maps an interval of i+1 semitones to a bend amount in cents.
type Table [Steps]float64

// Rebuild interpolates linearly from minBend (1 semitone) to maxBend (12
// semitones). maxBend may be below minBend, which yields a descending table.
func Rebuild(minBend, maxBend float64) Table {
	var t Table
	for i := range t {
		t[i] = (float64(i+1)*(maxBend-minBend))/Steps + minBend
	}
	return t
}

// Lookup returns the bend in cents for an interval, clamped to [1, 12].
func (t Table) Lookup(interval int) float64 {
	interval = numeric.Clamp(numeric.Abs(interval), 1, Steps)
	return t[interval-1]
}

// Signed returns Lookup(|interval|) carrying the direction of from→to.
func (t Table) Signed(from, to int) float64 {
	amount := t.Lookup(to - from)
	if to < from {
		return -amount
	}
	return amount
}
