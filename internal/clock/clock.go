// Package clock is the host timer service: a sample-accurate clock that
// converts between milliseconds, samples and tempo-relative note values and
// fires a single repeating timer on the thread that advances it.
package clock

import (
	"math"
	"time"

	"github.com/cbegin/legatofx/internal/numeric"
)

const (
	DefaultBPM = 120.0
	MinBPM     = 20.0
	MaxBPM     = 400.0
)

// noteValues holds the length of each tempo-relative rate in quarter notes:
// 1/1, 1/2D, 1/2, 1/2T, 1/4D, 1/4, 1/4T, 1/8D, 1/8, 1/8T, 1/16D, 1/16,
// 1/16T, 1/32D, 1/32, 1/32T, 1/64D, 1/64, 1/64T.
var noteValues = [...]float64{
	4, 3, 2, 4.0 / 3,
	1.5, 1, 2.0 / 3,
	0.75, 0.5, 1.0 / 3,
	0.375, 0.25, 1.0 / 6,
	0.1875, 0.125, 1.0 / 12,
	0.09375, 0.0625, 1.0 / 24,
}

// NumRates is the number of tempo-relative rates. A glide rate knob uses
// NumRates itself as the velocity sentinel.
const NumRates = len(noteValues)

var rateNames = [NumRates]string{
	"1/1", "1/2D", "1/2", "1/2T", "1/4D", "1/4", "1/4T", "1/8D", "1/8", "1/8T",
	"1/16D", "1/16", "1/16T", "1/32D", "1/32", "1/32T", "1/64D", "1/64", "1/64T",
}

// RateName returns the note value label for a tempo-relative rate index.
func RateName(rate int) string {
	if rate == NumRates {
		return "velocity"
	}
	return rateNames[numeric.Clamp(rate, 0, NumRates-1)]
}

// Clock counts rendered samples. It is not safe for concurrent use; it is
// advanced by the audio thread only.
type Clock struct {
	sampleRate int
	bpm        float64
	pos        int64

	armed    bool
	period   int64
	next     int64
	callback func()
}

func New(sampleRate int, bpm float64) *Clock {
	c := &Clock{sampleRate: sampleRate}
	c.SetTempo(bpm)
	return c
}

func (c *Clock) SampleRate() int { return c.sampleRate }

// SetTempo clamps bpm into [MinBPM, MaxBPM]; zero selects DefaultBPM.
func (c *Clock) SetTempo(bpm float64) {
	if bpm == 0 || math.IsNaN(bpm) {
		bpm = DefaultBPM
	}
	c.bpm = numeric.Clamp(bpm, MinBPM, MaxBPM)
}

func (c *Clock) Tempo() float64 { return c.bpm }

// Position returns the number of samples advanced so far.
func (c *Clock) Position() int64 { return c.pos }

// Now returns the engine time for the current position.
func (c *Clock) Now() time.Duration {
	return c.TimeAt(c.pos)
}

// TimeAt converts a sample position into engine time.
func (c *Clock) TimeAt(pos int64) time.Duration {
	return time.Duration(float64(pos) / float64(c.sampleRate) * float64(time.Second))
}

// SampleAt converts engine time into a sample position.
func (c *Clock) SampleAt(t time.Duration) int64 {
	return int64(math.Round(t.Seconds() * float64(c.sampleRate)))
}

// MsFromTempoRelativeRate returns the length of a tempo-relative note value
// at the current tempo. Out of range rates are clamped.
func (c *Clock) MsFromTempoRelativeRate(rate int) float64 {
	beats := noteValues[numeric.Clamp(rate, 0, NumRates-1)]
	return beats * 60000 / c.bpm
}

// SamplesFromMs converts milliseconds to whole samples, never negative.
func (c *Clock) SamplesFromMs(ms float64) int {
	if ms <= 0 || math.IsNaN(ms) {
		return 0
	}
	return int(math.Round(ms * float64(c.sampleRate) / 1000))
}

// Arm replaces any running timer with one firing every period. The first
// tick lands one period from now.
func (c *Clock) Arm(period time.Duration, callback func()) {
	c.Disarm()
	samples := c.SampleAt(period)
	if samples < 1 {
		samples = 1
	}
	c.armed = true
	c.period = samples
	c.next = c.pos + samples
	c.callback = callback
}

func (c *Clock) Disarm() {
	c.armed = false
	c.period = 0
	c.callback = nil
}

func (c *Clock) Armed() bool { return c.armed }

// Period returns the armed timer period, or zero when disarmed.
func (c *Clock) Period() time.Duration {
	if !c.armed {
		return 0
	}
	return c.TimeAt(c.period)
}

// Advance moves the clock forward and fires the timer for every period
// boundary crossed. The callback may Disarm or re-Arm.
func (c *Clock) Advance(frames int) {
	for i := 0; i < frames; i++ {
		c.pos++
		if c.armed && c.pos >= c.next {
			c.next += c.period
			if cb := c.callback; cb != nil {
				cb()
			}
		}
	}
}
