// Package lfo provides the shared low-frequency oscillator the sampler
// uses for vibrato.
package lfo

import "math"

type Shape int

const (
	Sine Shape = iota
	Triangle
)

// LFO is advanced once per frame and shared by all voices, so every voice
// wobbles in phase.
type LFO struct {
	depth float64
	rate  float64 // cycles per sample
	shape Shape
	phase float64 // [0, 1)
}

// New returns an oscillator swinging between -depth and +depth at rateHz.
func New(sampleRate int, depth, rateHz float64, shape Shape) *LFO {
	l := &LFO{shape: shape}
	l.Set(sampleRate, depth, rateHz)
	return l
}

// Set changes depth and rate while keeping the phase.
func (l *LFO) Set(sampleRate int, depth, rateHz float64) {
	l.depth = depth
	l.rate = 0
	if sampleRate > 0 && rateHz > 0 {
		l.rate = rateHz / float64(sampleRate)
	}
}

// Active reports whether Next can return anything but zero.
func (l *LFO) Active() bool { return l.depth != 0 && l.rate != 0 }

// Next returns the current value and advances one frame.
func (l *LFO) Next() float64 {
	if !l.Active() {
		return 0
	}
	var v float64
	switch l.shape {
	case Triangle:
		if l.phase < 0.5 {
			v = 4*l.phase - 1
		} else {
			v = 3 - 4*l.phase
		}
	default:
		v = math.Sin(2 * math.Pi * l.phase)
	}
	l.phase += l.rate
	l.phase -= math.Floor(l.phase)
	return v * l.depth
}

func (l *LFO) Reset() { l.phase = 0 }
