package timing

import (
	"math"
	"time"

	"github.com/cbegin/legatofx/internal/numeric"
)

const (
	// MaxTimeDiffMs caps the elapsed time considered between two notes.
	MaxTimeDiffMs = 1000.0
	// MinBendMs is the floor applied to pitch ramp durations.
	MinBendMs = 10.0
	// MinGlideStep is the shortest timer period the timer service supports.
	MinGlideStep = 40 * time.Millisecond

	hardVelocity     = 64
	hardVelocityCut  = 0.2
	intervalWidening = 2.0
	velocityModeSpan = 3
)

// Tempo converts a tempo-relative rate index into milliseconds at the
// current host tempo.
type Tempo interface {
	MsFromTempoRelativeRate(rate int) float64
}

// CrossfadeDuration returns the legato crossfade time in ms. Fast playing
// shortens the fade down to half of maxFadeMs; wider intervals and soft
// velocities lengthen it.
func CrossfadeDuration(interval, velocity int, now, last time.Duration, maxFadeMs float64) float64 {
	diff := float64(now-last) / float64(time.Millisecond)
	diff = math.Min(MaxTimeDiffMs, diff)

	fade := diff
	if diff <= maxFadeMs*0.5 {
		fade = maxFadeMs * 0.5
	}
	if diff >= maxFadeMs {
		fade = maxFadeMs
	}
	fade += float64(numeric.Abs(interval)) * intervalWidening
	if velocity > hardVelocity {
		fade -= fade * hardVelocityCut
	}
	return math.Max(0, fade)
}

// BendDuration returns the pitch ramp time for a crossfade, shifted by the
// bend time offset and floored at MinBendMs.
func BendDuration(fadeMs, offsetMs float64) float64 {
	return math.Max(MinBendMs, fadeMs+offsetMs)
}

// GlideRate returns the timer period for one glide step. When knob sits at
// knobMax the rate index is taken from velocity instead and the interval is
// widened by three semitones.
func GlideRate(interval, velocity, knob, knobMax int, tempo Tempo) time.Duration {
	rate := knob
	steps := numeric.Abs(interval)
	if knob == knobMax {
		rate = VelocityRate(velocity, knobMax)
		steps += velocityModeSpan
	}
	if steps < 1 {
		steps = 1
	}
	sec := tempo.MsFromTempoRelativeRate(rate) / 1000
	sec = math.Max(MinGlideStep.Seconds(), sec/float64(steps))
	return time.Duration(sec * float64(time.Second))
}

// VelocityRate maps a velocity onto a tempo-relative rate index below knobMax.
func VelocityRate(velocity, knobMax int) int {
	span := knobMax - 1
	if span <= 0 {
		return 0
	}
	return min(span, int(math.Floor(float64(velocity)/float64(span))))
}
