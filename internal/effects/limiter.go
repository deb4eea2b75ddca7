package effects

import "math"

// Limiter is a linked-stereo peak compressor that keeps dense legato
// overlaps from clipping the output.
type Limiter struct {
	threshold float32
	ratio     float32
	attack    float32
	release   float32
	env       float32
}

// NewLimiter returns a limiter with the threshold in dBFS. Ratios below 1
// are treated as 1.
func NewLimiter(sampleRate int, thresholdDB, ratio, attackMs, releaseMs float64) *Limiter {
	return &Limiter{
		threshold: float32(math.Pow(10, thresholdDB/20)),
		ratio:     float32(math.Max(1, ratio)),
		attack:    coefficient(sampleRate, attackMs),
		release:   coefficient(sampleRate, releaseMs),
	}
}

func coefficient(sampleRate int, ms float64) float32 {
	if ms <= 0 {
		return 1
	}
	return float32(1 - math.Exp(-1/(ms*float64(sampleRate)/1000)))
}

func (c *Limiter) Process(l, r float32) (float32, float32) {
	peak := max(abs32(l), abs32(r))
	if peak > c.env {
		c.env += c.attack * (peak - c.env)
	} else {
		c.env += c.release * (peak - c.env)
	}
	g := c.gain()
	return l * g, r * g
}

func (c *Limiter) gain() float32 {
	if c.env <= c.threshold || c.threshold <= 0 {
		return 1
	}
	over := float64(c.env / c.threshold)
	return float32(math.Pow(over, 1/float64(c.ratio)-1))
}

func (c *Limiter) Reset() { c.env = 0 }

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
