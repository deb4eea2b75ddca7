// Package effects is the instrument's output stage: stereo processors run
// over each rendered buffer after the voices are mixed.
package effects

// Effector processes one stereo frame.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// Chain runs effects in order. An empty chain passes audio through.
type Chain []Effector

func (c Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c {
		l, r = e.Process(l, r)
	}
	return l, r
}

func (c Chain) Reset() {
	for _, e := range c {
		e.Reset()
	}
}

// ProcessInterleaved runs the chain in place over interleaved stereo frames.
func (c Chain) ProcessInterleaved(buf []float32) {
	if len(c) == 0 {
		return
	}
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = c.Process(buf[i], buf[i+1])
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
