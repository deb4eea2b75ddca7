package effects

// Room is a small Schroeder reverb: parallel feedback combs into two
// series allpasses, mixed with the dry signal.
type Room struct {
	combs [4]delayLine
	diff  [2]delayLine
	mix   float32
}

// combRatios spread the comb lengths to avoid stacked resonances.
var combRatios = [4]int{1000, 1117, 1271, 1437}

var diffusionRatios = [2]int{347, 213}

// NewRoom builds a room. size (0..1) scales the delay lengths, decay (0..1)
// the comb feedback, and mix (0..1) the wet share.
func NewRoom(sampleRate int, size, decay, mix float32) *Room {
	base := max(int(float32(sampleRate)*clamp(size, 0, 1)*0.05), 10)
	fb := clamp(decay, 0, 0.95)
	r := &Room{mix: clamp(mix, 0, 1)}
	for i, ratio := range combRatios {
		r.combs[i] = newDelayLine(base*ratio/1000, fb)
	}
	for i, ratio := range diffusionRatios {
		r.diff[i] = newDelayLine(base*ratio/1000, 0.5)
	}
	return r
}

func (r *Room) Process(l, rr float32) (float32, float32) {
	in := (l + rr) * 0.5
	var wet float32
	for i := range r.combs {
		wet += r.combs[i].comb(in)
	}
	wet *= 0.25
	for i := range r.diff {
		wet = r.diff[i].allpass(wet)
	}
	dry := 1 - r.mix
	return l*dry + wet*r.mix, rr*dry + wet*r.mix
}

func (r *Room) Reset() {
	for i := range r.combs {
		r.combs[i].clear()
	}
	for i := range r.diff {
		r.diff[i].clear()
	}
}

type delayLine struct {
	buf []float32
	pos int
	fb  float32
}

func newDelayLine(n int, fb float32) delayLine {
	return delayLine{buf: make([]float32, max(n, 1)), fb: fb}
}

func (d *delayLine) step(write float32) {
	d.buf[d.pos] = write
	if d.pos++; d.pos == len(d.buf) {
		d.pos = 0
	}
}

func (d *delayLine) comb(in float32) float32 {
	out := d.buf[d.pos]
	d.step(in + out*d.fb)
	return out
}

func (d *delayLine) allpass(in float32) float32 {
	delayed := d.buf[d.pos]
	d.step(in + delayed*d.fb)
	return delayed - in
}

func (d *delayLine) clear() {
	clear(d.buf)
	d.pos = 0
}
