// Package sampler is the instrument's voice allocator: a small wavetable
// voice pool with ADSR envelopes, per-voice crossfade gain ramps and pitch
// ramps, plus the key and sustain pedal tracking the transition engines
// query.
package sampler

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/legatofx/internal/lfo"
	"github.com/cbegin/legatofx/internal/numeric"
	"github.com/cbegin/legatofx/internal/voice"
)

const twoPi = math.Pi * 2

const (
	maxVoices = 32
	tableLen  = 256
)

// Params controls the sampler.
type Params struct {
	Polyphony   int
	AttackSec   float64
	DecaySec    float64
	SustainLvl  float64
	ReleaseSec  float64
	MasterGain  float64
	VelocityAmp float64
	LPFCutoff   float64 // lowpass filter cutoff in Hz (0 = disabled)

	VibratoCents float64 // shared vibrato depth (0 = disabled)
	VibratoHz    float64
}

// DefaultParams returns a soft, sustained string-like patch.
func DefaultParams() Params {
	return Params{
		Polyphony:   16,
		AttackSec:   0.02,
		DecaySec:    0.15,
		SustainLvl:  0.8,
		ReleaseSec:  0.25,
		MasterGain:  0.35,
		VelocityAmp: 0.8,
		LPFCutoff:   9000,
	}
}

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type ramp struct {
	value  float64
	target float64
	step   float64
	frames int
}

func (r *ramp) set(start, target float64, frames int) {
	if frames <= 0 {
		r.value, r.target, r.step, r.frames = target, target, 0, 0
		return
	}
	r.value = start
	r.target = target
	r.frames = frames
	r.step = (target - start) / float64(frames)
}

func (r *ramp) advance() {
	if r.frames <= 0 {
		return
	}
	r.frames--
	r.value += r.step
	if r.frames == 0 {
		r.value = r.target
	}
}

type slot struct {
	active   bool
	id       voice.Handle
	note     int
	velocity float64
	phase    float64
	env      float64
	envState envState
	gain     ramp // crossfade gain
	cents    ramp // pitch offset from note
	fading   bool // freed once gain reaches zero
	damped   bool // stopped while the pedal was down; released on pedal up
}

// Engine implements voice.Allocator.
type Engine struct {
	sampleRate float64
	params     Params
	voices     []slot
	table      []float64
	nextID     voice.Handle
	masterGain uint64
	lpfL       float64
	lpfR       float64
	lpfAlpha   float64
	vibrato    *lfo.LFO

	held  map[int]int // note -> press count
	pedal bool
}

// New creates a sampler at the given sample rate.
func New(sampleRate int, params Params) *Engine {
	params.Polyphony = numeric.Clamp(params.Polyphony, 1, maxVoices)
	e := &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]slot, params.Polyphony),
		masterGain: math.Float64bits(params.MasterGain),
		held:       make(map[int]int),
		vibrato:    lfo.New(sampleRate, params.VibratoCents, params.VibratoHz, lfo.Sine),
	}
	if params.LPFCutoff > 0 && params.LPFCutoff < float64(sampleRate)/2 {
		rc := 1.0 / (twoPi * params.LPFCutoff)
		dt := 1.0 / float64(sampleRate)
		e.lpfAlpha = dt / (rc + dt)
	}
	e.table = make([]float64, tableLen)
	for i := range e.table {
		x := twoPi * float64(i) / tableLen
		e.table[i] = 0.6*math.Sin(x) + 0.25*math.Sin(2*x) + 0.15*math.Sin(3*x)
	}
	return e
}

// SetWavetable replaces the single-cycle waveform used by new and sounding voices.
func (e *Engine) SetWavetable(samples []float64) {
	if len(samples) == 0 {
		return
	}
	cp := make([]float64, len(samples))
	copy(cp, samples)
	e.table = cp
	for i := range e.voices {
		e.voices[i].phase = 0
	}
}

// Start begins a voice, skipping startOffset samples into its attack.
// It returns voice.NoHandle when every voice is busy and none is releasing.
func (e *Engine) Start(note, velocity, startOffset int) voice.Handle {
	i := e.freeSlot()
	if i < 0 {
		return voice.NoHandle
	}
	id := e.nextID
	e.nextID++
	v := &e.voices[i]
	*v = slot{
		active:   true,
		id:       id,
		note:     note,
		velocity: numeric.Clamp(float64(velocity)/127.0, 0, 1),
		envState: envAttack,
	}
	v.gain.set(1, 1, 0)
	if startOffset > 0 {
		e.skip(v, startOffset)
	}
	return id
}

// Stop releases a voice through its envelope. While the sustain pedal is
// down the voice keeps sounding until the pedal is lifted.
func (e *Engine) Stop(h voice.Handle) {
	v := e.find(h)
	if v == nil || v.envState == envRelease {
		return
	}
	if e.pedal {
		v.damped = true
		return
	}
	v.envState = envRelease
}

// FadeIn ramps a voice's crossfade gain from silence to full.
func (e *Engine) FadeIn(h voice.Handle, samples int) {
	if v := e.find(h); v != nil {
		v.gain.set(0, 1, samples)
	}
}

// FadeOut ramps a voice's crossfade gain to silence and frees it.
func (e *Engine) FadeOut(h voice.Handle, samples int) {
	v := e.find(h)
	if v == nil {
		return
	}
	v.fading = true
	v.gain.set(v.gain.value, 0, samples)
	if samples <= 0 {
		v.active = false
	}
}

// ApplyPitchRamp glides a voice's detune in cents.
func (e *Engine) ApplyPitchRamp(h voice.Handle, startCents, targetCents float64, samples int) {
	if v := e.find(h); v != nil {
		v.cents.set(startCents, targetCents, samples)
	}
}

// KeyDown records a pressed key. It must be called before the note-on is
// dispatched so IsLegatoInterval sees the overlap.
func (e *Engine) KeyDown(note int) { e.held[note]++ }

func (e *Engine) KeyUp(note int) {
	if e.held[note] <= 1 {
		delete(e.held, note)
		return
	}
	e.held[note]--
}

// HeldKeys returns the number of distinct keys pressed.
func (e *Engine) HeldKeys() int { return len(e.held) }

// IsLegatoInterval reports whether another key is held alongside the newest one.
func (e *Engine) IsLegatoInterval() bool { return len(e.held) > 1 }

// SetSustainPedal sets the pedal. Lifting it releases every voice stopped
// while it was down.
func (e *Engine) SetSustainPedal(down bool) {
	e.pedal = down
	if down {
		return
	}
	for i := range e.voices {
		if v := &e.voices[i]; v.active && v.damped {
			v.damped = false
			v.envState = envRelease
		}
	}
}

func (e *Engine) IsSustainPedalDown() bool { return e.pedal }

// ActiveVoiceCount returns the number of sounding voices, fading ones included.
func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}

// NoteOf returns the note a handle was started on.
func (e *Engine) NoteOf(h voice.Handle) (int, bool) {
	if v := e.find(h); v != nil {
		return v.note, true
	}
	return 0, false
}

// SetMasterGain sets the master gain atomically.
func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

// RenderFrame produces one stereo sample pair.
func (e *Engine) RenderFrame() (float32, float32) {
	var sum float64
	master := e.masterGainValue()
	vib := e.vibrato.Next()
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		env := e.advanceEnv(v)
		if !v.active {
			continue
		}
		sig := e.sampleAt(v.phase)
		sum += sig * env * v.gain.value * master * (0.2 + v.velocity*e.params.VelocityAmp)
		e.advanceVoice(v, vib)
	}

	l, r := sum, sum
	if e.lpfAlpha > 0 {
		e.lpfL += e.lpfAlpha * (l - e.lpfL)
		e.lpfR += e.lpfAlpha * (r - e.lpfR)
		l, r = e.lpfL, e.lpfR
	}
	return float32(numeric.Clamp(l, -1, 1)), float32(numeric.Clamp(r, -1, 1))
}

// --- internal helpers ---

func (e *Engine) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

func (e *Engine) find(h voice.Handle) *slot {
	if !h.Valid() {
		return nil
	}
	for i := range e.voices {
		if e.voices[i].active && e.voices[i].id == h {
			return &e.voices[i]
		}
	}
	return nil
}

// freeSlot returns an idle slot, else the quietest releasing, fading or
// pedal-held one.
func (e *Engine) freeSlot() int {
	for i := range e.voices {
		if !e.voices[i].active {
			return i
		}
	}
	quiet := -1
	minLevel := math.Inf(1)
	for i := range e.voices {
		v := &e.voices[i]
		if v.envState != envRelease && !v.fading && !v.damped {
			continue
		}
		if level := v.env * v.gain.value; level < minLevel {
			minLevel = level
			quiet = i
		}
	}
	return quiet
}

// skip fast-forwards a new voice, capped at one second.
func (e *Engine) skip(v *slot, frames int) {
	frames = min(frames, int(e.sampleRate))
	for n := 0; n < frames; n++ {
		e.advanceEnv(v)
		e.advanceVoice(v, 0)
	}
}

func (e *Engine) sampleAt(phase float64) float64 {
	n := len(e.table)
	idx := math.Floor(phase)
	frac := phase - idx
	i0 := int(idx) % n
	if i0 < 0 {
		i0 += n
	}
	i1 := (i0 + 1) % n
	return e.table[i0]*(1-frac) + e.table[i1]*frac
}

func (e *Engine) increment(v *slot, vibCents float64) float64 {
	freq := midiToFreq(v.note) * math.Pow(2, (v.cents.value+vibCents)/1200)
	return freq * float64(len(e.table)) / e.sampleRate
}

func (e *Engine) advanceVoice(v *slot, vibCents float64) {
	n := float64(len(e.table))
	v.phase += e.increment(v, vibCents)
	for v.phase >= n {
		v.phase -= n
	}
	v.cents.advance()
	v.gain.advance()
	if v.fading && v.gain.frames == 0 && v.gain.value <= 0 {
		v.active = false
	}
}

func (e *Engine) advanceEnv(v *slot) float64 {
	switch v.envState {
	case envAttack:
		step := e.envStep(1, e.params.AttackSec)
		v.env += step
		if v.env >= 1 {
			v.env = 1
			v.envState = envDecay
		}
	case envDecay:
		step := e.envStep(1-e.params.SustainLvl, e.params.DecaySec)
		v.env -= step
		if v.env <= e.params.SustainLvl {
			v.env = e.params.SustainLvl
			v.envState = envSustain
		}
	case envSustain:
		// hold
	case envRelease:
		step := e.envStep(e.params.SustainLvl, e.params.ReleaseSec)
		v.env -= step
		if v.env <= 0.0001 {
			v.env = 0
			v.envState = envOff
			v.active = false
		}
	case envOff:
		v.active = false
		v.env = 0
	}
	return v.env
}

// envStep is the per-frame change covering span over sec; degenerate
// segments complete in one frame.
func (e *Engine) envStep(span, sec float64) float64 {
	step := span / (sec * e.sampleRate)
	if !(step > 0) || math.IsInf(step, 0) {
		return 1
	}
	return step
}

func midiToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}
