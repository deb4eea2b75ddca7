// Package transition implements the legato/glide note transition engine.
//
// Each incoming note-on either starts an independent voice, crossfades from
// the sounding voice into a new one, or starts a stepped glide towards the
// new note. The engine owns all transition state and is driven from a single
// thread: note events and timer ticks must never be delivered concurrently.
package transition

import (
	"time"

	"github.com/cbegin/legatofx/internal/articulation"
	"github.com/cbegin/legatofx/internal/bend"
	"github.com/cbegin/legatofx/internal/note"
	"github.com/cbegin/legatofx/internal/numeric"
	"github.com/cbegin/legatofx/internal/timing"
	"github.com/cbegin/legatofx/internal/voice"
)

// Timer is the host timer service. Arm replaces any armed timer.
type Timer interface {
	Arm(period time.Duration, callback func())
	Disarm()
	MsFromTempoRelativeRate(rate int) float64
	SamplesFromMs(ms float64) int
}

// State is a snapshot of the transition state.
type State struct {
	LastNote      int
	LastVoice     voice.Handle
	LastEventTime time.Duration
	Mode          articulation.Mode
	GlideStep     int // ticks taken by the current glide
	GlideNote     int // pitch currently sounding during a glide
	GlideTarget   int
	RetriggerNote int // note re-attacked by the last same-note release
}

// Gliding reports whether a glide is in progress.
func (s State) Gliding() bool { return s.GlideTarget != note.None }

type Engine struct {
	alloc    voice.Allocator
	timer    Timer
	settings Settings
	selector *articulation.Selector
	table    bend.Table
	state    State

	seen         bool // a note-on has been received
	lastVelocity int
	lastCents    float64 // detune of LastVoice relative to its started note
	glidePeriod  time.Duration

	held   map[int]struct{}
	voices map[int]voice.Handle // independently started voices owned by a held key
}

func New(alloc voice.Allocator, timer Timer, settings Settings) *Engine {
	e := &Engine{
		alloc:    alloc,
		timer:    timer,
		selector: articulation.NewSelector(settings.Mode),
		held:     make(map[int]struct{}),
		voices:   make(map[int]voice.Handle),
		state: State{
			LastNote:      note.None,
			LastVoice:     voice.NoHandle,
			GlideNote:     note.None,
			GlideTarget:   note.None,
			RetriggerNote: note.None,
		},
	}
	e.settings = settings
	e.table = bend.Rebuild(settings.MinBend, settings.MaxBend)
	e.applySettings(settings)
	return e
}

// Configure applies new settings. The bend table is rebuilt only when the
// bend calibration changed. Settings are read once per transition, so a
// change lands on the next event.
func (e *Engine) Configure(settings Settings) {
	if settings.MinBend != e.settings.MinBend || settings.MaxBend != e.settings.MaxBend {
		e.table = bend.Rebuild(settings.MinBend, settings.MaxBend)
	}
	e.settings = settings
	e.applySettings(settings)
}

func (e *Engine) applySettings(s Settings) {
	e.selector.Select(s.Mode)
	e.selector.SetWholeStep(s.WholeStep)
	if e.settings.ChordThreshold < 0 {
		e.settings.ChordThreshold = 0
	}
	e.state.Mode = e.selector.Mode()
}

func (e *Engine) Settings() Settings { return e.settings }

func (e *Engine) BendTable() bend.Table { return e.table }

func (e *Engine) State() State { return e.state }

// OnNoteOn handles a key press.
func (e *Engine) OnNoteOn(ev note.Event) {
	e.held[ev.Number] = struct{}{}
	e.state.RetriggerNote = note.None

	from := e.soundingNote()
	e.stopGlide()

	mode := e.selector.Mode()
	switch {
	case mode == articulation.Sustain:
		e.startIndependent(ev, ev.Offset)
	case e.isChord(ev.Time):
		e.startIndependent(ev, ev.Offset)
	case !e.eligible():
		e.startIndependent(ev, e.startOffset(ev))
	case mode == articulation.Legato:
		e.crossfade(from, ev)
	case mode == articulation.Glide:
		e.beginGlide(from, ev)
	}

	e.seen = true
	e.lastVelocity = ev.Velocity
	e.state.Mode = mode
	e.state.LastEventTime = ev.Time
	e.state.LastNote = ev.Number
}

// OnNoteOff handles a key release. Releasing a key with no voice of its own
// while other keys are held leaves the phrase sounding.
func (e *Engine) OnNoteOff(ev note.Event) {
	n := ev.Number
	delete(e.held, n)

	if h, ok := e.voices[n]; ok {
		delete(e.voices, n)
		e.alloc.Stop(h)
		if len(e.held) == 0 && e.state.LastVoice.Valid() {
			e.turnOffLastNote()
		}
		return
	}
	if !e.state.LastVoice.Valid() {
		return
	}
	mode := e.selector.Mode()
	if n == e.state.LastNote && e.settings.SameNoteLegato && mode == articulation.Legato && len(e.held) > 0 {
		e.retriggerOnRelease(n)
		return
	}
	if len(e.held) == 0 || (n == e.state.LastNote && mode == articulation.Sustain) {
		e.turnOffLastNote()
	}
}

// OnController is part of the host callback set; controllers do not affect
// transitions. The sustain pedal is read from the allocator.
func (e *Engine) OnController(note.Event) {}

// OnTimerTick advances a glide by one step.
func (e *Engine) OnTimerTick() {
	if !e.state.Gliding() {
		e.timer.Disarm()
		return
	}
	from, target := e.state.GlideNote, e.state.GlideTarget
	step := e.selector.Step()
	to := from + step
	if target < from {
		to = from - step
		to = max(to, target)
	} else {
		to = min(to, target)
	}

	periodMs := float64(e.glidePeriod) / float64(time.Millisecond)
	samples := e.timer.SamplesFromMs(periodMs)
	if e.settings.GlideReattack {
		bendCents := e.table.Signed(from, to)
		old := e.state.LastVoice
		offset := e.timer.SamplesFromMs(e.settings.StartOffsetMs)
		h := e.alloc.Start(to, e.lastVelocity, offset)
		if h.Valid() {
			e.disposeOld(old, bendCents, samples, periodMs)
			e.alloc.FadeIn(h, samples)
			e.alloc.ApplyPitchRamp(h, -bendCents, 0, samples)
		} else {
			h = e.replace(old, to, e.lastVelocity, offset, 0)
		}
		e.state.LastVoice = h
		e.lastCents = 0
	} else if e.state.LastVoice.Valid() {
		next := e.lastCents + float64(to-from)*100
		e.alloc.ApplyPitchRamp(e.state.LastVoice, e.lastCents, next, samples)
		e.lastCents = next
	}

	e.state.GlideNote = to
	e.state.GlideStep++
	if to == target {
		e.timer.Disarm()
		e.state.LastNote = target
		e.state.GlideTarget = note.None
	}
}

func (e *Engine) soundingNote() int {
	if e.state.Gliding() {
		return e.state.GlideNote
	}
	return e.state.LastNote
}

// stopGlide cancels an in-flight glide, leaving the voice at its current step.
func (e *Engine) stopGlide() {
	if !e.state.Gliding() {
		return
	}
	e.timer.Disarm()
	e.state.LastNote = e.state.GlideNote
	e.state.GlideTarget = note.None
}

func (e *Engine) isChord(now time.Duration) bool {
	if !e.seen {
		return false
	}
	return now-e.state.LastEventTime <= e.settings.ChordThreshold
}

// eligible reports whether the arriving note continues the sounding phrase.
func (e *Engine) eligible() bool {
	if e.state.LastNote == note.None || !e.state.LastVoice.Valid() {
		return false
	}
	if e.alloc.ActiveVoiceCount() == 0 {
		return false
	}
	if e.alloc.IsSustainPedalDown() {
		return false
	}
	return e.alloc.IsLegatoInterval()
}

func (e *Engine) startOffset(ev note.Event) int {
	return e.timer.SamplesFromMs(e.settings.StartOffsetMs) + ev.Offset
}

func (e *Engine) startIndependent(ev note.Event, offset int) {
	if old := e.state.LastVoice; old.Valid() {
		prev := e.state.LastNote
		if _, down := e.held[prev]; down && prev != ev.Number {
			if h, ok := e.voices[prev]; ok {
				e.alloc.Stop(h)
			}
			e.voices[prev] = old
		} else {
			e.alloc.Stop(old)
		}
	}
	h := e.alloc.Start(ev.Number, ev.Velocity, offset)
	if h.Valid() && ev.Detune != 0 {
		e.alloc.ApplyPitchRamp(h, ev.Detune, ev.Detune, 0)
	}
	e.state.LastVoice = h
	e.lastCents = ev.Detune
}

func (e *Engine) crossfade(from int, ev note.Event) {
	interval := numeric.Abs(ev.Number - from)
	fade := timing.CrossfadeDuration(interval, ev.Velocity, ev.Time, e.state.LastEventTime, e.settings.FadeTimeMs)
	bendMs := timing.BendDuration(fade, e.settings.BendTimeMs)
	bendCents := 0.0
	if interval > 0 {
		bendCents = e.table.Signed(from, ev.Number)
	}
	bendSamples := e.timer.SamplesFromMs(bendMs)

	old := e.state.LastVoice
	h := e.alloc.Start(ev.Number, ev.Velocity, e.startOffset(ev))
	if h.Valid() {
		e.disposeOld(old, bendCents, bendSamples, fade)
		e.alloc.FadeIn(h, e.timer.SamplesFromMs(fade))
		e.alloc.ApplyPitchRamp(h, ev.Detune-bendCents, ev.Detune, bendSamples)
	} else {
		h = e.replace(old, ev.Number, ev.Velocity, e.startOffset(ev), ev.Detune)
	}
	e.state.LastVoice = h
	e.lastCents = ev.Detune
}

// disposeOld bends the outgoing voice towards the new note and fades it
// out, or releases it at once when old notes are killed.
func (e *Engine) disposeOld(old voice.Handle, bendCents float64, bendSamples int, fadeMs float64) {
	if !old.Valid() {
		return
	}
	if e.settings.KillOldNotes {
		e.alloc.Stop(old)
		return
	}
	ratio := numeric.Clamp(e.settings.FadeOutRatio, 0, 100) / 100
	e.alloc.ApplyPitchRamp(old, e.lastCents, e.lastCents+bendCents, bendSamples)
	e.alloc.FadeOut(old, e.timer.SamplesFromMs(fadeMs*ratio))
}

// replace releases old and starts the note plainly. It is the fallback when
// no voice is free for a transition, so the new note sounds without one.
func (e *Engine) replace(old voice.Handle, n, velocity, offset int, detune float64) voice.Handle {
	if old.Valid() {
		e.alloc.Stop(old)
	}
	h := e.alloc.Start(n, velocity, offset)
	if h.Valid() && detune != 0 {
		e.alloc.ApplyPitchRamp(h, detune, detune, 0)
	}
	return h
}

func (e *Engine) beginGlide(from int, ev note.Event) {
	e.state.GlideStep = 0
	e.state.GlideNote = from
	interval := numeric.Abs(ev.Number - from)
	if interval == 0 {
		return
	}
	e.state.GlideTarget = ev.Number
	e.glidePeriod = timing.GlideRate(interval, ev.Velocity, e.settings.GlideRate, e.settings.GlideRateMax, e.timer)
	e.timer.Arm(e.glidePeriod, e.OnTimerTick)
}

func (e *Engine) retriggerOnRelease(n int) {
	fade := e.settings.FadeTimeMs * 0.5
	samples := e.timer.SamplesFromMs(fade)
	old := e.state.LastVoice
	offset := e.timer.SamplesFromMs(e.settings.StartOffsetMs)
	h := e.alloc.Start(n, e.lastVelocity, offset)
	if h.Valid() {
		e.disposeOld(old, 0, samples, fade)
		e.alloc.FadeIn(h, samples)
	} else {
		h = e.replace(old, n, e.lastVelocity, offset, 0)
	}
	e.state.LastVoice = h
	e.state.RetriggerNote = n
	e.lastCents = 0
}

func (e *Engine) turnOffLastNote() {
	e.stopGlide()
	e.alloc.Stop(e.state.LastVoice)
	e.state.LastVoice = voice.NoHandle
	e.state.LastNote = note.None
	e.lastCents = 0
}
