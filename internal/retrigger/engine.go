// Package retrigger implements the ghost retrigger column: legato note-ons
// re-attack the previous note at a whisper velocity instead of sounding
// themselves, and releasing the newest note re-articulates it.
//
// Notes that do not form a legato interval are swallowed. The column is
// meant to layer transition noises over a separately played instrument.
package retrigger

import (
	"math/rand"

	"github.com/cbegin/legatofx/internal/note"
	"github.com/cbegin/legatofx/internal/voice"
)

const (
	MinGhostVelocity = 1
	MaxGhostVelocity = 6
)

// State is a snapshot of the retrigger state.
type State struct {
	LastNote      int
	RetriggerNote int
	LastVoice     voice.Handle
}

type Engine struct {
	alloc voice.Allocator
	rng   *rand.Rand
	state State

	ghosts map[int]voice.Handle // ghost voices owned by the key that triggered them
	held   map[int]struct{}
}

// New returns an engine driving alloc. A nil rng is seeded with 1.
func New(alloc voice.Allocator, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Engine{
		alloc: alloc,
		rng:   rng,
		state: State{
			LastNote:      note.None,
			RetriggerNote: note.None,
			LastVoice:     voice.NoHandle,
		},
		ghosts: make(map[int]voice.Handle),
		held:   make(map[int]struct{}),
	}
}

func (e *Engine) State() State { return e.state }

func (e *Engine) ghostVelocity() int {
	return MinGhostVelocity + e.rng.Intn(MaxGhostVelocity-MinGhostVelocity+1)
}

func (e *Engine) OnNoteOn(ev note.Event) {
	e.stopReleaseVoice()

	current := ev.Number
	e.held[current] = struct{}{}
	if e.state.LastNote != note.None && e.alloc.IsLegatoInterval() &&
		!e.alloc.IsSustainPedalDown() && e.alloc.ActiveVoiceCount() > 0 {
		h := e.alloc.Start(e.state.LastNote, e.ghostVelocity(), ev.Offset)
		if h.Valid() {
			if old, ok := e.ghosts[current]; ok {
				e.alloc.Stop(old)
			}
			e.ghosts[current] = h
		}
		e.state.RetriggerNote = e.state.LastNote
	} else {
		e.state.RetriggerNote = note.None
	}
	e.state.LastNote = current
}

// OnNoteOff re-articulates the released note when a retrigger is pending.
// The release voice rings until the next note-on or until no key is held.
func (e *Engine) OnNoteOff(ev note.Event) {
	n := ev.Number
	delete(e.held, n)
	if h, ok := e.ghosts[n]; ok {
		delete(e.ghosts, n)
		e.alloc.Stop(h)
	}
	if n == e.state.RetriggerNote {
		e.state.RetriggerNote = note.None
	}
	if n == e.state.LastNote && e.state.RetriggerNote != note.None && e.alloc.ActiveVoiceCount() > 0 {
		e.stopReleaseVoice()
		h := e.alloc.Start(e.state.LastNote, e.ghostVelocity(), ev.Offset)
		if h.Valid() {
			e.alloc.ApplyPitchRamp(h, 0, ev.Detune, 0)
		}
		e.state.LastVoice = h
		e.state.LastNote = e.state.RetriggerNote
	}
	if len(e.held) == 0 {
		e.stopReleaseVoice()
	}
}

// OnController is a no-op; the pedal is read from the allocator.
func (e *Engine) OnController(note.Event) {}

// OnTimerTick is a no-op; the column never arms the timer.
func (e *Engine) OnTimerTick() {}

func (e *Engine) stopReleaseVoice() {
	if e.state.LastVoice.Valid() {
		e.alloc.Stop(e.state.LastVoice)
		e.state.LastVoice = voice.NoHandle
	}
}
