// Package note defines the timed MIDI events dispatched by the host into the
// articulation engines.
package note

import "time"

// None marks the absence of a note number (no previous note, no pending retrigger).
const None = -1

// Kind identifies what an Event carries.
type Kind int

const (
	KindNoteOn Kind = iota
	KindNoteOff
	KindController
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "note-on"
	case KindNoteOff:
		return "note-off"
	case KindController:
		return "controller"
	default:
		return "unknown"
	}
}

// Event is a single host event. Time is monotonic engine time measured from
// the start of the instrument instance.
type Event struct {
	Kind     Kind
	Number   int // note number 0-127, or controller number for KindController
	Velocity int // 1-127 for note-on; controller value for KindController
	Channel  int
	Detune   float64 // cents carried by the event (coarse*100 + fine)
	Offset   int     // start offset in samples requested upstream
	Time     time.Duration
}

// SustainPedal is the controller number of the damper pedal.
const SustainPedal = 64

func NoteOn(number, velocity int, at time.Duration) Event {
	return Event{Kind: KindNoteOn, Number: number, Velocity: velocity, Time: at}
}

func NoteOff(number int, at time.Duration) Event {
	return Event{Kind: KindNoteOff, Number: number, Time: at}
}

func Controller(number, value int, at time.Duration) Event {
	return Event{Kind: KindController, Number: number, Velocity: value, Time: at}
}

// PedalDown reports whether e is a sustain pedal press.
func (e Event) PedalDown() bool {
	return e.Kind == KindController && e.Number == SustainPedal && e.Velocity >= 64
}

// IsPedal reports whether e is a sustain pedal controller change.
func (e Event) IsPedal() bool {
	return e.Kind == KindController && e.Number == SustainPedal
}
