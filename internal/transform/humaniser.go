package transform

import (
	"math/rand"
	"time"

	"github.com/cbegin/legatofx/internal/note"
	"github.com/cbegin/legatofx/internal/numeric"
)

// Humaniser adds random jitter to note events. A note-off inherits the
// detune and delay of its note-on so releases never precede presses.
type Humaniser struct {
	Velocity       int     // ±velocity, 0..25
	PitchCents     int     // ±cents, 0..50
	OffsetMs       float64 // max start offset jitter, 0..500
	NoteOnDelayMs  float64 // 0..100
	NoteOffDelayMs float64 // 0..100
	SampleRate     int

	rng     *rand.Rand
	onDelay [128]time.Duration
	detune  [128]float64
}

// NewHumaniser returns a humaniser drawing from rng. A nil rng is seeded
// from the current time.
func NewHumaniser(sampleRate int, rng *rand.Rand) *Humaniser {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Humaniser{SampleRate: sampleRate, rng: rng}
}

// symmetric returns an integer in [-n, n].
func (h *Humaniser) symmetric(n int) int {
	if n <= 0 {
		return 0
	}
	return h.rng.Intn(2*n+1) - n
}

func (h *Humaniser) delay(maxMs float64) time.Duration {
	if maxMs <= 0 {
		return 0
	}
	return time.Duration(h.rng.Float64() * maxMs * float64(time.Millisecond))
}

func (h *Humaniser) Apply(ev note.Event) note.Event {
	if ev.Kind == note.KindController {
		return ev
	}
	key := numeric.Clamp(ev.Number, 0, 127)
	switch ev.Kind {
	case note.KindNoteOn:
		cents := float64(h.symmetric(numeric.Clamp(h.PitchCents, 0, 50)))
		ev.Velocity = numeric.Clamp(ev.Velocity+h.symmetric(numeric.Clamp(h.Velocity, 0, 25)), 1, 127)
		ev.Detune += cents
		if ms := numeric.Clamp(h.OffsetMs, 0, 500); ms > 0 && h.SampleRate > 0 {
			ev.Offset = int(h.rng.Float64() * ms * float64(h.SampleRate) / 1000)
		}
		d := h.delay(numeric.Clamp(h.NoteOnDelayMs, 0, 100))
		h.onDelay[key] = d
		h.detune[key] = cents
		ev.Time += d
	case note.KindNoteOff:
		ev.Detune += h.detune[key]
		ev.Time += h.onDelay[key] + h.delay(numeric.Clamp(h.NoteOffDelayMs, 0, 100))
	}
	return ev
}
