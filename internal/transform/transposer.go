package transform

import (
	"github.com/cbegin/legatofx/internal/note"
	"github.com/cbegin/legatofx/internal/numeric"
)

const (
	MinTranspose = -12
	MaxTranspose = 12
)

// Transposer shifts note-on and note-off numbers by a fixed amount so a
// release always matches its press.
type Transposer struct {
	Semitones int
}

func (t Transposer) Apply(ev note.Event) note.Event {
	if ev.Kind == note.KindController {
		return ev
	}
	st := numeric.Clamp(t.Semitones, MinTranspose, MaxTranspose)
	if st == 0 {
		return ev
	}
	ev.Number = numeric.Clamp(ev.Number+st, 0, 127)
	return ev
}
