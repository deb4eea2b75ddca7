// Package transform holds the per-event transforms that run upstream of the
// transition engines: transposition, velocity curves and humanising.
package transform

import (
	"github.com/cbegin/legatofx/internal/note"
)

// Transform rewrites one event.
type Transform interface {
	Apply(ev note.Event) note.Event
}

// Chain applies transforms in order.
type Chain []Transform

func (c Chain) Apply(ev note.Event) note.Event {
	for _, t := range c {
		ev = t.Apply(ev)
	}
	return ev
}
