package midiio

import (
	"fmt"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/cbegin/legatofx/internal/note"
)

// OpenInput finds an input port by name, or the first port when name is
// empty. A driver must be registered by the caller.
func OpenInput(name string) (drivers.In, error) {
	if name == "" {
		in, err := midi.InPort(0)
		if err != nil {
			return nil, fmt.Errorf("open first midi input: %w", err)
		}
		return in, nil
	}
	in, err := midi.FindInPort(name)
	if err != nil {
		return nil, fmt.Errorf("midi input %q: %w", name, err)
	}
	return in, nil
}

// InputNames lists the available input ports.
func InputNames() []string {
	var names []string
	for _, in := range midi.GetInPorts() {
		names = append(names, in.String())
	}
	return names
}

// Listen forwards note and controller messages from in to sink, stamped
// with now(). sink runs on the driver's goroutine. Driver errors go to
// onErr when it is non-nil.
func Listen(in drivers.In, now func() time.Duration, sink func(note.Event), onErr func(error)) (stop func(), err error) {
	opts := []midi.Option{}
	if onErr != nil {
		opts = append(opts, midi.HandleError(onErr))
	}
	stop, err = midi.ListenTo(in, func(msg midi.Message, _ int32) {
		if ev, ok := MessageEvent(msg, now()); ok {
			sink(ev)
		}
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("listen to %s: %w", in, err)
	}
	return stop, nil
}
