// Package host is the single-threaded dispatch loop between timed note
// events, a transition engine and the sampler. Events, timer ticks and
// rendering all happen inside Process, one frame at a time.
package host

import (
	"github.com/cbegin/legatofx/internal/clock"
	"github.com/cbegin/legatofx/internal/note"
	"github.com/cbegin/legatofx/internal/sampler"
)

// Handler receives host callbacks. Timer ticks are delivered by the clock
// to whatever callback the handler armed, between event dispatch and
// rendering of the same frame.
type Handler interface {
	OnNoteOn(ev note.Event)
	OnNoteOff(ev note.Event)
	OnController(ev note.Event)
	OnTimerTick()
}

// EventKind identifies host lifecycle events.
type EventKind int

const (
	// EventDrained fires once the queue is empty and every voice has
	// finished, after the release tail.
	EventDrained EventKind = iota
)

type Options struct {
	OnEvent           func(EventKind)
	ReleaseTailFrames int // frames to render after the last voice ends (0 = 0.1s)
}

type pending struct {
	sample int64
	ev     note.Event
}

type Host struct {
	alloc   *sampler.Engine
	clk     *clock.Clock
	handler Handler
	onEvent func(EventKind)

	queue        []pending
	tailFrames   int
	tailLeft     int
	drainedFired bool
}

func New(sampleRate int, alloc *sampler.Engine, clk *clock.Clock, h Handler) *Host {
	return NewWithOptions(sampleRate, alloc, clk, h, Options{})
}

func NewWithOptions(sampleRate int, alloc *sampler.Engine, clk *clock.Clock, h Handler, opts Options) *Host {
	tail := opts.ReleaseTailFrames
	if tail <= 0 {
		tail = sampleRate / 10
	}
	return &Host{
		alloc:      alloc,
		clk:        clk,
		handler:    h,
		onEvent:    opts.OnEvent,
		tailFrames: tail,
		tailLeft:   tail,
	}
}

// Enqueue schedules ev at its timestamp. Events in the past are dispatched
// on the next frame; events sharing a frame keep their enqueue order.
func (h *Host) Enqueue(ev note.Event) {
	p := pending{sample: h.clk.SampleAt(ev.Time), ev: ev}
	h.queue = append(h.queue, p)
	// Insertion sort: events almost always arrive in time order.
	i := len(h.queue) - 1
	for i > 0 && h.queue[i-1].sample > p.sample {
		h.queue[i] = h.queue[i-1]
		i--
	}
	h.queue[i] = p
	h.drainedFired = false
	h.tailLeft = h.tailFrames
}

// Pending returns the number of queued events.
func (h *Host) Pending() int { return len(h.queue) }

// Drained reports whether the queue is empty and all voices have ended.
func (h *Host) Drained() bool { return h.drainedFired }

// Process renders interleaved stereo frames into dst.
func (h *Host) Process(dst []float32) {
	frames := len(dst) / 2
	for f := 0; f < frames; f++ {
		h.dispatchDue(h.clk.Position())
		h.clk.Advance(1)
		l, r := h.alloc.RenderFrame()
		dst[f*2] = l
		dst[f*2+1] = r
		h.trackDrain()
	}
}

func (h *Host) dispatchDue(pos int64) {
	n := 0
	for n < len(h.queue) && h.queue[n].sample <= pos {
		h.dispatch(h.queue[n].ev)
		n++
	}
	if n > 0 {
		h.queue = append(h.queue[:0], h.queue[n:]...)
	}
}

func (h *Host) dispatch(ev note.Event) {
	switch ev.Kind {
	case note.KindNoteOn:
		h.alloc.KeyDown(ev.Number)
		h.handler.OnNoteOn(ev)
	case note.KindNoteOff:
		h.alloc.KeyUp(ev.Number)
		h.handler.OnNoteOff(ev)
	case note.KindController:
		if ev.IsPedal() {
			h.alloc.SetSustainPedal(ev.PedalDown())
		}
		h.handler.OnController(ev)
	}
}

func (h *Host) trackDrain() {
	if h.drainedFired || len(h.queue) > 0 || h.alloc.ActiveVoiceCount() > 0 {
		return
	}
	if h.tailLeft > 0 {
		h.tailLeft--
		return
	}
	h.drainedFired = true
	if h.onEvent != nil {
		h.onEvent(EventDrained)
	}
}
