package legatofx

import (
	"log"
	"math/rand"

	"github.com/google/uuid"

	"github.com/cbegin/legatofx/internal/note"
	"github.com/cbegin/legatofx/internal/retrigger"
	"github.com/cbegin/legatofx/internal/sampler"
	"github.com/cbegin/legatofx/internal/voice"
)

// loggingAllocator reports the first failed start of each exhaustion run.
type loggingAllocator struct {
	*sampler.Engine
	logger    *log.Logger
	id        uuid.UUID
	exhausted bool
}

func (a *loggingAllocator) Start(n, velocity, startOffset int) voice.Handle {
	h := a.Engine.Start(n, velocity, startOffset)
	switch {
	case h.Valid():
		a.exhausted = false
	case !a.exhausted:
		a.exhausted = true
		if a.logger != nil {
			a.logger.Printf("[%s] polyphony exhausted, note %d not started", a.id, n)
		}
	}
	return h
}

// retriggerColumn pairs the ghost retrigger engine with a plain body layer:
// every key sounds its own voice and the engine layers ghosts on top.
type retriggerColumn struct {
	alloc  voice.Allocator
	engine *retrigger.Engine
	body   map[int]voice.Handle
}

func newRetriggerColumn(alloc voice.Allocator, rng *rand.Rand) *retriggerColumn {
	return &retriggerColumn{
		alloc:  alloc,
		engine: retrigger.New(alloc, rng),
		body:   make(map[int]voice.Handle),
	}
}

func (c *retriggerColumn) OnNoteOn(ev note.Event) {
	c.engine.OnNoteOn(ev)
	if old, ok := c.body[ev.Number]; ok {
		c.alloc.Stop(old)
	}
	h := c.alloc.Start(ev.Number, ev.Velocity, ev.Offset)
	if !h.Valid() {
		delete(c.body, ev.Number)
		return
	}
	if ev.Detune != 0 {
		c.alloc.ApplyPitchRamp(h, ev.Detune, ev.Detune, 0)
	}
	c.body[ev.Number] = h
}

func (c *retriggerColumn) OnNoteOff(ev note.Event) {
	c.engine.OnNoteOff(ev)
	if h, ok := c.body[ev.Number]; ok {
		delete(c.body, ev.Number)
		c.alloc.Stop(h)
	}
}

func (c *retriggerColumn) OnController(ev note.Event) { c.engine.OnController(ev) }

func (c *retriggerColumn) OnTimerTick() { c.engine.OnTimerTick() }
