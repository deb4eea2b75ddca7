package transition

import (
	"fmt"

	"github.com/cbegin/legatofx/internal/voice"
)

type call struct {
	op      string
	handle  voice.Handle
	note    int
	vel     int
	samples int
	from    float64
	to      float64
}

func (c call) String() string {
	return fmt.Sprintf("%s(h=%d note=%d vel=%d n=%d %.2f→%.2f)", c.op, c.handle, c.note, c.vel, c.samples, c.from, c.to)
}

// recordingAllocator is a voice.Allocator that records every call.
type recordingAllocator struct {
	calls    []call
	nextID   voice.Handle
	active   map[voice.Handle]int
	legato   bool
	pedal    bool
	capacity int  // 0 = unlimited
	full     bool // refuse every start
}

func newRecordingAllocator() *recordingAllocator {
	return &recordingAllocator{active: map[voice.Handle]int{}, legato: true}
}

func (a *recordingAllocator) Start(note, velocity, startOffset int) voice.Handle {
	if a.full || (a.capacity > 0 && len(a.active) >= a.capacity) {
		a.calls = append(a.calls, call{op: "start", handle: voice.NoHandle, note: note, vel: velocity, samples: startOffset})
		return voice.NoHandle
	}
	h := a.nextID
	a.nextID++
	a.active[h] = note
	a.calls = append(a.calls, call{op: "start", handle: h, note: note, vel: velocity, samples: startOffset})
	return h
}

func (a *recordingAllocator) Stop(h voice.Handle) {
	delete(a.active, h)
	a.calls = append(a.calls, call{op: "stop", handle: h})
}

func (a *recordingAllocator) FadeIn(h voice.Handle, samples int) {
	a.calls = append(a.calls, call{op: "fadein", handle: h, samples: samples})
}

func (a *recordingAllocator) FadeOut(h voice.Handle, samples int) {
	delete(a.active, h)
	a.calls = append(a.calls, call{op: "fadeout", handle: h, samples: samples})
}

func (a *recordingAllocator) ApplyPitchRamp(h voice.Handle, startCents, targetCents float64, samples int) {
	a.calls = append(a.calls, call{op: "pitch", handle: h, samples: samples, from: startCents, to: targetCents})
}

func (a *recordingAllocator) IsLegatoInterval() bool {
	a.calls = append(a.calls, call{op: "legato?"})
	return a.legato
}

func (a *recordingAllocator) IsSustainPedalDown() bool {
	a.calls = append(a.calls, call{op: "pedal?"})
	return a.pedal
}

func (a *recordingAllocator) ActiveVoiceCount() int {
	a.calls = append(a.calls, call{op: "voices?"})
	return len(a.active)
}

func (a *recordingAllocator) reset() { a.calls = nil }

func (a *recordingAllocator) find(op string) []call {
	var out []call
	for _, c := range a.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}
