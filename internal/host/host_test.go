package host

import (
	"testing"
	"time"

	"github.com/cbegin/legatofx/internal/articulation"
	"github.com/cbegin/legatofx/internal/clock"
	"github.com/cbegin/legatofx/internal/note"
	"github.com/cbegin/legatofx/internal/sampler"
	"github.com/cbegin/legatofx/internal/transition"
)

const testRate = 48000

type seen struct {
	kind note.Kind
	num  int
	pos  int64
	held int
}

type recordingHandler struct {
	alloc  *sampler.Engine
	clk    *clock.Clock
	events []seen
}

func (r *recordingHandler) record(ev note.Event) {
	r.events = append(r.events, seen{ev.Kind, ev.Number, r.clk.Position(), r.alloc.HeldKeys()})
}

func (r *recordingHandler) OnNoteOn(ev note.Event)     { r.record(ev) }
func (r *recordingHandler) OnNoteOff(ev note.Event)    { r.record(ev) }
func (r *recordingHandler) OnController(ev note.Event) { r.record(ev) }
func (r *recordingHandler) OnTimerTick()               {}

func newRecordingHost() (*Host, *recordingHandler, *sampler.Engine) {
	alloc := sampler.New(testRate, sampler.DefaultParams())
	clk := clock.New(testRate, 120)
	rec := &recordingHandler{alloc: alloc, clk: clk}
	return New(testRate, alloc, clk, rec), rec, alloc
}

func TestHostDispatchesInTimeOrder(t *testing.T) {
	h, rec, _ := newRecordingHost()
	h.Enqueue(note.NoteOff(60, 20*time.Millisecond))
	h.Enqueue(note.NoteOn(60, 100, 0))
	h.Enqueue(note.NoteOn(64, 100, 10*time.Millisecond))

	buf := make([]float32, testRate/10*2)
	h.Process(buf)

	want := []seen{
		{note.KindNoteOn, 60, 0, 1},
		{note.KindNoteOn, 64, 480, 2},
		{note.KindNoteOff, 60, 960, 1},
	}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %+v, want %+v", rec.events, want)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, rec.events[i], want[i])
		}
	}
	if h.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", h.Pending())
	}
}

func TestHostSameFrameKeepsEnqueueOrder(t *testing.T) {
	h, rec, _ := newRecordingHost()
	h.Enqueue(note.NoteOn(60, 100, 0))
	h.Enqueue(note.NoteOff(60, 0))
	h.Process(make([]float32, 2))
	if len(rec.events) != 2 || rec.events[0].kind != note.KindNoteOn || rec.events[1].kind != note.KindNoteOff {
		t.Fatalf("events = %+v", rec.events)
	}
}

func TestHostTracksSustainPedal(t *testing.T) {
	h, _, alloc := newRecordingHost()
	h.Enqueue(note.Controller(note.SustainPedal, 127, 0))
	h.Process(make([]float32, 2))
	if !alloc.IsSustainPedalDown() {
		t.Fatalf("pedal should be down")
	}
	h.Enqueue(note.Controller(note.SustainPedal, 0, 0))
	h.Process(make([]float32, 2))
	if alloc.IsSustainPedalDown() {
		t.Fatalf("pedal should be up")
	}
}

func TestHostFiresDrainedAfterRelease(t *testing.T) {
	alloc := sampler.New(testRate, sampler.DefaultParams())
	clk := clock.New(testRate, 120)
	eng := transition.New(alloc, clk, transition.DefaultSettings())
	drained := 0
	h := NewWithOptions(testRate, alloc, clk, eng, Options{OnEvent: func(k EventKind) {
		if k == EventDrained {
			drained++
		}
	}})
	h.Enqueue(note.NoteOn(60, 100, 0))
	h.Enqueue(note.NoteOff(60, 100*time.Millisecond))

	buf := make([]float32, testRate*2)
	h.Process(buf)
	if !h.Drained() || drained != 1 {
		t.Fatalf("drained = %v (%d events), want true once", h.Drained(), drained)
	}

	var energy float64
	for _, s := range buf {
		if s < 0 {
			energy -= float64(s)
		} else {
			energy += float64(s)
		}
	}
	if energy == 0 {
		t.Fatalf("expected non-zero audio energy")
	}
}

func TestHostLegatoPhraseCrossfades(t *testing.T) {
	alloc := sampler.New(testRate, sampler.DefaultParams())
	clk := clock.New(testRate, 120)
	eng := transition.New(alloc, clk, transition.DefaultSettings())
	h := New(testRate, alloc, clk, eng)

	h.Enqueue(note.NoteOn(60, 80, 0))
	h.Enqueue(note.NoteOn(64, 80, 300*time.Millisecond))
	h.Process(make([]float32, (testRate*3/10+10)*2))

	if alloc.ActiveVoiceCount() != 2 {
		t.Fatalf("active = %d during crossfade, want 2", alloc.ActiveVoiceCount())
	}
	h.Process(make([]float32, testRate/5*2))
	if alloc.ActiveVoiceCount() != 1 {
		t.Fatalf("active = %d after crossfade, want 1", alloc.ActiveVoiceCount())
	}
	if st := eng.State(); st.LastNote != 64 {
		t.Fatalf("last note = %d, want 64", st.LastNote)
	}
}

func TestHostDrivesGlideTimer(t *testing.T) {
	alloc := sampler.New(testRate, sampler.DefaultParams())
	clk := clock.New(testRate, 120)
	s := transition.DefaultSettings()
	s.Mode = articulation.Glide
	eng := transition.New(alloc, clk, s)
	h := New(testRate, alloc, clk, eng)

	h.Enqueue(note.NoteOn(60, 100, 0))
	h.Enqueue(note.NoteOn(67, 100, 200*time.Millisecond))
	h.Process(make([]float32, (testRate/5+100)*2))
	if !clk.Armed() || !eng.State().Gliding() {
		t.Fatalf("glide should be running")
	}
	h.Process(make([]float32, testRate*2))
	st := eng.State()
	if clk.Armed() || st.Gliding() || st.LastNote != 67 || st.GlideStep != 7 {
		t.Fatalf("after glide: armed=%v state=%+v", clk.Armed(), st)
	}
}
