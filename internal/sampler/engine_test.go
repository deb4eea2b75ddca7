package sampler

import (
	"math"
	"testing"

	"github.com/cbegin/legatofx/internal/voice"
)

var _ voice.Allocator = (*Engine)(nil)

func newTestSampler(polyphony int) *Engine {
	p := DefaultParams()
	p.Polyphony = polyphony
	return New(48000, p)
}

func render(e *Engine, frames int) (peak float64) {
	for i := 0; i < frames; i++ {
		l, r := e.RenderFrame()
		peak = math.Max(peak, math.Max(math.Abs(float64(l)), math.Abs(float64(r))))
	}
	return peak
}

func TestStartFailsWhenPolyphonyExhausted(t *testing.T) {
	e := newTestSampler(2)
	a := e.Start(60, 100, 0)
	b := e.Start(64, 100, 0)
	if !a.Valid() || !b.Valid() || a == b {
		t.Fatalf("handles = %d, %d", a, b)
	}
	if h := e.Start(67, 100, 0); h != voice.NoHandle {
		t.Fatalf("start with full pool = %d, want NoHandle", h)
	}
	e.Stop(a)
	h := e.Start(67, 100, 0)
	if !h.Valid() {
		t.Fatalf("releasing voice should be reused")
	}
	if _, ok := e.NoteOf(a); ok {
		t.Fatalf("stolen handle still resolves")
	}
	if n, ok := e.NoteOf(h); !ok || n != 67 {
		t.Fatalf("NoteOf = %d, %v", n, ok)
	}
}

func TestFadeOutFreesVoice(t *testing.T) {
	e := newTestSampler(4)
	h := e.Start(60, 100, 0)
	e.FadeOut(h, 10)
	render(e, 9)
	if e.ActiveVoiceCount() != 1 {
		t.Fatalf("voice freed before fade ended")
	}
	render(e, 1)
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("active = %d after fade, want 0", e.ActiveVoiceCount())
	}

	h = e.Start(60, 100, 0)
	e.FadeOut(h, 0)
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("zero-length fade should free at once")
	}
}

func TestFadeInRampsGain(t *testing.T) {
	e := newTestSampler(4)
	h := e.Start(60, 100, 0)
	e.FadeIn(h, 100)
	v := e.find(h)
	if v.gain.value != 0 {
		t.Fatalf("gain = %v, want 0", v.gain.value)
	}
	render(e, 50)
	if math.Abs(v.gain.value-0.5) > 1e-9 {
		t.Fatalf("gain = %v, want 0.5", v.gain.value)
	}
	render(e, 50)
	if v.gain.value != 1 {
		t.Fatalf("gain = %v, want 1", v.gain.value)
	}
}

func TestPitchRampReachesTarget(t *testing.T) {
	e := newTestSampler(4)
	h := e.Start(60, 100, 0)
	e.ApplyPitchRamp(h, -40, 0, 48)
	v := e.find(h)
	if v.cents.value != -40 {
		t.Fatalf("cents = %v, want -40", v.cents.value)
	}
	render(e, 48)
	if v.cents.value != 0 {
		t.Fatalf("cents = %v, want 0", v.cents.value)
	}
	e.ApplyPitchRamp(h, 0, 12, 0)
	if v.cents.value != 12 {
		t.Fatalf("instant ramp = %v, want 12", v.cents.value)
	}
}

func TestStopReleasesThroughEnvelope(t *testing.T) {
	e := newTestSampler(4)
	h := e.Start(60, 100, 0)
	render(e, 4800)
	e.Stop(h)
	if e.ActiveVoiceCount() != 1 {
		t.Fatalf("released voice should still sound")
	}
	render(e, 48000)
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("voice never finished releasing")
	}
}

func TestStartOffsetSkipsAttack(t *testing.T) {
	e := newTestSampler(4)
	a := e.Start(60, 100, 0)
	b := e.Start(60, 100, 480)
	if e.find(b).env <= e.find(a).env {
		t.Fatalf("offset voice env = %v, want above %v", e.find(b).env, e.find(a).env)
	}
}

func TestKeyAndPedalTracking(t *testing.T) {
	e := newTestSampler(4)
	e.KeyDown(60)
	if e.IsLegatoInterval() {
		t.Fatalf("single key is not a legato interval")
	}
	e.KeyDown(62)
	if !e.IsLegatoInterval() || e.HeldKeys() != 2 {
		t.Fatalf("two keys should form a legato interval")
	}
	e.KeyUp(60)
	e.KeyUp(60)
	if e.IsLegatoInterval() || e.HeldKeys() != 1 {
		t.Fatalf("held = %d, want 1", e.HeldKeys())
	}
	e.SetSustainPedal(true)
	if !e.IsSustainPedalDown() {
		t.Fatalf("pedal not down")
	}
}

func TestRenderIsBoundedAndSilentWhenIdle(t *testing.T) {
	e := newTestSampler(8)
	if peak := render(e, 256); peak != 0 {
		t.Fatalf("idle peak = %v, want 0", peak)
	}
	for n := 48; n < 56; n++ {
		e.Start(n, 127, 0)
	}
	peak := render(e, 4800)
	if peak == 0 || peak > 1 {
		t.Fatalf("peak = %v, want (0, 1]", peak)
	}
}

func TestUnknownHandleIsIgnored(t *testing.T) {
	e := newTestSampler(2)
	e.Stop(voice.NoHandle)
	e.FadeIn(42, 10)
	e.FadeOut(42, 10)
	e.ApplyPitchRamp(42, 0, 100, 10)
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("unknown handles created voices")
	}
}

func TestVibratoModulatesPhase(t *testing.T) {
	params := DefaultParams()
	plain := New(48000, params)
	params.VibratoCents = 50
	params.VibratoHz = 6
	wobbly := New(48000, params)
	a, b := plain.Start(69, 100, 0), wobbly.Start(69, 100, 0)
	render(plain, 2000)
	render(wobbly, 2000)
	if plain.find(a).phase == wobbly.find(b).phase {
		t.Fatalf("vibrato left the phase unchanged")
	}
	if wobbly.find(b).cents.value != 0 {
		t.Fatalf("vibrato leaked into the voice detune")
	}
}

func TestSustainPedalHoldsStoppedVoices(t *testing.T) {
	e := newTestSampler(4)
	e.SetSustainPedal(true)
	h := e.Start(60, 100, 0)
	render(e, 480)
	e.Stop(h)
	render(e, 48000)
	if e.ActiveVoiceCount() != 1 || e.find(h).envState == envRelease {
		t.Fatalf("pedal should hold the stopped voice")
	}
	e.SetSustainPedal(false)
	if e.find(h).envState != envRelease {
		t.Fatalf("lifting the pedal should release the voice")
	}
	render(e, 48000)
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("voice never finished releasing")
	}
}

func TestPedalHeldVoiceCanBeReused(t *testing.T) {
	e := newTestSampler(1)
	e.SetSustainPedal(true)
	h := e.Start(60, 100, 0)
	if e.Start(62, 100, 0).Valid() {
		t.Fatalf("a held voice must not be stolen")
	}
	e.Stop(h)
	if !e.Start(62, 100, 0).Valid() {
		t.Fatalf("a pedal-held voice should give way to a new note")
	}
}
