package legatofx

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/legatofx/internal/config"
	"github.com/cbegin/legatofx/internal/note"
)

func phrase() []note.Event {
	return []note.Event{
		note.NoteOn(60, 90, 0),
		note.NoteOn(62, 90, 300*time.Millisecond),
		note.NoteOff(60, 320*time.Millisecond),
		note.NoteOn(67, 110, 600*time.Millisecond),
		note.NoteOff(62, 620*time.Millisecond),
		note.NoteOff(67, 900*time.Millisecond),
	}
}

func energy(samples []float32) float64 {
	var e float64
	for _, s := range samples {
		e += math.Abs(float64(s))
	}
	return e
}

func TestRenderEventsIsDeterministic(t *testing.T) {
	s := config.Default()
	s.Humaniser = config.Humaniser{Velocity: 10, PitchCents: 10, OffsetMs: 20}
	render := func() []float32 {
		out, err := RenderEvents(phrase(), 48000, 500*time.Millisecond,
			WithSettings(s), WithRand(rand.New(rand.NewSource(42))))
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		return out
	}
	a, b := render(), render()
	if len(a) != 67200*2 {
		t.Fatalf("len = %d, want %d", len(a), 67200*2)
	}
	if energy(a) == 0 {
		t.Fatalf("expected non-zero audio energy")
	}
	ha := sha256.Sum256(EncodeWAVFloat32LE(a, 48000, 2))
	hb := sha256.Sum256(EncodeWAVFloat32LE(b, 48000, 2))
	if ha != hb {
		t.Fatalf("renders with the same seed differ")
	}
}

func TestRenderModesDiffer(t *testing.T) {
	render := func(mode string) []float32 {
		s := config.Default()
		s.Mode = mode
		out, err := RenderEvents(phrase(), 48000, 200*time.Millisecond, WithSettings(s))
		if err != nil {
			t.Fatalf("render %s: %v", mode, err)
		}
		return out
	}
	sustain, glide := render("sustain"), render("glide")
	if bytes.Equal(EncodeWAVFloat32LE(sustain, 48000, 2), EncodeWAVFloat32LE(glide, 48000, 2)) {
		t.Fatalf("sustain and glide renders are identical")
	}
}

func TestRenderOutputStage(t *testing.T) {
	render := func(o config.Output) []float32 {
		s := config.Default()
		s.Output = o
		out, err := RenderEvents(phrase(), 48000, 300*time.Millisecond, WithSettings(s))
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		return out
	}
	dry := render(config.Output{})
	wet := render(config.Output{RoomSize: 0.5, RoomDecay: 0.8, RoomMix: 0.5, LimiterDB: -12})
	if len(dry) != len(wet) {
		t.Fatalf("len = %d, want %d", len(wet), len(dry))
	}
	if bytes.Equal(EncodeWAVFloat32LE(dry, 48000, 2), EncodeWAVFloat32LE(wet, 48000, 2)) {
		t.Fatalf("output stage left the render unchanged")
	}
	for i, v := range wet {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("sample %d = %f", i, v)
		}
	}
}

func TestRenderEventsRejectsBadSampleRate(t *testing.T) {
	if _, err := RenderEvents(phrase(), -1, 0); !errors.Is(err, ErrInvalidSampleRate) {
		t.Fatalf("err = %v, want ErrInvalidSampleRate", err)
	}
}

func TestRenderSMF(t *testing.T) {
	s := smf.New()
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(100))
	tr.Add(0, midi.NoteOn(0, 60, 90))
	tr.Add(960, midi.NoteOn(0, 65, 90))
	tr.Add(20, midi.NoteOff(0, 60))
	tr.Add(940, midi.NoteOff(0, 65))
	tr.Close(0)
	if err := s.Add(tr); err != nil {
		t.Fatalf("add track: %v", err)
	}
	var file bytes.Buffer
	if _, err := s.WriteTo(&file); err != nil {
		t.Fatalf("write smf: %v", err)
	}

	out, err := RenderSMF(bytes.NewReader(file.Bytes()), 48000, time.Second)
	if err != nil {
		t.Fatalf("RenderSMF: %v", err)
	}
	// two beats at 100 bpm plus a second of tail
	want := int(2.2*48000) * 2
	if d := len(out) - want; d < -4 || d > 4 {
		t.Fatalf("len = %d, want about %d", len(out), want)
	}
	if energy(out) == 0 {
		t.Fatalf("expected non-zero audio energy")
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	wav := EncodeWAVFloat32LE([]float32{0.5, -0.5}, 44100, 2)
	if len(wav) != 52 {
		t.Fatalf("len = %d, want 52", len(wav))
	}
	le := binary.LittleEndian
	checks := []struct {
		name      string
		got, want uint32
	}{
		{"riff size", le.Uint32(wav[4:]), 44},
		{"format", uint32(le.Uint16(wav[20:])), 3},
		{"channels", uint32(le.Uint16(wav[22:])), 2},
		{"rate", le.Uint32(wav[24:]), 44100},
		{"byte rate", le.Uint32(wav[28:]), 44100 * 8},
		{"bits", uint32(le.Uint16(wav[34:])), 32},
		{"data size", le.Uint32(wav[40:]), 8},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Fatalf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatalf("bad chunk ids")
	}
	if math.Float32frombits(le.Uint32(wav[48:])) != -0.5 {
		t.Fatalf("second sample not encoded")
	}
}
