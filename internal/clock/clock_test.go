package clock

import (
	"math"
	"testing"
	"time"
)

func TestMsFromTempoRelativeRate(t *testing.T) {
	c := New(48000, 120)
	cases := map[int]float64{
		0:  2000, // whole note
		5:  500,  // quarter
		8:  250,  // eighth
		17: 31.25,
	}
	for rate, want := range cases {
		if got := c.MsFromTempoRelativeRate(rate); math.Abs(got-want) > 1e-9 {
			t.Fatalf("rate %d = %v ms, want %v", rate, got, want)
		}
	}
	if c.MsFromTempoRelativeRate(99) != c.MsFromTempoRelativeRate(NumRates-1) {
		t.Fatalf("out of range rate should clamp")
	}
}

func TestTempoClamp(t *testing.T) {
	c := New(48000, 0)
	if c.Tempo() != DefaultBPM {
		t.Fatalf("tempo = %v, want default", c.Tempo())
	}
	c.SetTempo(1000)
	if c.Tempo() != MaxBPM {
		t.Fatalf("tempo = %v, want %v", c.Tempo(), MaxBPM)
	}
}

func TestSamplesFromMs(t *testing.T) {
	c := New(48000, 120)
	if got := c.SamplesFromMs(10); got != 480 {
		t.Fatalf("SamplesFromMs(10) = %d, want 480", got)
	}
	if got := c.SamplesFromMs(-5); got != 0 {
		t.Fatalf("negative ms = %d, want 0", got)
	}
}

func TestTimerFiresEachPeriod(t *testing.T) {
	c := New(1000, 120)
	fired := 0
	c.Arm(10*time.Millisecond, func() { fired++ })
	c.Advance(9)
	if fired != 0 {
		t.Fatalf("fired early: %d", fired)
	}
	c.Advance(1)
	if fired != 1 {
		t.Fatalf("fired = %d after one period, want 1", fired)
	}
	c.Advance(25)
	if fired != 3 {
		t.Fatalf("fired = %d after 35ms, want 3", fired)
	}
}

func TestRearmCancelsPreviousTimer(t *testing.T) {
	c := New(1000, 120)
	first, second := 0, 0
	c.Arm(5*time.Millisecond, func() { first++ })
	c.Advance(3)
	c.Arm(10*time.Millisecond, func() { second++ })
	c.Advance(10)
	if first != 0 || second != 1 {
		t.Fatalf("first=%d second=%d, want 0 and 1", first, second)
	}
}

func TestCallbackCanDisarm(t *testing.T) {
	c := New(1000, 120)
	fired := 0
	c.Arm(time.Millisecond, func() {
		fired++
		if fired == 3 {
			c.Disarm()
		}
	})
	c.Advance(50)
	if fired != 3 || c.Armed() {
		t.Fatalf("fired=%d armed=%v, want 3 and false", fired, c.Armed())
	}
}

func TestNowTracksPosition(t *testing.T) {
	c := New(48000, 120)
	c.Advance(24000)
	if c.Now() != 500*time.Millisecond {
		t.Fatalf("Now() = %v, want 500ms", c.Now())
	}
	if c.SampleAt(250*time.Millisecond) != 12000 {
		t.Fatalf("SampleAt(250ms) = %d", c.SampleAt(250*time.Millisecond))
	}
}

func TestRateName(t *testing.T) {
	if RateName(5) != "1/4" || RateName(NumRates) != "velocity" {
		t.Fatalf("RateName mismatch: %q %q", RateName(5), RateName(NumRates))
	}
}
