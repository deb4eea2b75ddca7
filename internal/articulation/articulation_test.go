package articulation

import "testing"

func TestSelectIsExclusive(t *testing.T) {
	s := NewSelector(Legato)
	for _, mode := range []Mode{Sustain, Glide, Legato, Glide, Sustain} {
		s.Select(mode)
		sustain, legato, glide := s.Buttons()
		on := 0
		for _, b := range []bool{sustain, legato, glide} {
			if b {
				on++
			}
		}
		if on != 1 {
			t.Fatalf("after Select(%v): %d buttons on, want 1", mode, on)
		}
		if s.Mode() != mode {
			t.Fatalf("Mode() = %v, want %v", s.Mode(), mode)
		}
	}
}

func TestSelectUnknownFallsBackToSustain(t *testing.T) {
	s := NewSelector(Mode(42))
	if s.Mode() != Sustain {
		t.Fatalf("Mode() = %v, want sustain", s.Mode())
	}
}

func TestWholeStepIsOrthogonal(t *testing.T) {
	s := NewSelector(Glide)
	if s.Step() != 1 {
		t.Fatalf("chromatic step = %d, want 1", s.Step())
	}
	s.SetWholeStep(true)
	s.Select(Legato)
	s.Select(Glide)
	if !s.WholeStep() || s.Step() != 2 {
		t.Fatalf("whole step lost across mode changes")
	}
}

func TestParseMode(t *testing.T) {
	for name, want := range map[string]Mode{"Sustain": Sustain, " legato ": Legato, "GLIDE": Glide} {
		got, err := ParseMode(name)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseMode("trill"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestModeTextRoundTrip(t *testing.T) {
	var m Mode
	if err := m.UnmarshalText([]byte("glide")); err != nil || m != Glide {
		t.Fatalf("UnmarshalText = %v, %v", m, err)
	}
	text, _ := Legato.MarshalText()
	if string(text) != "legato" {
		t.Fatalf("MarshalText = %q", text)
	}
}
