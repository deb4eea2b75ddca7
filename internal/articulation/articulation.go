package articulation

import (
	"fmt"
	"strings"
)

// Mode selects how a new note relates to the one already sounding.
type Mode int

const (
	Sustain Mode = iota
	Legato
	Glide
)

func (m Mode) String() string {
	switch m {
	case Sustain:
		return "sustain"
	case Legato:
		return "legato"
	case Glide:
		return "glide"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts the names returned by Mode.String, case-insensitively.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sustain", "":
		return Sustain, nil
	case "legato":
		return Legato, nil
	case "glide":
		return Glide, nil
	}
	return Sustain, fmt.Errorf("unknown articulation mode %q (expected sustain|legato|glide)", name)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Selector is the Sustain/Legato/Glide radio group plus the whole-step glide
// toggle. Exactly one mode button is on at any time.
type Selector struct {
	sustain   bool
	legato    bool
	glide     bool
	wholeStep bool
}

// NewSelector returns a selector with mode selected.
func NewSelector(mode Mode) *Selector {
	s := &Selector{}
	s.Select(mode)
	return s
}

// Select turns mode on and the other two off. Unknown modes fall back to Sustain.
func (s *Selector) Select(mode Mode) {
	s.sustain = false
	s.legato = false
	s.glide = false
	switch mode {
	case Legato:
		s.legato = true
	case Glide:
		s.glide = true
	default:
		s.sustain = true
	}
}

func (s *Selector) Mode() Mode {
	switch {
	case s.legato:
		return Legato
	case s.glide:
		return Glide
	default:
		return Sustain
	}
}

// Buttons reports the state of each radio button, in Sustain, Legato, Glide order.
func (s *Selector) Buttons() (sustain, legato, glide bool) {
	return s.sustain, s.legato, s.glide
}

func (s *Selector) SetWholeStep(on bool) { s.wholeStep = on }

func (s *Selector) WholeStep() bool { return s.wholeStep }

// Step is the number of semitones a glide advances per timer tick.
func (s *Selector) Step() int {
	if s.wholeStep {
		return 2
	}
	return 1
}
