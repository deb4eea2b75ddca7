// Package config is the instrument's knob surface: JSON settings with the
// instrument defaults and the knob ranges enforced by Clamp.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cbegin/legatofx/internal/articulation"
	"github.com/cbegin/legatofx/internal/clock"
	"github.com/cbegin/legatofx/internal/numeric"
	"github.com/cbegin/legatofx/internal/transform"
	"github.com/cbegin/legatofx/internal/transition"
)

var (
	ErrUnknownMode   = errors.New("unknown articulation mode")
	ErrUnknownEngine = errors.New("unknown engine kind")
)

// Engine kinds.
const (
	EngineTransition = "transition"
	EngineRetrigger  = "retrigger"
)

// Humaniser holds the humaniser knobs.
type Humaniser struct {
	Velocity       int     `json:"velocity"`
	PitchCents     int     `json:"pitch"`
	OffsetMs       float64 `json:"offset"`
	NoteOnDelayMs  float64 `json:"noteOnDelay"`
	NoteOffDelayMs float64 `json:"noteOffDelay"`
}

// Vibrato is the sampler's shared pitch wobble. Zero depth disables it.
type Vibrato struct {
	DepthCents float64 `json:"depth"`
	RateHz     float64 `json:"rate"`
}

// Output holds the output stage knobs. A zero RoomMix bypasses the room and
// a zero LimiterDB bypasses the limiter.
type Output struct {
	RoomSize  float64 `json:"roomSize"`
	RoomDecay float64 `json:"roomDecay"`
	RoomMix   float64 `json:"roomMix"`
	LimiterDB float64 `json:"limiterDb"`
}

type Settings struct {
	Engine           string  `json:"engine"`
	Mode             string  `json:"mode"`
	WholeStep        bool    `json:"wholeStep"`
	BendTimeMs       float64 `json:"bendTime"`
	MinBend          float64 `json:"minBend"`
	MaxBend          float64 `json:"maxBend"`
	FadeTimeMs       float64 `json:"fadeTime"`
	FadeOutRatio     float64 `json:"fadeOutRatio"`
	StartOffsetMs    float64 `json:"startOffset"`
	GlideRate        int     `json:"glideRate"`
	SameNoteLegato   bool    `json:"sameNoteLegato"`
	KillOldNotes     bool    `json:"killOldNotes"`
	GlideReattack    bool    `json:"glideReattack"`
	ChordThresholdMs float64 `json:"chordThresholdMs"`

	Tempo     float64 `json:"tempo"`
	Polyphony int     `json:"polyphony"`
	Gain      float64 `json:"gain"`

	Transpose     int               `json:"transpose"`
	VelocityCurve []transform.Point `json:"velocityCurve,omitempty"`
	Humaniser     Humaniser         `json:"humaniser"`

	Vibrato Vibrato `json:"vibrato"`
	Output  Output  `json:"output"`
}

// Knob ranges.
const (
	MinBendTimeMs = -50
	MaxBendTimeMs = 50
	MaxBendCents  = 100
	MinFadeTimeMs = 10
	MaxFadeTimeMs = 500
	MaxOffsetMs   = 1000
	MaxPolyphony  = 32
	MinLimiterDB  = -24
	MaxVibratoCt  = 100
	MaxVibratoHz  = 12
)

func Default() Settings {
	return Settings{
		Engine:           EngineTransition,
		Mode:             articulation.Legato.String(),
		BendTimeMs:       0,
		MinBend:          10,
		MaxBend:          100,
		FadeTimeMs:       100,
		FadeOutRatio:     100,
		StartOffsetMs:    0,
		GlideRate:        11,
		GlideReattack:    true,
		ChordThresholdMs: float64(transition.DefaultChordThreshold / time.Millisecond),
		Tempo:            clock.DefaultBPM,
		Polyphony:        16,
		Gain:             0.35,
		Vibrato:          Vibrato{RateHz: 5.5},
		Output: Output{
			RoomSize:  0.5,
			RoomDecay: 0.7,
		},
	}
}

// Clamp forces every knob into its range.
func (s Settings) Clamp() Settings {
	s.BendTimeMs = numeric.Clamp(s.BendTimeMs, MinBendTimeMs, MaxBendTimeMs)
	s.MinBend = numeric.Clamp(s.MinBend, 0, MaxBendCents)
	s.MaxBend = numeric.Clamp(s.MaxBend, 0, MaxBendCents)
	s.FadeTimeMs = numeric.Clamp(s.FadeTimeMs, MinFadeTimeMs, MaxFadeTimeMs)
	s.FadeOutRatio = numeric.Clamp(s.FadeOutRatio, 0, 100)
	s.StartOffsetMs = numeric.Clamp(s.StartOffsetMs, 0, MaxOffsetMs)
	s.GlideRate = numeric.Clamp(s.GlideRate, 0, clock.NumRates)
	s.ChordThresholdMs = numeric.Clamp(s.ChordThresholdMs, 0, 1000)
	s.Tempo = numeric.Clamp(s.Tempo, clock.MinBPM, clock.MaxBPM)
	s.Polyphony = numeric.Clamp(s.Polyphony, 1, MaxPolyphony)
	s.Gain = numeric.Clamp(s.Gain, 0, 1)
	s.Transpose = numeric.Clamp(s.Transpose, transform.MinTranspose, transform.MaxTranspose)
	s.Vibrato.DepthCents = numeric.Clamp(s.Vibrato.DepthCents, 0, MaxVibratoCt)
	s.Vibrato.RateHz = numeric.Clamp(s.Vibrato.RateHz, 0, MaxVibratoHz)
	s.Output.RoomSize = numeric.Clamp(s.Output.RoomSize, 0, 1)
	s.Output.RoomDecay = numeric.Clamp(s.Output.RoomDecay, 0, 0.95)
	s.Output.RoomMix = numeric.Clamp(s.Output.RoomMix, 0, 1)
	s.Output.LimiterDB = numeric.Clamp(s.Output.LimiterDB, MinLimiterDB, 0)
	return s
}

// Validate reports settings that cannot be clamped into range.
func (s Settings) Validate() error {
	if _, err := articulation.ParseMode(s.Mode); err != nil {
		return fmt.Errorf("%w %q", ErrUnknownMode, s.Mode)
	}
	switch s.Engine {
	case EngineTransition, EngineRetrigger:
	default:
		return fmt.Errorf("%w %q", ErrUnknownEngine, s.Engine)
	}
	return nil
}

// Transition converts the knobs into transition engine settings.
func (s Settings) Transition() (transition.Settings, error) {
	mode, err := articulation.ParseMode(s.Mode)
	if err != nil {
		return transition.Settings{}, fmt.Errorf("%w %q", ErrUnknownMode, s.Mode)
	}
	return transition.Settings{
		Mode:           mode,
		WholeStep:      s.WholeStep,
		BendTimeMs:     s.BendTimeMs,
		MinBend:        s.MinBend,
		MaxBend:        s.MaxBend,
		FadeTimeMs:     s.FadeTimeMs,
		FadeOutRatio:   s.FadeOutRatio,
		StartOffsetMs:  s.StartOffsetMs,
		GlideRate:      s.GlideRate,
		GlideRateMax:   clock.NumRates,
		SameNoteLegato: s.SameNoteLegato,
		KillOldNotes:   s.KillOldNotes,
		GlideReattack:  s.GlideReattack,
		ChordThreshold: time.Duration(s.ChordThresholdMs * float64(time.Millisecond)),
	}, nil
}

// Parse decodes JSON over the defaults, then clamps and validates.
func Parse(data []byte) (Settings, error) {
	s := Default()
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	s = s.Clamp()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Load reads settings from a JSON file.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
