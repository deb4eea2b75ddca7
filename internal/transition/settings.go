package transition

import (
	"time"

	"github.com/cbegin/legatofx/internal/articulation"
)

// DefaultChordThreshold is the widest gap between two note-ons that still
// counts as one chord.
const DefaultChordThreshold = 25 * time.Millisecond

// Settings are the externally owned knob values read by the engine.
type Settings struct {
	Mode           articulation.Mode
	WholeStep      bool
	BendTimeMs     float64 // added to the crossfade time to get the bend time
	MinBend        float64 // cents for a 1 semitone interval
	MaxBend        float64 // cents for a 12 semitone interval
	FadeTimeMs     float64 // maximum crossfade time
	FadeOutRatio   float64 // old voice fade-out as a percentage of the fade time
	StartOffsetMs  float64 // start offset for legato phrase and glide notes
	GlideRate      int     // tempo-relative rate index; GlideRateMax selects velocity
	GlideRateMax   int
	SameNoteLegato bool
	KillOldNotes   bool
	GlideReattack  bool
	ChordThreshold time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Mode:           articulation.Legato,
		BendTimeMs:     0,
		MinBend:        10,
		MaxBend:        100,
		FadeTimeMs:     100,
		FadeOutRatio:   100,
		StartOffsetMs:  0,
		GlideRate:      11,
		GlideRateMax:   19,
		GlideReattack:  true,
		ChordThreshold: DefaultChordThreshold,
	}
}
