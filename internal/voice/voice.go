package voice

// Handle identifies a sounding voice returned by an Allocator.
type Handle int

// NoHandle denotes "no active handle".
const NoHandle Handle = -1

func (h Handle) Valid() bool { return h >= 0 }

// Allocator is the host voice allocator driven by the articulation engines.
// Durations are in samples, pitch in cents relative to the started note.
type Allocator interface {
	// Start begins a note and returns NoHandle when no voice is free.
	Start(note, velocity, startOffset int) Handle
	// Stop releases the voice through its release envelope.
	Stop(h Handle)
	// FadeIn starts the voice silent and ramps it to full level.
	FadeIn(h Handle, samples int)
	// FadeOut ramps the voice to silence and frees it.
	FadeOut(h Handle, samples int)
	// ApplyPitchRamp moves the voice detune from startCents to targetCents.
	// A zero duration jumps straight to targetCents.
	ApplyPitchRamp(h Handle, startCents, targetCents float64, samples int)
	// IsLegatoInterval reports whether the arriving note overlaps a held key.
	IsLegatoInterval() bool
	IsSustainPedalDown() bool
	ActiveVoiceCount() int
}
