// Package audio plays a float32 sample source through the ebiten audio
// context.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// DefaultBlockFrames is the render quantum for live output. Live events are
// applied at block boundaries, so it bounds their scheduling jitter.
const DefaultBlockFrames = 256

// Source fills interleaved stereo frames. Process is called from the audio
// driver's goroutine.
type Source interface {
	Process(dst []float32)
}

// FinishingSource is a Source that can end. The block rendered when
// Finished turns true is still delivered, then Read returns io.EOF.
type FinishingSource interface {
	Source
	Finished() bool
}

// Stream renders a Source in fixed-size blocks and serves them as
// little-endian float32 bytes, whatever size the player reads.
type Stream struct {
	mu      sync.Mutex
	source  Source
	samples []float32
	block   []byte
	off     int
	frames  int64
	done    bool
}

// NewStream returns a stream rendering blockFrames frames per Process call.
func NewStream(source Source, blockFrames int) *Stream {
	if blockFrames <= 0 {
		blockFrames = DefaultBlockFrames
	}
	block := make([]byte, blockFrames*8)
	return &Stream{
		source:  source,
		samples: make([]float32, blockFrames*2),
		block:   block,
		off:     len(block),
	}
}

func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for n < len(p) {
		if s.off == len(s.block) {
			if s.done {
				break
			}
			s.render()
		}
		c := copy(p[n:], s.block[s.off:])
		s.off += c
		n += c
	}
	if n == 0 && s.done && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (s *Stream) render() {
	s.source.Process(s.samples)
	encodeFloat32LE(s.block, s.samples)
	s.off = 0
	s.frames += int64(len(s.samples) / 2)
	if fs, ok := s.source.(FinishingSource); ok && fs.Finished() {
		s.done = true
	}
}

// Frames returns the number of frames rendered so far.
func (s *Stream) Frames() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func encodeFloat32LE(dst []byte, src []float32) {
	for i, v := range src {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

var (
	playbackOnce sync.Once
	playback     *ebitaudio.Context
	playbackRate int
)

// sharedContext returns the process-wide audio context; ebiten allows one.
func sharedContext(sampleRate int) (*ebitaudio.Context, error) {
	playbackOnce.Do(func() {
		playbackRate = sampleRate
		playback = ebitaudio.NewContext(sampleRate)
	})
	if playbackRate != sampleRate {
		return nil, fmt.Errorf("audio context already running at %d Hz (requested %d Hz)", playbackRate, sampleRate)
	}
	return playback, nil
}

// Output is a live player pulling blocks from a Source.
type Output struct {
	player *ebitaudio.Player
}

func NewOutput(sampleRate int, source Source, blockFrames int) (*Output, error) {
	ctx, err := sharedContext(sampleRate)
	if err != nil {
		return nil, err
	}
	pl, err := ctx.NewPlayerF32(NewStream(source, blockFrames))
	if err != nil {
		return nil, fmt.Errorf("new audio player: %w", err)
	}
	return &Output{player: pl}, nil
}

func (o *Output) Play() { o.player.Play() }

func (o *Output) Stop() error {
	o.player.Pause()
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("close audio player: %w", err)
	}
	return nil
}
