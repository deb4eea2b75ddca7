package legatofx

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/cbegin/legatofx/internal/midiio"
	"github.com/cbegin/legatofx/internal/note"
)

// DefaultTail is the time rendered after the last event.
const DefaultTail = 1500 * time.Millisecond

const renderBlock = 1024

// RenderEvents plays events through a new instrument and returns the
// interleaved stereo output up to the last event plus tail.
func RenderEvents(events []note.Event, sampleRate int, tail time.Duration, opts ...Option) ([]float32, error) {
	inst, err := NewInstrument(sampleRate, opts...)
	if err != nil {
		return nil, err
	}
	return inst.render(events, tail), nil
}

// RenderSMF renders a Standard MIDI File. The file's tempo drives glide
// rates unless WithTempo fixed one.
func RenderSMF(r io.Reader, sampleRate int, tail time.Duration, opts ...Option) ([]float32, error) {
	song, err := midiio.Read(r)
	if err != nil {
		return nil, err
	}
	inst, err := NewInstrument(sampleRate, opts...)
	if err != nil {
		return nil, err
	}
	if song.Tempo > 0 {
		inst.SetTempo(song.Tempo)
	}
	return inst.render(song.Events, tail), nil
}

func (i *Instrument) render(events []note.Event, tail time.Duration) []float32 {
	end := i.Schedule(events)
	frames := int(math.Round((end + tail).Seconds() * float64(i.sampleRate)))
	out := make([]float32, frames*2)
	for start := 0; start < len(out); start += renderBlock * 2 {
		stop := min(start+renderBlock*2, len(out))
		i.Process(out[start:stop])
	}
	return out
}

// EncodeWAVFloat32LE wraps interleaved float32 samples in a WAVE file
// (format 3, IEEE float).
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	out := make([]byte, 44+dataSize)
	le := binary.LittleEndian

	copy(out[0:], "RIFF")
	le.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVE")

	copy(out[12:], "fmt ")
	le.PutUint32(out[16:], 16)
	le.PutUint16(out[20:], 3)
	le.PutUint16(out[22:], uint16(channels))
	le.PutUint32(out[24:], uint32(sampleRate))
	le.PutUint32(out[28:], uint32(sampleRate*channels*4))
	le.PutUint16(out[32:], uint16(channels*4))
	le.PutUint16(out[34:], 32)

	copy(out[36:], "data")
	le.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		le.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}

// WriteWAV encodes samples as a stereo float WAVE file to w.
func WriteWAV(w io.Writer, samples []float32, sampleRate int) error {
	if _, err := w.Write(EncodeWAVFloat32LE(samples, sampleRate, 2)); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return nil
}
