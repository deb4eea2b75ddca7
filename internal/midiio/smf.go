// Package midiio turns Standard MIDI Files and live MIDI input into note
// events for the instrument.
package midiio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/legatofx/internal/note"
)

var ErrNoNotes = errors.New("no notes in midi file")

// Song is a flattened SMF: every channel merged into one time-ordered list.
type Song struct {
	Events []note.Event
	Tempo  float64 // first tempo meta event, 0 when absent
	Length time.Duration
}

// ReadFile reads an SMF from disk.
func ReadFile(path string) (Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Song{}, fmt.Errorf("read midi file: %w", err)
	}
	song, err := Read(bytes.NewReader(data))
	if err != nil {
		return Song{}, fmt.Errorf("%s: %w", path, err)
	}
	return song, nil
}

// Read parses an SMF. The smf reader panics on some malformed input; those
// panics come back as errors.
func Read(r io.Reader) (song Song, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("parse midi file: %v", p)
		}
	}()
	s, err := smf.ReadFrom(r)
	if err != nil {
		return Song{}, fmt.Errorf("parse midi file: %w", err)
	}
	song = Convert(s)
	if len(song.Events) == 0 {
		return Song{}, ErrNoNotes
	}
	return song, nil
}

// Convert merges the tracks of s. Events sharing a timestamp put note-offs
// first so a repeated key releases before it is struck again.
func Convert(s *smf.SMF) Song {
	var song Song
	for _, track := range s.Tracks {
		var absTicks int64
		for _, ev := range track {
			absTicks += int64(ev.Delta)
			at := time.Duration(s.TimeAt(absTicks)) * time.Microsecond

			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) {
				if song.Tempo == 0 {
					song.Tempo = bpm
				}
				continue
			}
			if e, ok := MessageEvent(midi.Message(ev.Message), at); ok {
				song.Events = append(song.Events, e)
			}
		}
	}
	sort.SliceStable(song.Events, func(i, j int) bool {
		a, b := song.Events[i], song.Events[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.Kind == note.KindNoteOff && b.Kind != note.KindNoteOff
	})
	if n := len(song.Events); n > 0 {
		song.Length = song.Events[n-1].Time
	}
	return song
}

// MessageEvent translates a channel message. Note-ons with velocity zero
// are note-offs.
func MessageEvent(msg midi.Message, at time.Duration) (note.Event, bool) {
	var ch, key, vel, ctl, val uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		ev := note.NoteOn(int(key), int(vel), at)
		ev.Channel = int(ch)
		return ev, true
	case msg.GetNoteEnd(&ch, &key):
		ev := note.NoteOff(int(key), at)
		ev.Channel = int(ch)
		return ev, true
	case msg.GetControlChange(&ch, &ctl, &val):
		ev := note.Controller(int(ctl), int(val), at)
		ev.Channel = int(ch)
		return ev, true
	}
	return note.Event{}, false
}
