package song

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// NumChannels is the fixed channel count per song: three melodic
	// synths plus the speech channel.
	NumChannels = 4
	// NumSynths is the number of melodic synth channels (0..2).
	NumSynths = 3
	// SpeechChannel is the channel index of the text-to-speech voice.
	SpeechChannel = 3
)

// MaxOctave is the highest octave the synth keyboards accept.
const MaxOctave = 7

// TrackKind distinguishes the two event grammars.
type TrackKind uint8

const (
	Melodic TrackKind = iota
	Speech
)

// Track is an ordered event sequence terminated by exactly one EndMarker.
type Track struct {
	Kind   TrackKind
	Events []NoteEvent
}

// Song holds the four independently-lengthed tracks of one piece.
// Tracks need not have equal event counts or equal total duration.
type Song struct {
	Name   string
	Tracks [NumChannels]Track
}

// Validate enforces the construction-time track invariants. Violations
// are fatal at load time, never runtime errors.
func (t Track) Validate() error {
	if len(t.Events) == 0 {
		return fmt.Errorf("track has no events")
	}
	last := len(t.Events) - 1
	for i, ev := range t.Events {
		if ev.End() {
			if i != last {
				return fmt.Errorf("event %d: end marker before end of track", i)
			}
			continue
		}
		switch t.Kind {
		case Melodic:
			if ev.Word != "" {
				return fmt.Errorf("event %d: lyric word %q on melodic track", i, ev.Word)
			}
			if ev.Pitch > Rest {
				return fmt.Errorf("event %d: invalid pitch %d", i, ev.Pitch)
			}
			if ev.IsRest() && (ev.Octave != 0 || ev.Volume != 0) {
				return fmt.Errorf("event %d: rest carries octave/volume", i)
			}
			if ev.Octave > MaxOctave {
				return fmt.Errorf("event %d: octave %d out of range", i, ev.Octave)
			}
		case Speech:
			if ev.Word == "" && !ev.IsRest() {
				return fmt.Errorf("event %d: pitched note on speech track", i)
			}
			if ev.Octave != 0 || ev.Volume != 0 {
				return fmt.Errorf("event %d: speech event carries octave/volume", i)
			}
		}
	}
	if !t.Events[last].End() {
		return fmt.Errorf("track missing end marker")
	}
	return nil
}

// ParseMelodicEvent parses the compact sheet notation for a synth event:
// "C#3 255 q" for a note, "R q" for a rest.
func ParseMelodicEvent(s string) (NoteEvent, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 2:
		if fields[0] != "R" {
			return NoteEvent{}, fmt.Errorf("event %q: expected rest", s)
		}
		d, err := ParseDuration(fields[1])
		if err != nil {
			return NoteEvent{}, fmt.Errorf("event %q: %w", s, err)
		}
		return NoteEvent{Pitch: Rest, Ticks: d.Budget()}, nil
	case 3:
		name := fields[0]
		if len(name) < 2 {
			return NoteEvent{}, fmt.Errorf("event %q: malformed note", s)
		}
		oct := name[len(name)-1]
		if oct < '0' || oct > '0'+MaxOctave {
			return NoteEvent{}, fmt.Errorf("event %q: octave out of range", s)
		}
		pitch, err := ParsePitch(name[:len(name)-1])
		if err != nil {
			return NoteEvent{}, fmt.Errorf("event %q: %w", s, err)
		}
		if pitch == Rest {
			return NoteEvent{}, fmt.Errorf("event %q: rest with octave", s)
		}
		vol, err := strconv.ParseUint(fields[1], 10, 8)
		if err != nil {
			return NoteEvent{}, fmt.Errorf("event %q: volume: %w", s, err)
		}
		d, err := ParseDuration(fields[2])
		if err != nil {
			return NoteEvent{}, fmt.Errorf("event %q: %w", s, err)
		}
		return NoteEvent{Pitch: pitch, Octave: oct - '0', Volume: uint8(vol), Ticks: d.Budget()}, nil
	}
	return NoteEvent{}, fmt.Errorf("event %q: expected 2 or 3 fields", s)
}

// ParseSpeechEvent parses a lyric entry: a bare word token (underscores
// join multi-word phrases), or "R h" for a timed rest. Word tokens carry
// no duration; their real length is governed by the speech engine.
func ParseSpeechEvent(s string) (NoteEvent, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 1:
		if fields[0] == "R" {
			return NoteEvent{}, fmt.Errorf("event %q: rest without duration", s)
		}
		return NoteEvent{Word: fields[0]}, nil
	case 2:
		if fields[0] != "R" {
			return NoteEvent{}, fmt.Errorf("event %q: word with extra field", s)
		}
		d, err := ParseDuration(fields[1])
		if err != nil {
			return NoteEvent{}, fmt.Errorf("event %q: %w", s, err)
		}
		return NoteEvent{Pitch: Rest, Ticks: d.Budget()}, nil
	}
	return NoteEvent{}, fmt.Errorf("event %q: expected 1 or 2 fields", s)
}

// ParseTrack parses a sheet, appends the end marker, and validates.
func ParseTrack(kind TrackKind, sheet []string) (Track, error) {
	t := Track{Kind: kind, Events: make([]NoteEvent, 0, len(sheet)+1)}
	for i, entry := range sheet {
		var (
			ev  NoteEvent
			err error
		)
		if kind == Speech {
			ev, err = ParseSpeechEvent(entry)
		} else {
			ev, err = ParseMelodicEvent(entry)
		}
		if err != nil {
			return Track{}, fmt.Errorf("entry %d: %w", i, err)
		}
		t.Events = append(t.Events, ev)
	}
	t.Events = append(t.Events, EndMarker())
	if err := t.Validate(); err != nil {
		return Track{}, err
	}
	return t, nil
}
