package song

import "fmt"

// Pitch is one of the twelve pitch classes, or Rest.
type Pitch uint8

const (
	C Pitch = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
	Rest
)

var pitchNames = [...]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B", "R"}

func ParsePitch(s string) (Pitch, error) {
	for i, name := range pitchNames {
		if s == name {
			return Pitch(i), nil
		}
	}
	return Rest, fmt.Errorf("unknown pitch %q", s)
}

func (p Pitch) String() string {
	if int(p) < len(pitchNames) {
		return pitchNames[p]
	}
	return fmt.Sprintf("Pitch(%d)", uint8(p))
}

// Duration is a musical note length. The tick period is a sixteenth note.
type Duration uint8

const (
	Sixteenth Duration = iota
	Eighth
	Quarter
	Half
	Whole
)

var (
	durationTicks = [...]uint32{1, 2, 4, 8, 16}
	durationNames = [...]string{"s", "e", "q", "h", "w"}
)

func ParseDuration(s string) (Duration, error) {
	// Hand-entered song sheets occasionally carry upper-case duration letters.
	switch s {
	case "s", "S":
		return Sixteenth, nil
	case "e", "E":
		return Eighth, nil
	case "q", "Q":
		return Quarter, nil
	case "h", "H":
		return Half, nil
	case "w", "W":
		return Whole, nil
	}
	return Sixteenth, fmt.Errorf("unknown duration %q", s)
}

func (d Duration) String() string {
	if int(d) < len(durationNames) {
		return durationNames[d]
	}
	return fmt.Sprintf("Duration(%d)", uint8(d))
}

// Ticks is the nominal length of the duration in clock ticks.
func (d Duration) Ticks() uint32 {
	return durationTicks[d]
}

// Budget is the number of ticks a channel holds after the dispatch tick.
// The dispatch tick itself counts toward the duration, hence the discount.
func (d Duration) Budget() uint32 {
	return durationTicks[d] - 1
}

// NoteEvent is one immutable entry of a track: a pitched note, a lyric
// word, or a rest, plus the hold budget in ticks. A zero Word means the
// event belongs to a melodic track.
type NoteEvent struct {
	Pitch  Pitch
	Word   string
	Octave uint8
	Volume uint8
	Ticks  uint32

	end bool
}

// EndMarker returns the sentinel event terminating every track. It is
// never played as sound.
func EndMarker() NoteEvent {
	return NoteEvent{Pitch: Rest, end: true}
}

// End reports whether the event is the track's terminal sentinel.
func (e NoteEvent) End() bool { return e.end }

// IsRest reports whether the event is a playable silence.
func (e NoteEvent) IsRest() bool { return !e.end && e.Word == "" && e.Pitch == Rest }
