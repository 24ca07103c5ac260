package song

// Builtin returns the compiled-in song set used when no song directory
// is configured. The sheets are excerpts of the full lounge repertoire;
// complete versions live in the songs/ directory as YAML sheets.
func Builtin() *Library {
	lib, err := NewLibrary([]Song{myWay, moonRiver, strangersInTheNight})
	if err != nil {
		// Built-in sheets are fixed at compile time.
		panic(err)
	}
	return lib
}

func mustTrack(kind TrackKind, sheet []string) Track {
	t, err := ParseTrack(kind, sheet)
	if err != nil {
		panic(err)
	}
	return t
}

var myWay = Song{
	Name: "I Did It My Way",
	Tracks: [NumChannels]Track{
		mustTrack(Melodic, []string{
			"C2 255 w", "R w", "G2 255 h", "E2 255 h", "D#2 255 q",
			"D#2 255 w", "D#2 255 w", "D#2 200 w", "D#2 200 w",
			"D#2 170 w", "D#2 170 w", "D#2 130 w", "D#2 130 w",
			"D#2 100 w", "D#2 100 w", "D#2 130 w", "D#2 170 w",
			"D#2 200 w", "D#2 255 w", "D#2 255 w", "D#2 255 w",
		}),
		mustTrack(Melodic, []string{
			"G2 255 w", "A2 255 h", "B2 255 h", "B1 255 h", "E2 255 q",
			"E2 200 w", "E2 200 w", "E2 170 w", "E2 170 w",
			"E2 130 w", "E2 130 w", "E2 100 w", "E2 100 w",
			"E2 100 w", "E2 130 w", "E2 170 w", "E2 200 w",
			"E2 255 w", "E2 255 w", "E2 255 w", "E2 255 w",
		}),
		mustTrack(Melodic, []string{
			"D2 150 w", "E2 150 h", "R h", "G2 150 w",
			"G2 130 w", "G2 130 w", "G2 100 w", "G2 100 w",
			"G2 100 w", "G2 100 w", "G2 130 w", "G2 130 w",
			"G2 150 w", "G2 150 w", "G2 150 w", "G2 150 w",
		}),
		mustTrack(Speech, []string{
			"I", "did", "it", "my", "way",
			"R w", "R w", "R w", "R w",
			"I", "always", "did", "what", "I", "wanted",
			"R w", "but", "R e", "then", "I", "got", "cancelled",
			"R e", "on", "R e", "social", "media",
			"R w", "R w",
			"I", "did", "it", "my", "way",
		}),
	},
}

var moonRiver = Song{
	Name: "Moon River",
	Tracks: [NumChannels]Track{
		mustTrack(Melodic, []string{
			"E3 255 w", "R w", "B3 255 h", "G#3 255 h", "G3 255 w",
			"G3 200 w", "G3 200 w", "G3 170 w", "G3 170 w",
			"G3 130 w", "G3 130 w", "G3 100 w", "G3 100 w",
			"G3 130 w", "G3 170 w", "G3 200 w", "G3 255 w", "G3 255 w",
		}),
		mustTrack(Melodic, []string{
			"B3 255 w", "C#4 255 h", "D#4 255 h", "D#3 255 h", "G#3 255 w",
			"G#3 200 w", "G#3 200 w", "G#3 170 w", "G#3 170 w",
			"G#3 130 w", "G#3 130 w", "G#3 100 w", "G#3 100 w",
			"G#3 130 w", "G#3 170 w", "G#3 200 w", "G#3 255 w", "G#3 255 w",
		}),
		mustTrack(Melodic, []string{
			"F#3 150 w", "G#3 150 h", "R h", "B3 150 W",
			"B3 150 W", "B3 130 W", "B3 100 W", "B3 80 W",
			"B3 50 W", "B3 50 W", "B3 80 W", "B3 100 W",
			"B3 130 W", "B3 150 W", "B3 150 W",
		}),
		mustTrack(Speech, []string{
			"Moon", "R h", "River",
			"R w", "R w", "R w", "R w",
			"R w", "have", "R s", "you", "R s",
			"thought", "R s", "about", "R s",
			"the", "R s", "camera", "R s",
			"R w", "it", "R s", "seems", "R s", "like", "R s",
			"something", "R s", "for", "R s", "surveillance", "R s",
			"R w", "doesnt", "R s", "it", "R s",
			"R w", "R w",
			"wider", "R q", "than", "R q", "a_mile",
		}),
	},
}

var strangersInTheNight = Song{
	Name: "Strangers in the Night",
	Tracks: [NumChannels]Track{
		mustTrack(Melodic, []string{
			"F2 150 h", "F2 150 q", "C3 150 q", "R s", "C3 150 h", "C2 150 h",
			"F2 150 h", "F2 150 q", "C3 150 q", "R s", "C3 150 h", "C2 150 h",
			"G2 150 h", "G2 150 q", "C3 150 q", "R s", "C3 150 h", "C2 150 h",
			"A2 150 w", "G#2 150 w",
			"G2 150 h", "G2 150 q", "D2 150 q", "A3 150 h", "A3 150 q", "D2 150 q",
			"G3 150 h", "G3 150 q", "D2 150 q", "F#3 150 h", "F3 150 h",
			"F2 150 h", "C2 150 h", "F2 150 w", "F2 255 w", "F2 255 w",
		}),
		mustTrack(Melodic, []string{
			"F4 255 q", "G4 255 q", "R s", "G4 255 q", "F4 255 q", "G4 255 w",
			"G4 255 q", "F4 255 q", "G4 255 q", "A4 255 q", "G4 255 h", "F4 255 h",
			"E4 255 q", "F4 255 q", "R s", "F4 255 q", "E4 255 q", "F4 255 w",
			"F4 255 q", "E4 255 q", "F4 255 q", "G4 255 q", "F4 255 h", "E4 255 h",
			"A#4 255 w", "A#4 255 w", "A#4 255 w", "A#4 255 h", "R h",
			"F4 255 w", "F4 255 w", "F4 255 w", "F4 255 w",
		}),
		mustTrack(Melodic, []string{
			"A2 255 w", "A2 255 w", "A2 255 w", "A2 255 w",
			"A#2 255 w", "G2 255 w", "A2 255 w", "A2 255 w",
			"F2 255 w", "A2 255 w", "A2 255 w", "F2 255 w",
			"R h", "A#2 255 w", "A#2 255 h",
			"A#2 255 w", "A#2 255 w", "F2 255 w", "F2 255 w",
		}),
		mustTrack(Speech, []string{
			"R w", "R w", "R w", "R w",
			"strangers", "in_the", "night", "R w", "R w",
			"exchanging", "glances", "R w",
			"wondering", "in_the", "night", "R w", "R w",
			"what", "were_the", "chances", "R w",
			"weed_be", "sharing", "love", "R w",
			"before_the", "night_was", "R w", "R w",
			"through", "R w",
		}),
	},
}
