package song

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDurationBudget(t *testing.T) {
	cases := []struct {
		in     string
		budget uint32
	}{
		{"w", 15},
		{"h", 7},
		{"q", 3},
		{"e", 1},
		{"s", 0},
		{"W", 15}, // hand-entered sheets use upper case occasionally
	}
	for _, tc := range cases {
		d, err := ParseDuration(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if d.Budget() != tc.budget {
			t.Errorf("duration %q: budget %d, want %d", tc.in, d.Budget(), tc.budget)
		}
	}
	if _, err := ParseDuration("x"); err == nil {
		t.Error("expected error for unknown duration")
	}
}

func TestParseMelodicEvent(t *testing.T) {
	ev, err := ParseMelodicEvent("C#3 255 q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Pitch != CSharp || ev.Octave != 3 || ev.Volume != 255 || ev.Ticks != 3 {
		t.Errorf("unexpected event: %+v", ev)
	}

	rest, err := ParseMelodicEvent("R w")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rest.IsRest() || rest.Ticks != 15 {
		t.Errorf("unexpected rest: %+v", rest)
	}

	for _, bad := range []string{"", "C3", "X3 255 q", "C8 255 q", "C3 999 q", "C3 255 z", "R3 255 q"} {
		if _, err := ParseMelodicEvent(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseSpeechEvent(t *testing.T) {
	ev, err := ParseSpeechEvent("in_the")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Word != "in_the" || ev.Ticks != 0 {
		t.Errorf("unexpected event: %+v", ev)
	}

	rest, err := ParseSpeechEvent("R h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rest.IsRest() || rest.Ticks != 7 {
		t.Errorf("unexpected rest: %+v", rest)
	}

	for _, bad := range []string{"", "R", "hello h"} {
		if _, err := ParseSpeechEvent(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestTrackValidate(t *testing.T) {
	ok, err := ParseTrack(Melodic, []string{"C3 255 q", "R w"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ok.Events) != 3 || !ok.Events[2].End() {
		t.Fatalf("expected appended end marker, got %+v", ok.Events)
	}

	missing := Track{Kind: Melodic, Events: []NoteEvent{{Pitch: C, Octave: 3, Volume: 100, Ticks: 3}}}
	if err := missing.Validate(); err == nil {
		t.Error("expected error for missing end marker")
	}

	restWithVolume := Track{Kind: Melodic, Events: []NoteEvent{
		{Pitch: Rest, Volume: 100, Ticks: 3},
		EndMarker(),
	}}
	if err := restWithVolume.Validate(); err == nil {
		t.Error("expected error for rest carrying volume")
	}

	midEnd := Track{Kind: Melodic, Events: []NoteEvent{
		EndMarker(),
		{Pitch: C, Octave: 3, Volume: 100, Ticks: 3},
		EndMarker(),
	}}
	if err := midEnd.Validate(); err == nil {
		t.Error("expected error for mid-track end marker")
	}
}

func TestLibraryBounds(t *testing.T) {
	lib := Builtin()
	if lib.Len() == 0 {
		t.Fatal("builtin library is empty")
	}
	if _, err := lib.Get(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := lib.Get(lib.Len()); !errors.Is(err, ErrUnknownSong) {
		t.Fatalf("expected ErrUnknownSong, got %v", err)
	}
	if _, err := lib.Get(-1); !errors.Is(err, ErrUnknownSong) {
		t.Fatalf("expected ErrUnknownSong, got %v", err)
	}
}

func TestBuiltinTracksTerminated(t *testing.T) {
	lib := Builtin()
	for id := 0; id < lib.Len(); id++ {
		s, err := lib.Get(id)
		if err != nil {
			t.Fatal(err)
		}
		for ch := 0; ch < NumChannels; ch++ {
			tr := lib.Track(id, ch)
			if !tr.Events[len(tr.Events)-1].End() {
				t.Errorf("song %q channel %d not terminated", s.Name, ch)
			}
		}
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	sheet := `
name: Test Song
tracks:
  thick: ["C2 255 w", "R w"]
  hocus: ["G3 255 q", "D4 255 q"]
  dronetic: ["D4 150 w"]
  lyrics: ["strangers", "R h", "in_the", "night"]
`
	if err := os.WriteFile(filepath.Join(dir, "00-test.yaml"), []byte(sheet), 0o644); err != nil {
		t.Fatal(err)
	}
	lib, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	s, err := lib.Get(0)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "Test Song" {
		t.Errorf("unexpected name %q", s.Name)
	}
	if got := len(lib.Track(0, SpeechChannel).Events); got != 5 {
		t.Errorf("expected 4 lyric events plus end marker, got %d", got)
	}
}

func TestLoadDirRejectsMalformedSheet(t *testing.T) {
	dir := t.TempDir()
	sheet := `
name: Broken
tracks:
  thick: ["C2 255 w"]
  hocus: ["Z3 255 q"]
  dronetic: ["D4 150 w"]
  lyrics: ["la"]
`
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(sheet), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDir(dir); err == nil {
		t.Fatal("expected error for malformed sheet")
	}
}
