package song

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownSong is returned for song ids outside the library's range.
var ErrUnknownSong = errors.New("unknown song")

// Library owns all track data for the process lifetime. Players hold
// only cursors into it, never copies.
type Library struct {
	songs []Song
}

type songFile struct {
	Name   string `yaml:"name"`
	Tracks struct {
		Thick    []string `yaml:"thick"`
		Hocus    []string `yaml:"hocus"`
		Dronetic []string `yaml:"dronetic"`
		Lyrics   []string `yaml:"lyrics"`
	} `yaml:"tracks"`
}

// NewLibrary validates every track of every song up front.
func NewLibrary(songs []Song) (*Library, error) {
	if len(songs) == 0 {
		return nil, errors.New("library has no songs")
	}
	for si, s := range songs {
		for ci, tr := range s.Tracks {
			if err := tr.Validate(); err != nil {
				return nil, fmt.Errorf("song %d (%s) channel %d: %w", si, s.Name, ci, err)
			}
			want := Melodic
			if ci == SpeechChannel {
				want = Speech
			}
			if tr.Kind != want {
				return nil, fmt.Errorf("song %d (%s) channel %d: wrong track kind", si, s.Name, ci)
			}
		}
	}
	return &Library{songs: songs}, nil
}

// LoadDir reads every *.yaml song sheet in dir, sorted by filename so
// song ids are stable across restarts.
func LoadDir(dir string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read song dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no song sheets in %s", dir)
	}

	songs := make([]Song, 0, len(paths))
	for _, path := range paths {
		s, err := loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		songs = append(songs, s)
	}
	return NewLibrary(songs)
}

func loadFile(path string) (Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Song{}, err
	}
	var sf songFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return Song{}, fmt.Errorf("parse song sheet: %w", err)
	}
	if sf.Name == "" {
		sf.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	sheets := [NumChannels][]string{sf.Tracks.Thick, sf.Tracks.Hocus, sf.Tracks.Dronetic, sf.Tracks.Lyrics}
	s := Song{Name: sf.Name}
	for ch, sheet := range sheets {
		kind := Melodic
		if ch == SpeechChannel {
			kind = Speech
		}
		t, err := ParseTrack(kind, sheet)
		if err != nil {
			return Song{}, fmt.Errorf("channel %d: %w", ch, err)
		}
		s.Tracks[ch] = t
	}
	return s, nil
}

// Len returns the number of songs.
func (l *Library) Len() int { return len(l.songs) }

// Get bounds-checks the id and returns the song.
func (l *Library) Get(id int) (*Song, error) {
	if id < 0 || id >= len(l.songs) {
		return nil, fmt.Errorf("%w: id %d, library has %d", ErrUnknownSong, id, len(l.songs))
	}
	return &l.songs[id], nil
}

// Track returns a read-only view of one channel's track. The id must
// have been validated with Get at selection time.
func (l *Library) Track(id, channel int) *Track {
	return &l.songs[id].Tracks[channel]
}

// Names lists song names in id order.
func (l *Library) Names() []string {
	names := make([]string, len(l.songs))
	for i, s := range l.songs {
		names[i] = s.Name
	}
	return names
}
