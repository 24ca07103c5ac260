// Package choose maps face recognizer matches to songs. Known faces
// get their configured song; everyone else gets a random pick, so the
// installation always has something to play.
package choose

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/maltman23/LoungeLooker/internal/config"
	"github.com/maltman23/LoungeLooker/internal/protocol"
)

// RandomSong marks a table entry that rolls the dice instead of naming
// a fixed song.
const RandomSong = -1

// Selection is one resolved play request.
type Selection struct {
	Name string
	Song int
}

type entry struct {
	name string
	song int
}

// Chooser resolves face names to song ids. Lookup is first match wins,
// case-insensitive; no match falls through to a random song.
type Chooser struct {
	entries []entry
	numSong int
	intn    func(int) int
	log     *slog.Logger

	requests chan Selection
}

func New(table []config.ChooseEntry, numSongs int, log *slog.Logger) (*Chooser, error) {
	if numSongs <= 0 {
		return nil, fmt.Errorf("chooser needs at least one song")
	}
	c := &Chooser{
		numSong:  numSongs,
		intn:     rand.Intn,
		log:      log.With(slog.String("component", "choose")),
		requests: make(chan Selection, 1),
	}
	for i, e := range table {
		song := RandomSong
		if !strings.EqualFold(e.Song, "random") {
			n, err := strconv.Atoi(e.Song)
			if err != nil {
				return nil, fmt.Errorf("choose.table[%d].song %q: want a song id or \"random\"", i, e.Song)
			}
			if n < 0 || n >= numSongs {
				return nil, fmt.Errorf("choose.table[%d].song %d out of range 0..%d", i, n, numSongs-1)
			}
			song = n
		}
		c.entries = append(c.entries, entry{name: strings.ToLower(e.Name), song: song})
	}
	return c, nil
}

// Pick resolves a face name to a song id.
func (c *Chooser) Pick(name string) int {
	lower := strings.ToLower(name)
	for _, e := range c.entries {
		if e.name == lower {
			if e.song == RandomSong {
				return c.intn(c.numSong)
			}
			return e.song
		}
	}
	return c.intn(c.numSong)
}

// Requests delivers resolved selections from the bus. The channel has
// depth one; matches arriving while a song is already playing are
// dropped, the consumer is busy by definition.
func (c *Chooser) Requests() <-chan Selection { return c.requests }

// Offer resolves a match and queues it, dropping when the consumer is
// busy. Exposed for sources other than the bus (tests, a local button).
func (c *Chooser) Offer(name string) {
	sel := Selection{Name: name, Song: c.Pick(name)}
	select {
	case c.requests <- sel:
		c.log.Info("song selected",
			slog.String("name", sel.Name),
			slog.Int("song", sel.Song))
	default:
		c.log.Debug("match dropped, song in progress", slog.String("name", name))
	}
}

// Bind subscribes to face match messages on the bus.
func (c *Chooser) Bind(conn *nats.Conn, subject string) (*nats.Subscription, error) {
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		var m protocol.FaceMatch
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			c.log.Warn("malformed face match", slog.String("error", err.Error()))
			return
		}
		c.Offer(m.Name)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}
