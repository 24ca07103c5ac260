// Package display publishes marquee text and live lyrics for the
// installation's screen. The screen process subscribes over the bus;
// when the bus is disabled the text goes to the log instead.
package display

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/maltman23/LoungeLooker/internal/protocol"
)

// Publisher pushes text at the screen and announces session lifecycle.
// Show replaces the marquee; Lyric follows the speech channel word by
// word.
type Publisher interface {
	Show(lines []string, hold time.Duration) error
	Lyric(sessionID, word string) error
	Status(status protocol.SessionStatus) error
}

// BusPublisher publishes over NATS.
type BusPublisher struct {
	conn *nats.Conn
	log  *slog.Logger
}

func NewBusPublisher(conn *nats.Conn, log *slog.Logger) *BusPublisher {
	return &BusPublisher{
		conn: conn,
		log:  log.With(slog.String("component", "display")),
	}
}

func (p *BusPublisher) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *BusPublisher) Show(lines []string, hold time.Duration) error {
	return p.publish(protocol.SubjectDisplayText, protocol.DisplayText{
		Lines:  lines,
		HoldMS: int(hold / time.Millisecond),
	})
}

func (p *BusPublisher) Lyric(sessionID, word string) error {
	return p.publish(protocol.SubjectLyricWord, protocol.WordSpoken{
		SessionID: sessionID,
		Word:      word,
		Timestamp: time.Now().UTC(),
	})
}

func (p *BusPublisher) Status(status protocol.SessionStatus) error {
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now().UTC()
	}
	return p.publish(protocol.SubjectSessionStatus, status)
}

// LogPublisher writes display text to the log. Stand-in for headless
// runs and tests.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With(slog.String("component", "display"))}
}

func (p *LogPublisher) Show(lines []string, _ time.Duration) error {
	p.log.Info("display", slog.String("text", strings.Join(lines, " / ")))
	return nil
}

func (p *LogPublisher) Lyric(_, word string) error {
	p.log.Info("lyric", slog.String("word", word))
	return nil
}

func (p *LogPublisher) Status(status protocol.SessionStatus) error {
	p.log.Info("session status",
		slog.String("session_id", status.SessionID),
		slog.String("song", status.Song),
		slog.String("state", status.State))
	return nil
}
