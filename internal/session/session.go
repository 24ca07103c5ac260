// Package session orchestrates one complete play: synth bring-up,
// marquee text, arming the scheduler, consuming the tick train, and
// tearing the hardware back down.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/maltman23/LoungeLooker/internal/choose"
	"github.com/maltman23/LoungeLooker/internal/config"
	"github.com/maltman23/LoungeLooker/internal/device"
	"github.com/maltman23/LoungeLooker/internal/display"
	"github.com/maltman23/LoungeLooker/internal/eventstore"
	"github.com/maltman23/LoungeLooker/internal/protocol"
	"github.com/maltman23/LoungeLooker/internal/sequencer"
	"github.com/maltman23/LoungeLooker/internal/song"
)

// Rack is the device adapter surface the session needs: the melodic
// command set plus lifecycle control.
type Rack interface {
	sequencer.SynthRack
	Init(ctx context.Context, cold bool) error
	Silence(ctx context.Context) error
}

// Marquee texts shown between phases.
var (
	resettingText = []string{
		"Resetting everything for the",
		"next consumer with unique desires...",
		"Please enjoy waiting patiently...",
	}
	greetingText = []string{
		"We Are About to Calculate Your Desires",
		"and Choose the PERFECT LOUNGE SONG to Fulfill Them!",
	}
	thankYouText = []string{
		"Thank you for letting us care about your desires!",
	}
)

const (
	resettingHold = 4 * time.Second
	greetingHold  = 5 * time.Second
	thankYouHold  = 5 * time.Second
	// Short gap between the last note and the thank-you screen.
	thankYouDelay = 2 * time.Second
)

// Runner plays one song per Run call. It owns no hardware; everything
// is injected so tests can drive it with fakes and a fed tick channel.
type Runner struct {
	log     *slog.Logger
	lib     *song.Library
	sched   *sequencer.Scheduler
	rack    Rack
	speaker device.Speaker
	disp    display.Publisher
	store   *eventstore.Store
	synths  []config.SynthConfig

	tracer   trace.Tracer
	failures metric.Int64Counter

	sleep func(time.Duration)
	newID func() string
}

func NewRunner(
	log *slog.Logger,
	lib *song.Library,
	sched *sequencer.Scheduler,
	rack Rack,
	speaker device.Speaker,
	disp display.Publisher,
	store *eventstore.Store,
	synths []config.SynthConfig,
) *Runner {
	r := &Runner{
		log:     log.With(slog.String("component", "session")),
		lib:     lib,
		sched:   sched,
		rack:    rack,
		speaker: speaker,
		disp:    disp,
		store:   store,
		synths:  synths,
		tracer:  otel.Tracer("github.com/maltman23/LoungeLooker/session"),
		sleep:   time.Sleep,
		newID:   func() string { return fmt.Sprintf("session-%d", time.Now().UnixNano()) },
	}
	var err error
	if r.failures, err = otel.Meter("github.com/maltman23/LoungeLooker/session").
		Int64Counter("looker_transport_failures_total"); err != nil {
		r.log.Warn("failed to create failure counter", slog.String("error", err.Error()))
	}
	return r
}

// Run performs one full session for the given selection. The tick
// channel carries the hardware clock; Run consumes it until the song
// completes or something fails. A transport failure is returned to the
// caller, which should re-run with cold bring-up.
func (r *Runner) Run(ctx context.Context, ticks <-chan struct{}, sel choose.Selection, cold bool) error {
	s, err := r.lib.Get(sel.Song)
	if err != nil {
		return err
	}
	sessionID := r.newID()
	ctx, span := r.tracer.Start(ctx, "session.run",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("song.name", s.Name),
			attribute.Bool("bringup.cold", cold)))
	defer span.End()
	log := r.log.With(
		slog.String("session_id", sessionID),
		slog.String("song", s.Name))

	if err := r.disp.Show(resettingText, resettingHold); err != nil {
		log.Warn("display unavailable", slog.String("error", err.Error()))
	}
	if err := r.rack.Init(ctx, cold); err != nil {
		span.SetStatus(codes.Error, err.Error())
		r.recordFailure(ctx, sessionID, err)
		return fmt.Errorf("bring-up: %w", err)
	}

	if err := r.store.AppendSession(ctx, sessionID, s.Name); err != nil {
		log.Warn("failed to record session", slog.String("error", err.Error()))
	}
	r.record(ctx, sessionID, eventstore.TypeSessionStarted, nil)
	r.record(ctx, sessionID, eventstore.TypeSongSelected, map[string]any{
		"name": sel.Name,
		"song": sel.Song,
	})
	if err := r.disp.Status(protocol.SessionStatus{
		SessionID: sessionID, Song: s.Name, State: "started",
	}); err != nil {
		log.Warn("failed to publish status", slog.String("error", err.Error()))
	}
	if err := r.disp.Show(greetingText, greetingHold); err != nil {
		log.Warn("display unavailable", slog.String("error", err.Error()))
	}

	r.sched.Arm(r.buildPlayers(ctx, sessionID, s))
	log.Info("session started", slog.String("for", sel.Name))

	err = r.tickLoop(ctx, ticks)
	r.sched.Disarm()

	// Leave nothing sounding no matter how the song ended.
	if silenceErr := r.rack.Silence(context.WithoutCancel(ctx)); silenceErr != nil {
		if err == nil {
			err = silenceErr
		} else {
			log.Warn("silence after failure also failed", slog.String("error", silenceErr.Error()))
		}
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		r.recordFailure(ctx, sessionID, err)
		if statusErr := r.disp.Status(protocol.SessionStatus{
			SessionID: sessionID, Song: s.Name, State: "failed", Detail: err.Error(),
		}); statusErr != nil {
			log.Warn("failed to publish status", slog.String("error", statusErr.Error()))
		}
		return err
	}

	r.record(ctx, sessionID, eventstore.TypeSessionCompleted, map[string]any{
		"ticks": r.sched.Ticks(),
	})
	if err := r.disp.Status(protocol.SessionStatus{
		SessionID: sessionID, Song: s.Name, State: "completed",
	}); err != nil {
		log.Warn("failed to publish status", slog.String("error", err.Error()))
	}

	r.sleep(thankYouDelay)
	if err := r.disp.Show(thankYouText, thankYouHold); err != nil {
		log.Warn("display unavailable", slog.String("error", err.Error()))
	}
	log.Info("session completed", slog.Uint64("ticks", r.sched.Ticks()))
	return nil
}

func (r *Runner) tickLoop(ctx context.Context, ticks <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ticks:
			if !ok {
				return fmt.Errorf("tick source closed")
			}
			if err := r.sched.OnTick(ctx); err != nil {
				return err
			}
			if r.sched.SongComplete() {
				return nil
			}
		}
	}
}

func (r *Runner) buildPlayers(ctx context.Context, sessionID string, s *song.Song) [song.NumChannels]sequencer.Player {
	var players [song.NumChannels]sequencer.Player
	for ch := 0; ch < song.NumSynths; ch++ {
		opts := sequencer.MelodicOptions{}
		if ch < len(r.synths) {
			opts.MuteOnRest = r.synths[ch].MuteOnRest
			opts.FadeOnFinish = r.synths[ch].FadeOnFinish
		}
		players[ch] = sequencer.NewMelodicPlayer(ch, &s.Tracks[ch], r.rack, opts)
	}
	players[song.SpeechChannel] = sequencer.NewSpeechPlayer(&s.Tracks[song.SpeechChannel], r.speaker, func(word string) {
		if err := r.disp.Lyric(sessionID, word); err != nil {
			r.log.Warn("failed to publish lyric", slog.String("error", err.Error()))
		}
		r.record(ctx, sessionID, eventstore.TypeWordSpoken, map[string]any{"word": word})
	})
	return players
}

func (r *Runner) record(ctx context.Context, sessionID, eventType string, payload map[string]any) {
	var data []byte
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			r.log.Warn("failed to encode event payload", slog.String("error", err.Error()))
			return
		}
	}
	if err := r.store.AppendEvent(ctx, eventstore.Event{
		SessionID: sessionID,
		Type:      eventType,
		Payload:   data,
	}); err != nil {
		r.log.Warn("failed to record event",
			slog.String("type", eventType),
			slog.String("error", err.Error()))
	}
}

func (r *Runner) recordFailure(ctx context.Context, sessionID string, cause error) {
	if r.failures != nil {
		r.failures.Add(ctx, 1)
	}
	r.record(ctx, sessionID, eventstore.TypeTransportFailure, map[string]any{
		"error": cause.Error(),
	})
}
