package sequencer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/maltman23/LoungeLooker/internal/song"
)

// Scheduler fans one clock edge out to all four channel players in
// fixed priority order (0, 1, 2, speech) and tracks song completion.
// It owns the per-channel cursors but no song content.
//
// OnTick is guarded by a mutex so a late edge can never interleave with
// a tick still in flight; the clock package's depth-1 gate drops
// surplus edges before they reach here.
type Scheduler struct {
	mu      sync.Mutex
	log     *slog.Logger
	players [song.NumChannels]Player
	states  [song.NumChannels]ChannelState
	armed   bool
	ticks   uint64

	tickCount     metric.Int64Counter
	dispatchCount metric.Int64Counter
	wordCount     metric.Int64Counter
}

func NewScheduler(log *slog.Logger) *Scheduler {
	meter := otel.Meter("github.com/maltman23/LoungeLooker/sequencer")
	s := &Scheduler{log: log.With(slog.String("component", "scheduler"))}
	var err error
	if s.tickCount, err = meter.Int64Counter("looker_ticks_total"); err != nil {
		s.log.Warn("failed to create tick counter", slog.String("error", err.Error()))
	}
	if s.dispatchCount, err = meter.Int64Counter("looker_dispatches_total"); err != nil {
		s.log.Warn("failed to create dispatch counter", slog.String("error", err.Error()))
	}
	if s.wordCount, err = meter.Int64Counter("looker_words_spoken_total"); err != nil {
		s.log.Warn("failed to create word counter", slog.String("error", err.Error()))
	}
	return s
}

// Arm installs the players for a song and resets all channel cursors.
// The session must not call Arm while a previous song is still ticking.
func (s *Scheduler) Arm(players [song.NumChannels]Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = players
	for ch := range s.states {
		s.states[ch] = ChannelState{}
	}
	s.ticks = 0
	s.armed = true
}

// Disarm makes subsequent ticks no-ops. Channel state is left in place
// for post-mortem inspection until the next Arm.
func (s *Scheduler) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = false
}

// OnTick advances every channel by one tick. It is a no-op while
// disarmed. The first failing channel aborts the tick; the caller is
// expected to disarm and silence the hardware.
func (s *Scheduler) OnTick(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return nil
	}
	s.ticks++
	if s.tickCount != nil {
		s.tickCount.Add(ctx, 1)
	}
	for ch := 0; ch < song.NumChannels; ch++ {
		res, err := s.players[ch].Tick(ctx, &s.states[ch])
		if err != nil {
			return fmt.Errorf("channel %d: %w", ch, err)
		}
		if res.Dispatched && s.dispatchCount != nil {
			s.dispatchCount.Add(ctx, 1, metric.WithAttributes(attribute.Int("channel", ch)))
		}
		if res.Spoke {
			// Compensation rule: the speech call just blocked the whole
			// tick path for on the order of a second, so cut the sibling
			// channels' held notes short instead of letting them overshoot
			// by the full blocking duration. Coarse, by contract.
			for m := 0; m < song.NumSynths; m++ {
				s.states[m].TicksRemaining = 0
			}
			if s.wordCount != nil {
				s.wordCount.Add(ctx, 1)
			}
		}
	}
	return nil
}

// SongComplete is true iff all four channels are finished. Completion
// is the conjunction, not disjunction: tracks end independently.
func (s *Scheduler) SongComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.states {
		if !s.states[ch].Finished {
			return false
		}
	}
	return true
}

// Ticks returns the monotonic tick count of the current song. It is
// diagnostic only; no timing decision reads it.
func (s *Scheduler) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// State returns a copy of one channel's state, for diagnostics.
func (s *Scheduler) State(channel int) ChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[channel]
}
