package sequencer

import (
	"context"

	"github.com/maltman23/LoungeLooker/internal/song"
)

// SynthRack is the melodic command surface of the device adapter. All
// commands are fire-and-forget from the scheduler's point of view.
type SynthRack interface {
	SetVolume(ctx context.Context, channel int, level uint8) error
	PlayNote(ctx context.Context, channel int, pitch song.Pitch, octave uint8) error
	StopNote(ctx context.Context, channel int) error
	Fade(ctx context.Context, channel int) error
}

// Voice speaks one word token and returns only when the engine has
// finished. This is the only blocking call in the whole tick path.
type Voice interface {
	Speak(ctx context.Context, word string) error
}

// ChannelState is the per-channel, per-session playback cursor. It is
// reset when a session arms the scheduler and mutated only by that
// channel's player on the tick path.
type ChannelState struct {
	Cursor         int
	TicksRemaining uint32
	LastEvent      bool
	Finished       bool
}

// Result reports what a player emitted during one tick.
type Result struct {
	// Dispatched is true when the player advanced and emitted device
	// commands (including the final stop).
	Dispatched bool
	// Spoke is true when a word token went to the speech engine. It
	// triggers the cross-channel compensation rule.
	Spoke bool
}

// Player advances one channel by one tick.
type Player interface {
	Tick(ctx context.Context, st *ChannelState) (Result, error)
}

// MelodicOptions carries the per-synth quirks of the hardware.
type MelodicOptions struct {
	// MuteOnRest additionally drops the volume to zero on rests. The
	// drone synth keeps sounding through a plain note-off without it.
	MuteOnRest bool
	// FadeOnFinish ramps the volume down before the final stop.
	FadeOnFinish bool
}

// MelodicPlayer is the state machine for channels 0..2.
//
// A note's duration budget counts the dispatch tick itself: the player
// holds while TicksRemaining is positive and dispatches on the tick
// where it is already zero on entry. The look-ahead at the bottom marks
// LastEvent one event early, because the terminal sentinel carries no
// playable pitch; the following dispatch turn becomes an explicit stop
// instead of an attempt to play the sentinel.
type MelodicPlayer struct {
	channel int
	track   *song.Track
	rack    SynthRack
	opts    MelodicOptions
}

func NewMelodicPlayer(channel int, track *song.Track, rack SynthRack, opts MelodicOptions) *MelodicPlayer {
	return &MelodicPlayer{channel: channel, track: track, rack: rack, opts: opts}
}

func (p *MelodicPlayer) Tick(ctx context.Context, st *ChannelState) (Result, error) {
	if st.Finished {
		return Result{}, nil
	}
	if st.TicksRemaining > 0 {
		st.TicksRemaining--
		return Result{}, nil
	}
	if st.LastEvent {
		// The last note has played out its full budget.
		if p.opts.FadeOnFinish {
			if err := p.rack.Fade(ctx, p.channel); err != nil {
				return Result{}, err
			}
		}
		if err := p.rack.StopNote(ctx, p.channel); err != nil {
			return Result{}, err
		}
		st.Finished = true
		return Result{Dispatched: true}, nil
	}

	ev := p.track.Events[st.Cursor]
	if ev.End() {
		// Empty track: nothing was ever sounding.
		st.Finished = true
		return Result{}, nil
	}
	st.TicksRemaining = ev.Ticks
	if ev.IsRest() {
		if err := p.rack.StopNote(ctx, p.channel); err != nil {
			return Result{}, err
		}
		if p.opts.MuteOnRest {
			if err := p.rack.SetVolume(ctx, p.channel, 0); err != nil {
				return Result{}, err
			}
		}
	} else {
		if err := p.rack.SetVolume(ctx, p.channel, ev.Volume); err != nil {
			return Result{}, err
		}
		if err := p.rack.PlayNote(ctx, p.channel, ev.Pitch, ev.Octave); err != nil {
			return Result{}, err
		}
	}
	st.Cursor++
	if p.track.Events[st.Cursor].End() {
		st.LastEvent = true
	}
	return Result{Dispatched: true}, nil
}

// SpeechPlayer is the state machine for channel 3. Word tokens are
// dispatched with an implicit one-tick hold; their real elapsed time is
// however long the engine blocks. Only rests consume their tick budget.
// The channel finishes at dispatch of its final token, with no trailing
// stop: there is nothing to silence.
type SpeechPlayer struct {
	track  *song.Track
	voice  Voice
	onWord func(word string)
}

// NewSpeechPlayer builds the speech channel player. onWord, if non-nil,
// observes each word just before it is spoken (display feed, logging).
func NewSpeechPlayer(track *song.Track, voice Voice, onWord func(word string)) *SpeechPlayer {
	return &SpeechPlayer{track: track, voice: voice, onWord: onWord}
}

func (p *SpeechPlayer) Tick(ctx context.Context, st *ChannelState) (Result, error) {
	if st.Finished {
		return Result{}, nil
	}
	if st.TicksRemaining > 0 {
		st.TicksRemaining--
		return Result{}, nil
	}

	ev := p.track.Events[st.Cursor]
	if ev.End() {
		st.Finished = true
		return Result{}, nil
	}
	res := Result{Dispatched: true}
	if ev.Word != "" {
		if p.onWord != nil {
			p.onWord(ev.Word)
		}
		if err := p.voice.Speak(ctx, ev.Word); err != nil {
			return Result{}, err
		}
		res.Spoke = true
	} else {
		st.TicksRemaining = ev.Ticks
	}
	st.Cursor++
	if p.track.Events[st.Cursor].End() {
		st.LastEvent = true
		st.Finished = true
	}
	return res, nil
}
