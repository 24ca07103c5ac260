package device

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/maltman23/LoungeLooker/internal/config"
	"github.com/maltman23/LoungeLooker/internal/song"
)

// Port is one synth's byte transport. SetRTS drives the modem control
// line wired to the board's hardware reset.
type Port interface {
	io.Writer
	SetRTS(level bool) error
	Close() error
}

// The ArduTouch remote protocol is menu-driven ASCII: a command enters
// a menu, the payload selects, and a closing marker leaves the menu.
// The exact framing is load-bearing for hardware compatibility.
const (
	keyboardMenu   = 'k'
	volumeMenu     = 'v'
	exitKeyboard   = '`'
	commitVolume   = '\\'
	stopKey        = ' '
	rtsSettleTime  = 100 * time.Millisecond
	resetSettle    = 3 * time.Second
	warmupHold     = 3 * time.Second
	warmupTail     = 1 * time.Second
	fadeStepSettle = time.Millisecond
)

// pitchKeys maps the twelve pitch classes C..B onto the synth's
// keyboard-menu key characters.
var pitchKeys = [12]byte{'z', 's', 'x', 'd', 'c', 'v', 'g', 'b', 'h', 'n', 'j', 'm'}

var fadeLevels = []uint8{200, 180, 150, 100, 80, 60, 40, 20, 0}

// Rack translates channel commands into the per-synth byte protocol.
// It owns no sequencing logic.
type Rack struct {
	ports []Port
	cfgs  []config.SynthConfig
	log   *slog.Logger
	sleep func(time.Duration)
}

func NewRack(ports []Port, cfgs []config.SynthConfig, log *slog.Logger) (*Rack, error) {
	if len(ports) != song.NumSynths || len(cfgs) != song.NumSynths {
		return nil, fmt.Errorf("rack needs %d synths, got %d ports / %d configs",
			song.NumSynths, len(ports), len(cfgs))
	}
	return &Rack{
		ports: ports,
		cfgs:  cfgs,
		log:   log.With(slog.String("component", "rack")),
		sleep: time.Sleep,
	}, nil
}

func (r *Rack) send(channel int, payload []byte) error {
	if _, err := r.ports[channel].Write(payload); err != nil {
		return fmt.Errorf("synth %s: %w", r.cfgs[channel].Name, err)
	}
	return nil
}

// SetVolume sets the channel's output level, 0..255.
func (r *Rack) SetVolume(_ context.Context, channel int, level uint8) error {
	payload := make([]byte, 0, 5)
	payload = append(payload, volumeMenu)
	payload = strconv.AppendUint(payload, uint64(level), 10)
	payload = append(payload, commitVolume)
	return r.send(channel, payload)
}

// PlayNote starts a note sounding; it keeps sounding until the next
// PlayNote or StopNote on the same channel.
func (r *Rack) PlayNote(_ context.Context, channel int, pitch song.Pitch, octave uint8) error {
	if pitch >= song.Rest {
		return fmt.Errorf("synth %s: unplayable pitch %d", r.cfgs[channel].Name, pitch)
	}
	return r.send(channel, []byte{keyboardMenu, '0' + octave, pitchKeys[pitch], exitKeyboard})
}

// StopNote silences the channel.
func (r *Rack) StopNote(_ context.Context, channel int) error {
	return r.send(channel, []byte{keyboardMenu, stopKey, exitKeyboard})
}

// Fade ramps the channel's volume down to zero in steps. Used for the
// drone synth, which otherwise cuts off audibly.
func (r *Rack) Fade(ctx context.Context, channel int) error {
	for _, level := range fadeLevels {
		if err := r.SetVolume(ctx, channel, level); err != nil {
			return err
		}
		r.sleep(fadeStepSettle)
	}
	return nil
}

// Reset toggles the board's hardware reset line and waits for it to
// settle. Session-lifecycle only, never on the tick path.
func (r *Rack) Reset(_ context.Context, channel int) error {
	port := r.ports[channel]
	if err := port.SetRTS(true); err != nil {
		return fmt.Errorf("synth %s: raise reset: %w", r.cfgs[channel].Name, err)
	}
	r.sleep(rtsSettleTime)
	if err := port.SetRTS(false); err != nil {
		return fmt.Errorf("synth %s: release reset: %w", r.cfgs[channel].Name, err)
	}
	r.sleep(rtsSettleTime)
	return nil
}

// Init brings every synth to a known state. Cold init (first bring-up,
// or recovery after a transport failure) additionally exits the boards'
// remote mode. Both variants reset the boards and play one throwaway
// low-volume note per synth: the first note after a reset is an
// anomaly on some boards, so it must not be a song note.
func (r *Rack) Init(ctx context.Context, cold bool) error {
	r.log.Info("initializing synths", slog.Bool("cold", cold))
	for ch := range r.ports {
		if err := r.Reset(ctx, ch); err != nil {
			return err
		}
	}
	r.sleep(resetSettle)
	if err := ctx.Err(); err != nil {
		return err
	}

	if cold {
		for ch := range r.ports {
			if err := r.send(ch, []byte{exitKeyboard}); err != nil {
				return err
			}
		}
	}

	for ch, cfg := range r.cfgs {
		pitch, octave, err := parseNoteName(cfg.WarmupNote)
		if err != nil {
			return fmt.Errorf("synth %s: warmup note: %w", cfg.Name, err)
		}
		if err := r.SetVolume(ctx, ch, cfg.WarmupVolume); err != nil {
			return err
		}
		if err := r.PlayNote(ctx, ch, pitch, octave); err != nil {
			return err
		}
	}
	r.sleep(warmupHold)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.Silence(ctx); err != nil {
		return err
	}
	r.sleep(warmupTail)
	r.log.Info("synths ready")
	return nil
}

// Silence stops every channel and zeroes the volume of synths flagged
// mute-on-rest. Guaranteed cleanup for teardown and mid-song aborts.
func (r *Rack) Silence(ctx context.Context) error {
	for ch := range r.ports {
		if err := r.StopNote(ctx, ch); err != nil {
			return err
		}
	}
	for ch, cfg := range r.cfgs {
		if cfg.MuteOnRest {
			if err := r.SetVolume(ctx, ch, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases the underlying ports.
func (r *Rack) Close() error {
	var firstErr error
	for ch, port := range r.ports {
		if err := port.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("synth %s: %w", r.cfgs[ch].Name, err)
		}
	}
	return firstErr
}

// parseNoteName parses "C3" / "G#2" style note names.
func parseNoteName(name string) (song.Pitch, uint8, error) {
	if len(name) < 2 {
		return 0, 0, fmt.Errorf("malformed note %q", name)
	}
	oct := name[len(name)-1]
	if oct < '0' || oct > '0'+song.MaxOctave {
		return 0, 0, fmt.Errorf("octave out of range in %q", name)
	}
	pitch, err := song.ParsePitch(name[:len(name)-1])
	if err != nil {
		return 0, 0, err
	}
	if pitch == song.Rest {
		return 0, 0, fmt.Errorf("note %q is not playable", name)
	}
	return pitch, oct - '0', nil
}
