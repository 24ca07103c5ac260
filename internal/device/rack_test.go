package device

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/maltman23/LoungeLooker/internal/config"
	"github.com/maltman23/LoungeLooker/internal/song"
)

// fakePort records the byte stream and RTS transitions.
type fakePort struct {
	buf      bytes.Buffer
	rts      []bool
	writeErr error
	closed   bool
}

func (f *fakePort) Write(b []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.buf.Write(b)
}

func (f *fakePort) SetRTS(level bool) error {
	f.rts = append(f.rts, level)
	return nil
}

func (f *fakePort) Close() error {
	f.closed = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRack(t *testing.T) (*Rack, []*fakePort) {
	t.Helper()
	fakes := []*fakePort{{}, {}, {}}
	ports := make([]Port, len(fakes))
	for i, f := range fakes {
		ports[i] = f
	}
	r, err := NewRack(ports, config.Default().Synths, testLogger())
	if err != nil {
		t.Fatalf("new rack: %v", err)
	}
	r.sleep = func(time.Duration) {}
	return r, fakes
}

func TestNewRackRequiresThreeSynths(t *testing.T) {
	if _, err := NewRack([]Port{&fakePort{}}, config.Default().Synths, testLogger()); err == nil {
		t.Fatal("expected error for wrong port count")
	}
}

func TestPlayNoteFraming(t *testing.T) {
	r, fakes := newTestRack(t)
	ctx := context.Background()

	if err := r.PlayNote(ctx, 0, song.C, 3); err != nil {
		t.Fatalf("play: %v", err)
	}
	if got := fakes[0].buf.String(); got != "k3z`" {
		t.Fatalf("expected k3z` on the wire, got %q", got)
	}

	if err := r.PlayNote(ctx, 1, song.GSharp, 2); err != nil {
		t.Fatalf("play: %v", err)
	}
	if got := fakes[1].buf.String(); got != "k2h`" {
		t.Fatalf("expected k2h` on the wire, got %q", got)
	}

	if err := r.PlayNote(ctx, 0, song.Rest, 3); err == nil {
		t.Fatal("expected error for unplayable pitch")
	}
}

func TestVolumeAndStopFraming(t *testing.T) {
	r, fakes := newTestRack(t)
	ctx := context.Background()

	if err := r.SetVolume(ctx, 2, 255); err != nil {
		t.Fatalf("volume: %v", err)
	}
	if got := fakes[2].buf.String(); got != `v255\` {
		t.Fatalf("expected v255\\ on the wire, got %q", got)
	}
	fakes[2].buf.Reset()

	if err := r.SetVolume(ctx, 2, 0); err != nil {
		t.Fatalf("volume: %v", err)
	}
	if got := fakes[2].buf.String(); got != `v0\` {
		t.Fatalf("expected v0\\ on the wire, got %q", got)
	}

	if err := r.StopNote(ctx, 0); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := fakes[0].buf.String(); got != "k `" {
		t.Fatalf("expected k ` on the wire, got %q", got)
	}
}

func TestResetTogglesRTS(t *testing.T) {
	r, fakes := newTestRack(t)

	if err := r.Reset(context.Background(), 1); err != nil {
		t.Fatalf("reset: %v", err)
	}
	want := []bool{true, false}
	if len(fakes[1].rts) != 2 || fakes[1].rts[0] != want[0] || fakes[1].rts[1] != want[1] {
		t.Fatalf("expected RTS high then low, got %v", fakes[1].rts)
	}
}

func TestInitColdExitsRemoteModeAndWarmsUp(t *testing.T) {
	r, fakes := newTestRack(t)

	if err := r.Init(context.Background(), true); err != nil {
		t.Fatalf("init: %v", err)
	}

	for i, f := range fakes {
		if len(f.rts) != 2 {
			t.Fatalf("synth %d: expected reset toggle, got %v", i, f.rts)
		}
		stream := f.buf.String()
		if stream[0] != '`' {
			t.Fatalf("synth %d: expected remote-mode exit first, got %q", i, stream)
		}
	}
	// Thick warms up with C3 at volume 20, then is silenced.
	if got := fakes[0].buf.String(); got != "`"+`v20\`+"k3z`"+"k `" {
		t.Fatalf("unexpected thick bring-up stream %q", got)
	}
	// Dronetic warms up with G2 at volume 10 and is muted after the stop.
	if got := fakes[2].buf.String(); got != "`"+`v10\`+"k2b`"+"k `"+`v0\` {
		t.Fatalf("unexpected dronetic bring-up stream %q", got)
	}
}

func TestInitWarmSkipsRemoteModeExit(t *testing.T) {
	r, fakes := newTestRack(t)

	if err := r.Init(context.Background(), false); err != nil {
		t.Fatalf("init: %v", err)
	}
	for i, f := range fakes {
		if f.buf.Bytes()[0] == '`' {
			t.Fatalf("synth %d: warm init must not exit remote mode", i)
		}
	}
}

func TestFadeStepsDownToZero(t *testing.T) {
	r, fakes := newTestRack(t)

	if err := r.Fade(context.Background(), 2); err != nil {
		t.Fatalf("fade: %v", err)
	}
	want := `v200\v180\v150\v100\v80\v60\v40\v20\v0\`
	if got := fakes[2].buf.String(); got != want {
		t.Fatalf("unexpected fade stream %q", got)
	}
}

func TestSilenceStopsAllAndMutesDrone(t *testing.T) {
	r, fakes := newTestRack(t)

	if err := r.Silence(context.Background()); err != nil {
		t.Fatalf("silence: %v", err)
	}
	for i := 0; i < 2; i++ {
		if got := fakes[i].buf.String(); got != "k `" {
			t.Fatalf("synth %d: expected stop only, got %q", i, got)
		}
	}
	if got := fakes[2].buf.String(); got != "k `"+`v0\` {
		t.Fatalf("dronetic: expected stop then mute, got %q", got)
	}
}

func TestWriteFailureNamesTheSynth(t *testing.T) {
	r, fakes := newTestRack(t)
	fakes[1].writeErr = errors.New("unplugged")

	err := r.StopNote(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "synth hocus"; !errors.Is(err, fakes[1].writeErr) && !contains(err.Error(), want) {
		t.Fatalf("expected error to name the synth, got %v", err)
	}
}

func TestCloseClosesAllPorts(t *testing.T) {
	r, fakes := newTestRack(t)
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	for i, f := range fakes {
		if !f.closed {
			t.Fatalf("synth %d: port not closed", i)
		}
	}
}

func contains(s, sub string) bool {
	return bytes.Contains([]byte(s), []byte(sub))
}
