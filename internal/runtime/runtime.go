package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maltman23/LoungeLooker/internal/bus"
	"github.com/maltman23/LoungeLooker/internal/choose"
	"github.com/maltman23/LoungeLooker/internal/clock"
	"github.com/maltman23/LoungeLooker/internal/config"
	"github.com/maltman23/LoungeLooker/internal/device"
	"github.com/maltman23/LoungeLooker/internal/display"
	"github.com/maltman23/LoungeLooker/internal/eventstore"
	"github.com/maltman23/LoungeLooker/internal/natsserver"
	"github.com/maltman23/LoungeLooker/internal/sequencer"
	"github.com/maltman23/LoungeLooker/internal/serial"
	"github.com/maltman23/LoungeLooker/internal/session"
	"github.com/maltman23/LoungeLooker/internal/song"
)

// Boards need a moment after the port opens; opening toggles DTR and
// the boards treat that as a reset.
const portOpenSettle = 2 * time.Second

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start brings up every subsystem and runs the session loop until the
// context is canceled.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	var busClient *bus.Client
	if r.cfg.Bus.Enabled {
		embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("start embedded bus: %w", err)
		}
		defer embedded.Shutdown()

		busClient, err = bus.Connect(ctx, r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("connect to bus: %w", err)
		}
		defer busClient.Close()
	}

	store, err := eventstore.Open(ctx, r.cfg.EventStore, r.logger)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer store.Close()

	lib, err := r.loadLibrary()
	if err != nil {
		return fmt.Errorf("load songs: %w", err)
	}
	r.logger.Info("song library loaded", slog.Int("songs", lib.Len()))

	rack, err := r.openRack()
	if err != nil {
		return fmt.Errorf("open synth rack: %w", err)
	}
	defer rack.Close()

	speaker, err := r.buildSpeaker()
	if err != nil {
		return fmt.Errorf("build speaker: %w", err)
	}

	ticks, err := r.openClock()
	if err != nil {
		return fmt.Errorf("open clock: %w", err)
	}
	defer ticks.Close()

	var disp display.Publisher
	if busClient != nil {
		disp = display.NewBusPublisher(busClient.Conn(), r.logger)
	} else {
		disp = display.NewLogPublisher(r.logger)
	}

	chooser, err := choose.New(r.cfg.Choose.Table, lib.Len(), r.logger)
	if err != nil {
		return fmt.Errorf("build chooser: %w", err)
	}
	if busClient != nil {
		sub, err := chooser.Bind(busClient.Conn(), r.cfg.Choose.Subject)
		if err != nil {
			return fmt.Errorf("bind chooser: %w", err)
		}
		defer sub.Unsubscribe()
	}

	runner := session.NewRunner(r.logger, lib, sequencer.NewScheduler(r.logger),
		rack, speaker, disp, store, r.cfg.Synths)

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr))

	r.sessionLoop(ctx, runner, chooser, ticks)

	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := rack.Silence(shutdownCtx); err != nil {
		r.logger.Error("failed to silence synths", slog.String("error", err.Error()))
	}
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

// sessionLoop plays one song per face match. The first bring-up is
// cold; afterwards warm, except after a transport failure, which gets
// the full cold treatment on the next session.
func (r *Runtime) sessionLoop(ctx context.Context, runner *session.Runner, chooser *choose.Chooser, ticks clock.Source) {
	cold := true
	for {
		select {
		case <-ctx.Done():
			return
		case sel := <-chooser.Requests():
			if err := runner.Run(ctx, ticks.Ticks(), sel, cold); err != nil {
				if ctx.Err() != nil {
					return
				}
				r.logger.Error("session failed",
					slog.String("name", sel.Name),
					slog.String("error", err.Error()))
				cold = true
				continue
			}
			cold = false
		}
	}
}

func (r *Runtime) loadLibrary() (*song.Library, error) {
	if dir := r.cfg.Songs.Directory; dir != "" {
		return song.LoadDir(dir)
	}
	return song.Builtin(), nil
}

func (r *Runtime) openRack() (*device.Rack, error) {
	ports := make([]device.Port, 0, len(r.cfg.Synths))
	for _, sc := range r.cfg.Synths {
		p, err := serial.Open(sc.Port, sc.Baud)
		if err != nil {
			for _, open := range ports {
				open.Close()
			}
			return nil, err
		}
		r.logger.Info("serial port open",
			slog.String("synth", sc.Name),
			slog.String("port", sc.Port))
		ports = append(ports, p)
	}
	time.Sleep(portOpenSettle)
	return device.NewRack(ports, r.cfg.Synths, r.logger)
}

func (r *Runtime) buildSpeaker() (device.Speaker, error) {
	switch r.cfg.Speech.Mode {
	case "mock":
		return device.NewMockSpeaker(time.Second), nil
	default:
		return device.NewExecSpeaker(r.cfg.Speech.Command, r.cfg.Speech.Voice)
	}
}

func (r *Runtime) openClock() (clock.Source, error) {
	switch r.cfg.Clock.Mode {
	case "timer":
		period := time.Duration(r.cfg.Clock.PeriodMS) * time.Millisecond
		return clock.NewTimerSource(period, r.logger), nil
	default:
		return clock.NewGPIOSource(r.cfg.Clock.Chip, r.cfg.Clock.Line, r.logger)
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
