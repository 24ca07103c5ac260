// Package clock delivers the tick train that drives the sequencer. The
// production source is an external hardware square wave on a GPIO line;
// a timer source substitutes for it on machines without the hardware.
package clock

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Source emits one value per tick edge. Close stops the source and
// eventually closes the channel.
type Source interface {
	Ticks() <-chan struct{}
	Close() error
}

// gate is the depth-1 buffer between edge delivery and the consumer.
// A tick that arrives while the previous one is still being processed
// would stack up behind the scheduler's mutex and fire late; dropping
// it keeps the song on the hardware clock instead of drifting behind
// it. Dropped edges are counted, not an error.
type gate struct {
	ch      chan struct{}
	dropped atomic.Uint64
	log     *slog.Logger
}

func newGate(log *slog.Logger) *gate {
	return &gate{
		ch:  make(chan struct{}, 1),
		log: log,
	}
}

func (g *gate) offer() {
	select {
	case g.ch <- struct{}{}:
	default:
		n := g.dropped.Add(1)
		g.log.Debug("tick dropped, consumer busy", slog.Uint64("dropped_total", n))
	}
}

// GPIOSource watches a GPIO line for falling edges. The external
// generator drives the line with a nominal 50ms square wave; each
// falling edge is one tick.
type GPIOSource struct {
	line *gpiocdev.Line
	gate *gate
}

func NewGPIOSource(chip string, offset int, log *slog.Logger) (*GPIOSource, error) {
	s := &GPIOSource{
		gate: newGate(log.With(slog.String("component", "clock"))),
	}
	registerDropGauge(s.gate, log)

	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
			s.gate.offer()
		}))
	if err != nil {
		return nil, fmt.Errorf("request gpio %s:%d: %w", chip, offset, err)
	}
	s.line = line
	return s, nil
}

func (s *GPIOSource) Ticks() <-chan struct{} { return s.gate.ch }

func (s *GPIOSource) Close() error {
	if s.line != nil {
		s.line.Close()
	}
	close(s.gate.ch)
	return nil
}

// Dropped reports how many edges arrived while a tick was still being
// consumed. Diagnostic only.
func (s *GPIOSource) Dropped() uint64 { return s.gate.dropped.Load() }

// TimerSource is the software stand-in for the hardware clock.
type TimerSource struct {
	gate *gate
	done chan struct{}
}

func NewTimerSource(period time.Duration, log *slog.Logger) *TimerSource {
	s := &TimerSource{
		gate: newGate(log.With(slog.String("component", "clock"))),
		done: make(chan struct{}),
	}
	registerDropGauge(s.gate, log)
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				close(s.gate.ch)
				return
			case <-ticker.C:
				s.gate.offer()
			}
		}
	}()
	return s
}

func (s *TimerSource) Ticks() <-chan struct{} { return s.gate.ch }

func (s *TimerSource) Close() error {
	close(s.done)
	return nil
}

func (s *TimerSource) Dropped() uint64 { return s.gate.dropped.Load() }

func registerDropGauge(g *gate, log *slog.Logger) {
	meter := otel.Meter("github.com/maltman23/LoungeLooker/clock")
	counter, err := meter.Int64ObservableCounter("looker_ticks_dropped_total")
	if err != nil {
		log.Warn("failed to create dropped-tick counter", slog.String("error", err.Error()))
		return
	}
	if _, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(counter, int64(g.dropped.Load()))
		return nil
	}, counter); err != nil {
		log.Warn("failed to register dropped-tick callback", slog.String("error", err.Error()))
	}
}
