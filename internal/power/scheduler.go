// Package power runs the remote's main loop: it delivers reports, fires the
// unpair gesture and puts the board to sleep after the idle timeout.
package power

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chaz8081/hog-remote/internal/gesture"
	"github.com/chaz8081/hog-remote/internal/keymap"
	"github.com/chaz8081/hog-remote/internal/report"
)

// Default timings.
const (
	DefaultIdleTimeout = 300 * time.Second
	DefaultTick        = 250 * time.Millisecond
)

// ErrAsleep is returned by Run when the board entered soft off and control
// came back anyway, which only simulated boards do.
var ErrAsleep = errors.New("power: asleep")

// Peripheral transmits reports to the connected host.
type Peripheral interface {
	SendReport(r report.Report) error
	StopAdvertising() error
}

// BondAuthority forgets every bonded host.
type BondAuthority interface {
	ForgetAll() error
}

// Board is the part of the platform the scheduler powers down.
type Board interface {
	SoftOff() error
}

// Journal records the epoch that ends in soft off.
type Journal interface {
	RecordSleep(st State) error
}

// Clock is the scheduler's monotonic time source.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Options tunes the scheduler.
type Options struct {
	IdleTimeout time.Duration
	Tick        time.Duration
	// EdgeOnly evaluates the unpair deadline only when a new report arrives
	// instead of on every tick.
	EdgeOnly bool
	Clock    Clock
	Journal  Journal
}

// DefaultOptions returns the default timings.
func DefaultOptions() Options {
	return Options{
		IdleTimeout: DefaultIdleTimeout,
		Tick:        DefaultTick,
	}
}

// Scheduler owns the main loop.
type Scheduler struct {
	enc     *report.Encoder
	gesture *gesture.Detector
	buttons []keymap.Button
	periph  Peripheral
	bonds   BondAuthority
	board   Board
	opts    Options
}

// New creates a scheduler. Every dependency is required.
func New(enc *report.Encoder, det *gesture.Detector, m *keymap.Map, periph Peripheral, bonds BondAuthority, board Board, opts Options) *Scheduler {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	return &Scheduler{
		enc:     enc,
		gesture: det,
		buttons: m.Buttons(),
		periph:  periph,
		bonds:   bonds,
		board:   board,
		opts:    opts,
	}
}

// NewState returns the state of a freshly booted epoch.
func (s *Scheduler) NewState(now time.Time) State {
	return State{
		Mode:          Active,
		Boot:          now,
		SleepDeadline: now.Add(s.opts.IdleTimeout),
	}
}

// Tick runs one scheduling step at now. It returns the mode after the step;
// Asleep is terminal.
func (s *Scheduler) Tick(st *State, now time.Time) (Mode, error) {
	if st.Mode == Asleep {
		return Asleep, nil
	}

	fire := false
	if r, ok := s.enc.Take(); ok {
		if err := s.periph.SendReport(r); err != nil {
			slog.Debug("[POWER] report not delivered", "error", err)
		}
		st.LastReport = r
		st.Reports++
		st.SleepDeadline = now.Add(s.opts.IdleTimeout)
		fire = s.gesture.Evaluate(r, now)
	} else if !s.opts.EdgeOnly {
		fire = s.gesture.Check(now)
	}

	if fire {
		slog.Warn("[POWER] unpair gesture held, forgetting all bonds")
		st.Unpairs++
		if err := s.bonds.ForgetAll(); err != nil {
			slog.Error("[POWER] forget bonds failed", "error", err)
		}
	}

	if now.Before(st.SleepDeadline) {
		return Active, nil
	}
	if err := s.sleep(st, now); err != nil {
		// Stay active: reports keep flowing and the next tick tries again.
		slog.Error("[POWER] soft off failed, retrying next tick", "error", err)
		return Active, nil
	}
	return Asleep, nil
}

// sleep shuts the radio down, arms the wake sources and enters soft off. st
// only becomes Asleep once SoftOff succeeded.
func (s *Scheduler) sleep(st *State, now time.Time) error {
	slog.Info("[POWER] idle timeout, entering soft off", "reports", st.Reports, "uptime", now.Sub(st.Boot).Round(time.Second))
	ended := *st
	ended.Mode = Asleep
	ended.Sleep = now

	if err := s.periph.StopAdvertising(); err != nil {
		slog.Warn("[POWER] stop advertising failed", "error", err)
	}
	for _, b := range s.buttons {
		if err := b.Pin.ConfigureWake(); err != nil {
			slog.Warn("[POWER] wake source not armed", "button", b.Name, "error", err)
		}
	}
	if s.opts.Journal != nil {
		if err := s.opts.Journal.RecordSleep(ended); err != nil {
			slog.Warn("[POWER] epoch not recorded", "error", err)
		}
	}

	if err := s.board.SoftOff(); err != nil {
		return fmt.Errorf("power: soft off: %w", err)
	}
	*st = ended
	return nil
}

// Run ticks until the board goes to sleep or ctx is cancelled. A real board
// never returns from soft off; if one does, Run returns ErrAsleep. A failed
// soft off is retried on the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	clock := s.opts.Clock
	st := s.NewState(clock.Now())

	for {
		mode, err := s.Tick(&st, clock.Now())
		if err != nil {
			return err
		}
		if mode == Asleep {
			return ErrAsleep
		}
		if s.enc.Pending() {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.enc.Notify():
		case <-clock.After(s.opts.Tick):
		}
	}
}
