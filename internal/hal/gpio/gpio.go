// Package gpio implements hal.Board for buttons wired straight to Raspberry Pi
// GPIO lines. Pin identifiers are BCM numbers. Buttons are active high with
// the internal pull-down enabled.
package gpio

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/chaz8081/hog-remote/internal/hal"
)

const (
	maxBCM       = 27
	wakePollRate = 100 * time.Millisecond
)

// line is the part of rpio.Pin the board drives.
type line interface {
	Input()
	PullDown()
	Detect(edge rpio.Edge)
	EdgeDetected() bool
	Read() rpio.State
}

// Board is the Pi GPIO bank.
type Board struct {
	poll    time.Duration
	suspend []string

	open    func(bcm int) line
	restart func() error

	mu    sync.Mutex
	pins  []*pin
	armed []*pin

	// wake is signalled by whichever poller first sees an edge on an armed
	// pin. EdgeDetected clears the event, so Listen and SoftOff both report
	// here.
	wake chan struct{}
}

// Compile-time check that Board implements hal.Board.
var _ hal.Board = (*Board)(nil)

// Open maps the GPIO registers. poll is the edge polling interval.
func Open(poll time.Duration, suspend []string) (*Board, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("gpio: open: %w", err)
	}
	return newBoard(poll, suspend, func(bcm int) line { return rpio.Pin(bcm) }, hal.Restart), nil
}

func newBoard(poll time.Duration, suspend []string, open func(int) line, restart func() error) *Board {
	if poll <= 0 {
		poll = 5 * time.Millisecond
	}
	return &Board{
		poll:    poll,
		suspend: suspend,
		open:    open,
		restart: restart,
		wake:    make(chan struct{}, 1),
	}
}

// Close unmaps the GPIO registers.
func (b *Board) Close() error {
	return rpio.Close()
}

// Pin configures the BCM line as a pulled-down input detecting both edges.
func (b *Board) Pin(id string) (hal.Pin, error) {
	n, err := strconv.Atoi(id)
	if err != nil || n < 0 || n > maxBCM {
		return nil, fmt.Errorf("gpio: BCM %q: %w", id, hal.ErrNoPin)
	}
	p := &pin{board: b, line: b.open(n)}
	p.line.Input()
	p.line.PullDown()
	p.line.Detect(rpio.AnyEdge)

	b.mu.Lock()
	b.pins = append(b.pins, p)
	b.mu.Unlock()
	return p, nil
}

// Listen polls the edge detect status of every resolved pin. Once a pin is
// armed as a wake source its edges go to SoftOff instead of handler.
func (b *Board) Listen(ctx context.Context, handler func()) error {
	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		b.mu.Lock()
		pins := b.pins
		b.mu.Unlock()

		edge := false
		for _, p := range pins {
			// EdgeDetected clears the status bit, so every pin is visited.
			if !p.line.EdgeDetected() {
				continue
			}
			if p.armed.Load() {
				b.signalWake()
				continue
			}
			edge = true
		}
		if edge {
			handler()
		}
	}
}

// SoftOff runs the suspend command, then parks until an armed pin senses a
// rising edge and restarts the program.
func (b *Board) SoftOff() error {
	if err := hal.Suspend(b.suspend); err != nil {
		return err
	}

	b.mu.Lock()
	armed := b.armed
	b.mu.Unlock()

	if len(armed) > 0 {
		ticker := time.NewTicker(wakePollRate)
		defer ticker.Stop()
		for woke := false; !woke; {
			select {
			case <-b.wake:
				woke = true
			case <-ticker.C:
				woke = anyEdge(armed)
			}
		}
		slog.Info("[GPIO] wake edge, restarting")
	}
	return b.restart()
}

func (b *Board) signalWake() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func anyEdge(pins []*pin) bool {
	for _, p := range pins {
		if p.line.EdgeDetected() {
			return true
		}
	}
	return false
}

type pin struct {
	board *Board
	line  line
	armed atomic.Bool
}

func (p *pin) Get() bool {
	return p.line.Read() == rpio.High
}

// ConfigureWake re-arms the line to sense only the press edge.
func (p *pin) ConfigureWake() error {
	p.line.Input()
	p.line.PullDown()
	p.line.Detect(rpio.NoEdge)
	p.line.Detect(rpio.RiseEdge)

	if p.armed.Swap(true) {
		return nil
	}
	p.board.mu.Lock()
	p.board.armed = append(p.board.armed, p)
	p.board.mu.Unlock()
	return nil
}
