// Package hooksim is a desktop stand-in for button hardware. A global keyboard
// hook turns host keys into buttons, so the full remote can run on a laptop.
// Pin identifiers are gohook key names such as "1" or "q".
package hooksim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	hook "github.com/robotn/gohook"

	"github.com/chaz8081/hog-remote/internal/hal"
)

// Board simulates a button board with host keys.
type Board struct {
	mu   sync.Mutex
	pins map[uint16]*pin

	wake chan struct{}
	once sync.Once
}

// Compile-time check that Board implements hal.Board.
var _ hal.Board = (*Board)(nil)

// New creates an empty simulated board.
func New() *Board {
	return &Board{
		pins: make(map[uint16]*pin),
		wake: make(chan struct{}, 1),
	}
}

// Pin binds a host key name.
func (b *Board) Pin(id string) (hal.Pin, error) {
	code, ok := hook.Keycode[id]
	if !ok {
		return nil, fmt.Errorf("hooksim: key %q: %w", id, hal.ErrNoPin)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.pins[code]; ok {
		return p, nil
	}
	p := &pin{board: b, code: code}
	b.pins[code] = p
	return p, nil
}

// Listen runs the global keyboard hook until ctx is done.
func (b *Board) Listen(ctx context.Context, handler func()) error {
	evChan := hook.Start()
	go func() {
		<-ctx.Done()
		b.once.Do(hook.End)
	}()

	for ev := range evChan {
		var pressed bool
		switch ev.Kind {
		case hook.KeyDown, hook.KeyHold:
			pressed = true
		case hook.KeyUp:
			pressed = false
		default:
			continue
		}
		if b.apply(ev.Keycode, pressed) {
			handler()
		}
	}
	return ctx.Err()
}

// apply records a key transition and reports whether it was an edge on a
// bound pin.
func (b *Board) apply(code uint16, pressed bool) bool {
	b.mu.Lock()
	p, ok := b.pins[code]
	b.mu.Unlock()
	if !ok {
		return false
	}
	if p.level.Swap(pressed) == pressed {
		// Auto-repeat.
		return false
	}
	if pressed && p.armed.Load() {
		select {
		case b.wake <- struct{}{}:
		default:
		}
	}
	return true
}

// SoftOff blocks until an armed key is pressed, then restarts the program.
func (b *Board) SoftOff() error {
	slog.Info("[SIM] soft off, press a wake key to restart")
	<-b.wake
	b.once.Do(hook.End)
	return hal.Restart()
}

type pin struct {
	board *Board
	code  uint16
	level atomic.Bool
	armed atomic.Bool
}

func (p *pin) Get() bool {
	return p.level.Load()
}

func (p *pin) ConfigureWake() error {
	p.armed.Store(true)
	return nil
}
