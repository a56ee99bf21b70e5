// Package haltest provides an in-memory hal.Board for tests and manual
// harnesses.
package haltest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chaz8081/hog-remote/internal/hal"
)

// Board is a scriptable board. Pins are created on first use.
type Board struct {
	mu       sync.Mutex
	pins     map[string]*Pin
	missing  map[string]bool
	handler  func()
	softOffs int
	offErr   error
}

// Compile-time check that Board implements hal.Board.
var _ hal.Board = (*Board)(nil)

// NewBoard creates a board on which every pin id in missing is unavailable.
func NewBoard(missing ...string) *Board {
	b := &Board{pins: make(map[string]*Pin), missing: make(map[string]bool)}
	for _, id := range missing {
		b.missing[id] = true
	}
	return b
}

func (b *Board) Pin(id string) (hal.Pin, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.missing[id] {
		return nil, fmt.Errorf("haltest: %q: %w", id, hal.ErrNoPin)
	}
	p, ok := b.pins[id]
	if !ok {
		p = &Pin{}
		b.pins[id] = p
	}
	return p, nil
}

// Listen registers handler and blocks until ctx is done.
func (b *Board) Listen(ctx context.Context, handler func()) error {
	b.mu.Lock()
	b.handler = handler
	b.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

// SoftOff counts the call and returns the error set with FailSoftOff.
func (b *Board) SoftOff() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.softOffs++
	return b.offErr
}

// FailSoftOff makes SoftOff return err.
func (b *Board) FailSoftOff(err error) {
	b.mu.Lock()
	b.offErr = err
	b.mu.Unlock()
}

// SoftOffs returns how often SoftOff was called.
func (b *Board) SoftOffs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.softOffs
}

// Set changes the level of pin id and fires the edge handler, if any.
func (b *Board) Set(id string, pressed bool) {
	p, _ := b.Pin(id)
	p.(*Pin).Set(pressed)

	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	if h != nil {
		h()
	}
}

// Lookup returns the pin with id, creating it if needed.
func (b *Board) Lookup(id string) *Pin {
	p, _ := b.Pin(id)
	return p.(*Pin)
}

// Pin is an in-memory button.
type Pin struct {
	level atomic.Bool
	wake  atomic.Bool
}

func (p *Pin) Get() bool { return p.level.Load() }

func (p *Pin) ConfigureWake() error {
	p.wake.Store(true)
	return nil
}

// Set changes the level without firing an edge.
func (p *Pin) Set(pressed bool) { p.level.Store(pressed) }

// Wake reports whether the pin was configured as a wake source.
func (p *Pin) Wake() bool { return p.wake.Load() }
