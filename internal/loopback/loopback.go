// Package loopback replays reports as key presses on the host using robotgo.
// It takes the place of the BLE peripheral when running the remote on a
// desktop, so the keys show up in whatever application has focus.
package loopback

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-vgo/robotgo"

	"github.com/chaz8081/hog-remote/internal/keymap"
	"github.com/chaz8081/hog-remote/internal/report"
)

// Loopback mirrors the pressed set of each report onto the host keyboard.
type Loopback struct {
	mu     sync.Mutex
	held   []keymap.KeyCode
	toggle func(key string, down bool) error
}

// New creates a Loopback that drives the host keyboard.
func New() *Loopback {
	return &Loopback{toggle: robotToggle}
}

func robotToggle(key string, down bool) error {
	dir := "up"
	if down {
		dir = "down"
	}
	return robotgo.KeyToggle(key, dir)
}

// SendReport releases keys that left the report and presses keys that
// entered it.
func (l *Loopback) SendReport(r report.Report) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := r.Keys()
	var first error
	for _, k := range l.held {
		if !contains(next, k) {
			if err := l.set(k, false); err != nil && first == nil {
				first = err
			}
		}
	}
	for _, k := range next {
		if !contains(l.held, k) {
			if err := l.set(k, true); err != nil && first == nil {
				first = err
			}
		}
	}
	l.held = next
	return first
}

// StopAdvertising releases every held key; there is no radio to stop.
func (l *Loopback) StopAdvertising() error {
	return l.SendReport(report.Report{})
}

func (l *Loopback) set(k keymap.KeyCode, down bool) error {
	name := k.Name()
	if name == "" {
		slog.Debug("[LOOPBACK] no host key for code", "code", k)
		return nil
	}
	if err := l.toggle(name, down); err != nil {
		return fmt.Errorf("loopback: toggle %s: %w", name, err)
	}
	return nil
}

func contains(keys []keymap.KeyCode, k keymap.KeyCode) bool {
	for _, c := range keys {
		if c == k {
			return true
		}
	}
	return false
}
