// Package hal abstracts the board the remote runs on: the button pins, the
// edge interrupt source and the lowest power state.
package hal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// ErrNoPin is returned when a configured pin does not exist on the board.
var ErrNoPin = errors.New("hal: pin unavailable")

// Pin is a single button input.
type Pin interface {
	// Get reports whether the button is currently pressed.
	Get() bool
	// ConfigureWake turns the pin into a wake source: input, pulled to its
	// rest level, sensing the active edge.
	ConfigureWake() error
}

// Board provides the button pins and delivers edge interrupts.
type Board interface {
	// Pin resolves a board-specific pin identifier.
	Pin(id string) (Pin, error)
	// Listen calls handler for every edge on any resolved pin until ctx is
	// done. handler is always called from a single goroutine and must not
	// block.
	Listen(ctx context.Context, handler func()) error
	// SoftOff puts the board into its lowest power state. Resumption is a
	// fresh start of the program, so SoftOff only returns on failure.
	SoftOff() error
}

// Suspend runs the platform suspend command and waits for it to return,
// which on Linux happens after the system resumes. An empty command is a
// no-op.
func Suspend(command []string) error {
	if len(command) == 0 {
		return nil
	}
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("hal: suspend %q: %w", command[0], err)
	}
	return nil
}

// Restart replaces the running process with a fresh copy of itself. It does
// not return on success.
func Restart() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("hal: locate executable: %w", err)
	}
	if err := unix.Exec(exe, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("hal: exec %s: %w", exe, err)
	}
	return nil
}
