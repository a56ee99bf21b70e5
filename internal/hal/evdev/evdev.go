// Package evdev implements hal.Board on top of a Linux input device, typically
// the gpio-keys device the kernel creates for board buttons. Pin identifiers
// are decimal Linux key codes (KEY_DOWN is "108").
package evdev

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/chaz8081/hog-remote/internal/hal"
)

const (
	keyMax  = 0x2ff
	keyLen  = keyMax/8 + 1
	evKey   = 0x01
	iocRead = 2
)

// evIOCGKey is EVIOCGKEY(len): read the global key state bitmap.
var evIOCGKey = uintptr(iocRead<<30 | keyLen<<16 | 'E'<<8 | 0x18)

var eventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

// Board is a gpio-keys style input device.
type Board struct {
	path    string
	suspend []string

	f *os.File

	mu   sync.Mutex
	keys [keyLen]byte
}

// Compile-time check that Board implements hal.Board.
var _ hal.Board = (*Board)(nil)

// Open opens the input device at path. suspend is the command SoftOff runs to
// suspend the system.
func Open(path string, suspend []string) (*Board, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("evdev: open %s: %w", path, err)
	}
	b := &Board{path: path, suspend: suspend, f: f}
	if err := b.sample(); err != nil {
		f.Close()
		return nil, err
	}
	return b, nil
}

// Close releases the input device.
func (b *Board) Close() error {
	return b.f.Close()
}

// sample refreshes the key bitmap from the kernel.
func (b *Board) sample() error {
	rc, err := b.f.SyscallConn()
	if err != nil {
		return fmt.Errorf("evdev: syscall conn: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var errno unix.Errno
	ctlErr := rc.Control(func(fd uintptr) {
		_, _, errno = unix.Syscall(
			unix.SYS_IOCTL,
			fd,
			evIOCGKey,
			uintptr(unsafe.Pointer(&b.keys[0])),
		)
	})
	if ctlErr != nil {
		return fmt.Errorf("evdev: ioctl: %w", ctlErr)
	}
	if errno != 0 {
		return fmt.Errorf("evdev: EVIOCGKEY: %w", errno)
	}
	return nil
}

func (b *Board) pressed(code uint16) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.keys[code/8]&(1<<(code%8)) != 0
}

// Pin resolves a decimal key code.
func (b *Board) Pin(id string) (hal.Pin, error) {
	code, err := strconv.ParseUint(id, 10, 16)
	if err != nil || code == 0 || code >= keyMax {
		return nil, fmt.Errorf("evdev: key code %q: %w", id, hal.ErrNoPin)
	}
	return &pin{board: b, code: uint16(code)}, nil
}

// Listen reads key events and calls handler after refreshing the key state.
func (b *Board) Listen(ctx context.Context, handler func()) error {
	go func() {
		<-ctx.Done()
		b.f.Close()
	}()

	buf := make([]byte, eventSize*16)
	for {
		n, err := b.f.Read(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, os.ErrClosed) || errors.Is(err, io.EOF) {
				return ctx.Err()
			}
			return fmt.Errorf("evdev: read: %w", err)
		}

		edge := false
		for off := 0; off+eventSize <= n; off += eventSize {
			typ := binary.NativeEndian.Uint16(buf[off+eventSize-8:])
			if typ == evKey {
				edge = true
			}
		}
		if !edge {
			continue
		}
		if err := b.sample(); err != nil {
			slog.Warn("[EVDEV] key state refresh failed", "error", err)
			continue
		}
		handler()
	}
}

// SoftOff suspends the system and starts the program afresh on resume.
func (b *Board) SoftOff() error {
	if err := hal.Suspend(b.suspend); err != nil {
		return err
	}
	return hal.Restart()
}

// wakeupPath returns the sysfs power/wakeup control of the device behind
// the event node.
func (b *Board) wakeupPath() (string, error) {
	node, err := filepath.EvalSymlinks(b.path)
	if err != nil {
		return "", fmt.Errorf("evdev: resolve %s: %w", b.path, err)
	}
	return filepath.Join("/sys/class/input", filepath.Base(node), "device", "device", "power", "wakeup"), nil
}

type pin struct {
	board *Board
	code  uint16
}

func (p *pin) Get() bool {
	return p.board.pressed(p.code)
}

// ConfigureWake enables wakeup on the whole input device; gpio-keys arms
// every key flagged as a wakeup source in the device tree.
func (p *pin) ConfigureWake() error {
	path, err := p.board.wakeupPath()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte("enabled"), 0644); err != nil {
		return fmt.Errorf("evdev: enable wakeup: %w", err)
	}
	return nil
}
