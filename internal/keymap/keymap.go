// Package keymap holds the button map: the ordered list of physical buttons
// and the key code each one reports. The map is built once at startup and
// never changes afterwards.
package keymap

import (
	"fmt"

	"github.com/chaz8081/hog-remote/internal/hal"
)

// Binding is the configured form of a button.
type Binding struct {
	Name string
	Pin  string // board-specific pin identifier
	Key  string // key name or usage ID, see ParseKey
}

// Button is a resolved physical input.
type Button struct {
	Index int
	Name  string
	Pin   hal.Pin
	Key   KeyCode
}

// Pressed reads the button's current level.
func (b Button) Pressed() bool {
	return b.Pin.Get()
}

// Map is the ordered, immutable button map.
type Map struct {
	buttons []Button
}

// New resolves every binding on board. A pin the board cannot provide is a
// configuration error and the caller must not go on to produce reports.
func New(bindings []Binding, board hal.Board) (*Map, error) {
	if len(bindings) == 0 {
		return nil, fmt.Errorf("keymap: no buttons configured")
	}
	seen := make(map[string]bool, len(bindings))
	buttons := make([]Button, 0, len(bindings))
	for i, bnd := range bindings {
		if seen[bnd.Name] {
			return nil, fmt.Errorf("keymap: duplicate button %q", bnd.Name)
		}
		seen[bnd.Name] = true

		key, err := ParseKey(bnd.Key)
		if err != nil {
			return nil, fmt.Errorf("keymap: button %q: %w", bnd.Name, err)
		}
		pin, err := board.Pin(bnd.Pin)
		if err != nil {
			return nil, fmt.Errorf("keymap: button %q: %w", bnd.Name, err)
		}
		buttons = append(buttons, Button{Index: i, Name: bnd.Name, Pin: pin, Key: key})
	}
	return &Map{buttons: buttons}, nil
}

// Buttons returns the buttons in map order. The slice is a copy.
func (m *Map) Buttons() []Button {
	out := make([]Button, len(m.buttons))
	copy(out, m.buttons)
	return out
}

// Len returns the number of buttons.
func (m *Map) Len() int {
	return len(m.buttons)
}

// Lookup finds a button by name.
func (m *Map) Lookup(name string) (Button, bool) {
	for _, b := range m.buttons {
		if b.Name == name {
			return b, true
		}
	}
	return Button{}, false
}
