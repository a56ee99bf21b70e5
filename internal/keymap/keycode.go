package keymap

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyCode is a HID keyboard usage ID (usage page 0x07).
type KeyCode uint8

// Key codes used by the default button map.
const (
	KeyEnter KeyCode = 0x28
	KeyF1    KeyCode = 0x3a // home
	KeyF2    KeyCode = 0x3b // back
	KeyF4    KeyCode = 0x3d // menu
	KeyF5    KeyCode = 0x3e // power off
	KeyRight KeyCode = 0x4f
	KeyLeft  KeyCode = 0x50
	KeyDown  KeyCode = 0x51
	KeyUp    KeyCode = 0x52
)

// keyNames uses the host key-name vocabulary shared by robotgo and gohook.
var keyNames = map[string]KeyCode{
	"enter":     KeyEnter,
	"escape":    0x29,
	"backspace": 0x2a,
	"tab":       0x2b,
	"space":     0x2c,
	"right":     KeyRight,
	"left":      KeyLeft,
	"down":      KeyDown,
	"up":        KeyUp,
	"insert":    0x49,
	"home":      0x4a,
	"pageup":    0x4b,
	"delete":    0x4c,
	"end":       0x4d,
	"pagedown":  0x4e,
}

var codeNames map[KeyCode]string

func init() {
	for c := 'a'; c <= 'z'; c++ {
		keyNames[string(c)] = KeyCode(0x04 + c - 'a')
	}
	keyNames["0"] = 0x27
	for c := '1'; c <= '9'; c++ {
		keyNames[string(c)] = KeyCode(0x1e + c - '1')
	}
	for i := 1; i <= 12; i++ {
		keyNames["f"+strconv.Itoa(i)] = KeyCode(0x3a + i - 1)
	}

	codeNames = make(map[KeyCode]string, len(keyNames))
	for name, code := range keyNames {
		codeNames[code] = name
	}
}

// ParseKey accepts a key name ("down", "f1", "a") or a numeric usage ID
// ("0x51", "81"). Zero means "no key" in a report and is rejected.
func ParseKey(s string) (KeyCode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if code, ok := keyNames[name]; ok {
		return code, nil
	}
	n, err := strconv.ParseUint(name, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("keymap: unknown key %q", s)
	}
	if n == 0 {
		return 0, fmt.Errorf("keymap: key %q is the empty usage", s)
	}
	return KeyCode(n), nil
}

// Name returns the host key name for c, or "" if it has none.
func (c KeyCode) Name() string {
	return codeNames[c]
}

func (c KeyCode) String() string {
	if name := c.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("0x%02x", uint8(c))
}
