// Package report builds the 8-byte keyboard input report from the button
// levels and hands it from the edge handler to the scheduler.
//
// Layout:
//
//	[0]    modifiers, always zero
//	[1]    reserved, always zero
//	[2-7]  key codes of pressed buttons in button map order, zero padded
package report

import (
	"fmt"
	"strings"

	"github.com/chaz8081/hog-remote/internal/keymap"
)

const (
	// Size is the length of a report in bytes.
	Size = 8
	// MaxKeys is the number of key slots in a report.
	MaxKeys = 6

	bodyOffset = 2
)

// Report is a boot keyboard input report.
type Report [Size]byte

// Slot returns the key code in body slot i (0..5).
func (r *Report) Slot(i int) keymap.KeyCode {
	return keymap.KeyCode(r[bodyOffset+i])
}

// Keys returns the non-empty key slots.
func (r *Report) Keys() []keymap.KeyCode {
	var keys []keymap.KeyCode
	for i := 0; i < MaxKeys; i++ {
		if k := r.Slot(i); k != 0 {
			keys = append(keys, k)
		}
	}
	return keys
}

// Empty reports whether no key is pressed.
func (r *Report) Empty() bool {
	for i := 0; i < MaxKeys; i++ {
		if r.Slot(i) != 0 {
			return false
		}
	}
	return true
}

func (r Report) String() string {
	keys := r.Keys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return fmt.Sprintf("% x [%s]", r[:], strings.Join(names, " "))
}

// Encode rebuilds r from the current level of every button. Pressed buttons
// fill the key slots in map order; buttons beyond the sixth pressed one are
// dropped.
func Encode(buttons []keymap.Button, r *Report) {
	*r = Report{}
	slot := bodyOffset
	for i := range buttons {
		if buttons[i].Pressed() && slot < Size {
			r[slot] = byte(buttons[i].Key)
			slot++
		}
	}
}
