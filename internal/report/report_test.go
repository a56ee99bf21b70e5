package report

import (
	"strconv"
	"testing"

	"github.com/chaz8081/hog-remote/internal/hal/haltest"
	"github.com/chaz8081/hog-remote/internal/keymap"
)

// newMap builds the nine-button default map on a scriptable board. Pin ids
// are the button indexes.
func newMap(t *testing.T) (*keymap.Map, *haltest.Board) {
	t.Helper()
	keys := []string{"down", "up", "left", "right", "enter", "f1", "f2", "f4", "f5"}
	bindings := make([]keymap.Binding, len(keys))
	for i, k := range keys {
		bindings[i] = keymap.Binding{Name: k, Pin: strconv.Itoa(i), Key: k}
	}
	board := haltest.NewBoard()
	m, err := keymap.New(bindings, board)
	if err != nil {
		t.Fatalf("keymap.New() error = %v", err)
	}
	return m, board
}

func press(board *haltest.Board, mask int, n int) {
	for i := 0; i < n; i++ {
		board.Lookup(strconv.Itoa(i)).Set(mask&(1<<i) != 0)
	}
}

func TestEncodeAllSubsets(t *testing.T) {
	m, board := newMap(t)
	buttons := m.Buttons()

	for mask := 0; mask < 1<<len(buttons); mask++ {
		press(board, mask, len(buttons))

		var want Report
		slot := bodyOffset
		for i, b := range buttons {
			if mask&(1<<i) != 0 && slot < Size {
				want[slot] = byte(b.Key)
				slot++
			}
		}

		var got Report
		got[0], got[7] = 0xff, 0xff // stale content must be cleared
		Encode(buttons, &got)
		if got != want {
			t.Fatalf("mask %09b: Encode = %v, want %v", mask, got, want)
		}
		if got[0] != 0 || got[1] != 0 {
			t.Fatalf("mask %09b: header bytes not zero: %v", mask, got)
		}
	}
}

func TestEncodeTruncatesAfterSixKeys(t *testing.T) {
	m, board := newMap(t)
	press(board, 0x1ff, 9)

	var r Report
	Encode(m.Buttons(), &r)

	want := Report{0, 0,
		byte(keymap.KeyDown), byte(keymap.KeyUp), byte(keymap.KeyLeft),
		byte(keymap.KeyRight), byte(keymap.KeyEnter), byte(keymap.KeyF1)}
	if r != want {
		t.Errorf("Encode = %v, want %v", r, want)
	}
}

func TestEncodeIdempotent(t *testing.T) {
	m, board := newMap(t)
	press(board, 0b110000001, 9)

	var a, b Report
	Encode(m.Buttons(), &a)
	Encode(m.Buttons(), &b)
	if a != b {
		t.Errorf("Encode not idempotent: %v vs %v", a, b)
	}
}

func TestReportAccessors(t *testing.T) {
	r := Report{0, 0, byte(keymap.KeyF4), byte(keymap.KeyF5)}
	if r.Empty() {
		t.Error("Empty() = true for a report with keys")
	}
	keys := r.Keys()
	if len(keys) != 2 || keys[0] != keymap.KeyF4 || keys[1] != keymap.KeyF5 {
		t.Errorf("Keys() = %v, want [f4 f5]", keys)
	}
	if r.Slot(1) != keymap.KeyF5 {
		t.Errorf("Slot(1) = %v, want f5", r.Slot(1))
	}
	if got, want := r.String(), "00 00 3d 3e 00 00 00 00 [f4 f5]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	var empty Report
	if !empty.Empty() {
		t.Error("Empty() = false for zero report")
	}
}
