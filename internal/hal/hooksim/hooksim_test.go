package hooksim

import (
	"errors"
	"testing"

	hook "github.com/robotn/gohook"

	"github.com/chaz8081/hog-remote/internal/hal"
)

func TestPinUnknownKey(t *testing.T) {
	b := New()
	if _, err := b.Pin("no-such-key"); !errors.Is(err, hal.ErrNoPin) {
		t.Errorf("Pin() error = %v, want ErrNoPin", err)
	}
}

func TestPinIsShared(t *testing.T) {
	b := New()
	p1, err := b.Pin("a")
	if err != nil {
		t.Fatalf("Pin() error = %v", err)
	}
	p2, _ := b.Pin("a")
	if p1 != p2 {
		t.Error("Pin() returned two pins for the same key")
	}
}

func TestApplyTracksLevel(t *testing.T) {
	b := New()
	p, err := b.Pin("a")
	if err != nil {
		t.Fatalf("Pin() error = %v", err)
	}
	code := hook.Keycode["a"]

	if !b.apply(code, true) {
		t.Error("press should be an edge")
	}
	if !p.Get() {
		t.Error("pin not pressed after press")
	}
	if b.apply(code, true) {
		t.Error("auto-repeat should not be an edge")
	}
	if !b.apply(code, false) {
		t.Error("release should be an edge")
	}
	if p.Get() {
		t.Error("pin still pressed after release")
	}
}

func TestApplyIgnoresUnboundKeys(t *testing.T) {
	b := New()
	if b.apply(hook.Keycode["q"], true) {
		t.Error("unbound key should not be an edge")
	}
}

func TestApplySignalsWake(t *testing.T) {
	b := New()
	p, _ := b.Pin("a")
	b.apply(hook.Keycode["a"], true)
	b.apply(hook.Keycode["a"], false)
	select {
	case <-b.wake:
		t.Fatal("wake signalled before arming")
	default:
	}

	if err := p.ConfigureWake(); err != nil {
		t.Fatalf("ConfigureWake() error = %v", err)
	}
	b.apply(hook.Keycode["a"], true)
	select {
	case <-b.wake:
	default:
		t.Error("armed key press did not signal wake")
	}
}
