package loopback

import (
	"errors"
	"reflect"
	"testing"

	"github.com/chaz8081/hog-remote/internal/keymap"
	"github.com/chaz8081/hog-remote/internal/report"
)

type toggleRecorder struct {
	events []string
	err    error
}

func (r *toggleRecorder) toggle(key string, down bool) error {
	if r.err != nil {
		return r.err
	}
	dir := "up"
	if down {
		dir = "down"
	}
	r.events = append(r.events, key+" "+dir)
	return nil
}

func newTestLoopback() (*Loopback, *toggleRecorder) {
	rec := &toggleRecorder{}
	return &Loopback{toggle: rec.toggle}, rec
}

func rep(keys ...keymap.KeyCode) report.Report {
	var r report.Report
	for i, k := range keys {
		r[2+i] = byte(k)
	}
	return r
}

func TestSendReportPressesAndReleases(t *testing.T) {
	l, rec := newTestLoopback()

	steps := []report.Report{
		rep(keymap.KeyDown),
		rep(keymap.KeyDown, keymap.KeyUp),
		rep(keymap.KeyUp),
		rep(),
	}
	for _, r := range steps {
		if err := l.SendReport(r); err != nil {
			t.Fatalf("SendReport(%v) error = %v", r, err)
		}
	}

	want := []string{"down down", "up down", "down up", "up up"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestSendReportSameReportIsNoop(t *testing.T) {
	l, rec := newTestLoopback()
	_ = l.SendReport(rep(keymap.KeyEnter))
	_ = l.SendReport(rep(keymap.KeyEnter))

	if len(rec.events) != 1 {
		t.Errorf("events = %v, want a single press", rec.events)
	}
}

func TestSendReportSkipsUnnamedCodes(t *testing.T) {
	l, rec := newTestLoopback()
	if err := l.SendReport(rep(0x87)); err != nil {
		t.Fatalf("SendReport() error = %v", err)
	}
	if len(rec.events) != 0 {
		t.Errorf("events = %v, want none", rec.events)
	}
}

func TestStopAdvertisingReleasesHeldKeys(t *testing.T) {
	l, rec := newTestLoopback()
	_ = l.SendReport(rep(keymap.KeyF1, keymap.KeyF2))
	if err := l.StopAdvertising(); err != nil {
		t.Fatalf("StopAdvertising() error = %v", err)
	}

	want := []string{"f1 down", "f2 down", "f1 up", "f2 up"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestSendReportToggleError(t *testing.T) {
	l, rec := newTestLoopback()
	rec.err = errors.New("no display")
	if err := l.SendReport(rep(keymap.KeyLeft)); !errors.Is(err, rec.err) {
		t.Errorf("SendReport() error = %v, want wrapped %v", err, rec.err)
	}
}
