package report

import (
	"sync/atomic"

	"github.com/chaz8081/hog-remote/internal/keymap"
)

const (
	indexMask = 0x3
	freshBit  = 0x4
)

// Encoder turns edge events into reports and passes the newest one to a
// single consumer without locks.
//
// Three buffers rotate between the producer (back), the consumer (front) and
// a shared middle slot. The producer writes only its back buffer and then
// swaps it with the middle; the consumer swaps its front with the middle
// when the fresh bit is set. A buffer is never written while the consumer
// can see it, so a taken report always comes from exactly one Encode.
type Encoder struct {
	buttons []keymap.Button

	bufs [3]Report

	// middle holds the index of the shared buffer plus freshBit.
	middle atomic.Uint32
	back   int // owned by OnEdge
	front  int // owned by Take

	notify chan struct{}
}

// NewEncoder creates an encoder over the buttons of m.
func NewEncoder(m *keymap.Map) *Encoder {
	e := &Encoder{
		buttons: m.Buttons(),
		back:    0,
		front:   1,
		notify:  make(chan struct{}, 1),
	}
	e.middle.Store(2)
	return e
}

// OnEdge is the edge handler. It samples every button, publishes the new
// report and sets the pending flag. It does not block or allocate, and it
// must not run concurrently with itself.
func (e *Encoder) OnEdge() {
	Encode(e.buttons, &e.bufs[e.back])
	prev := e.middle.Swap(uint32(e.back) | freshBit)
	e.back = int(prev & indexMask)

	select {
	case e.notify <- struct{}{}:
	default:
	}
}

// Pending reports whether a report is waiting to be taken.
func (e *Encoder) Pending() bool {
	return e.middle.Load()&freshBit != 0
}

// Take returns the newest report and clears the pending flag. ok is false if
// nothing was published since the last Take. Take must only be called from
// one goroutine.
func (e *Encoder) Take() (r Report, ok bool) {
	if !e.Pending() {
		return Report{}, false
	}
	prev := e.middle.Swap(uint32(e.front))
	e.front = int(prev & indexMask)
	return e.bufs[e.front], true
}

// Notify is signalled after each OnEdge. Signals coalesce.
func (e *Encoder) Notify() <-chan struct{} {
	return e.notify
}
