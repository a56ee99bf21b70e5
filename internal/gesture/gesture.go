// Package gesture recognizes the unpair gesture: exactly the reset and extra
// buttons held together for the hold duration.
package gesture

import (
	"time"

	"github.com/chaz8081/hog-remote/internal/keymap"
	"github.com/chaz8081/hog-remote/internal/report"
)

// DefaultHold is how long the combination must be held.
const DefaultHold = 5 * time.Second

// Detector tracks the unpair hold deadline. It is not safe for concurrent
// use; the scheduler owns it.
type Detector struct {
	reset keymap.KeyCode
	extra keymap.KeyCode
	hold  time.Duration

	armed    bool
	deadline time.Time
	// latched is set after firing and cleared when the combination is
	// released, so one hold fires once.
	latched bool
}

// NewDetector creates a detector for the reset+extra combination.
func NewDetector(reset, extra keymap.KeyCode, hold time.Duration) *Detector {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Detector{reset: reset, extra: extra, hold: hold}
}

// Held reports whether r holds the combination and nothing else.
func (d *Detector) Held(r report.Report) bool {
	a, b := r.Slot(0), r.Slot(1)
	if !(a == d.reset && b == d.extra) && !(a == d.extra && b == d.reset) {
		return false
	}
	for i := 2; i < report.MaxKeys; i++ {
		if r.Slot(i) != 0 {
			return false
		}
	}
	return true
}

// Evaluate feeds a freshly built report. Holding the combination arms the
// deadline; any other report cancels it. It returns true exactly once per
// hold, when now has reached the deadline.
func (d *Detector) Evaluate(r report.Report, now time.Time) bool {
	if !d.Held(r) {
		d.armed = false
		d.latched = false
		return false
	}
	if !d.armed && !d.latched {
		d.armed = true
		d.deadline = now.Add(d.hold)
	}
	return d.Check(now)
}

// Check fires an armed deadline that now has reached, without a new report.
func (d *Detector) Check(now time.Time) bool {
	if !d.armed || now.Before(d.deadline) {
		return false
	}
	d.armed = false
	d.latched = true
	return true
}

// Armed reports whether an unpair is pending.
func (d *Detector) Armed() bool {
	return d.armed
}

// Deadline returns the pending unpair time. It is zero when unarmed.
func (d *Detector) Deadline() time.Time {
	if !d.armed {
		return time.Time{}
	}
	return d.deadline
}
