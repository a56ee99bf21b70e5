package power

import (
	"time"

	"github.com/chaz8081/hog-remote/internal/report"
)

// Mode is the scheduler's lifecycle state.
type Mode int

const (
	// Active delivers reports and counts down to sleep.
	Active Mode = iota
	// Asleep is terminal: the next thing the board does is boot again.
	Asleep
)

func (m Mode) String() string {
	switch m {
	case Active:
		return "active"
	case Asleep:
		return "asleep"
	default:
		return "unknown"
	}
}

// State is everything the scheduler carries from tick to tick within one
// boot epoch.
type State struct {
	Mode          Mode
	Boot          time.Time
	SleepDeadline time.Time
	Sleep         time.Time // set on entering Asleep

	LastReport report.Report
	Reports    uint64
	Unpairs    int
}

// Uptime returns how long the epoch lasted, or has lasted until now.
func (st State) Uptime(now time.Time) time.Duration {
	if st.Mode == Asleep {
		return st.Sleep.Sub(st.Boot)
	}
	return now.Sub(st.Boot)
}
