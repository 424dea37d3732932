// Package monitoring holds the error reporter shared by the simulation and
// its sinks. The process wide reporter is installed once with Init.
package monitoring

import (
	"sync/atomic"
	"time"
)

// Monitor reports errors and panics to an external service.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// Recover reports a recovered panic value.
	Recover(r any)
	Flush(timeout time.Duration)
}

// NopMonitor discards everything.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover(any)                               {}
func (NopMonitor) Flush(time.Duration)                       {}

type holder struct{ m Monitor }

var current atomic.Pointer[holder]

func init() { current.Store(&holder{NopMonitor{}}) }

// Init installs m as the process wide monitor. A nil m is ignored.
func Init(m Monitor) {
	if m != nil {
		current.Store(&holder{m})
	}
}

// Current returns the installed monitor.
func Current() Monitor { return current.Load().m }

// CaptureException reports err with optional tags.
func CaptureException(err error, tags map[string]string) {
	Current().CaptureException(err, tags)
}

// Recover reports a panic of the calling goroutine and panics again. It only
// works when deferred directly:
//
//	defer monitoring.Recover()
func Recover() {
	if r := recover(); r != nil {
		m := Current()
		m.Recover(r)
		m.Flush(2 * time.Second)
		panic(r)
	}
}

// Flush waits up to d for buffered reports to be sent.
func Flush(d time.Duration) { Current().Flush(d) }
