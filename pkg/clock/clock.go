// Package clock abstracts wall time and delayed callbacks so timer-driven
// components can run against real time in production and a manually advanced
// clock in tests.
package clock

import "time"

// Timer is a handle to a callback armed with Clock.AfterFunc.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer (false if it already fired or was stopped).
	Stop() bool
}

// Clock provides the current time and delayed execution.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// New returns a Clock backed by the time package. Callbacks run on their own
// goroutine, exactly like time.AfterFunc.
func New() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
