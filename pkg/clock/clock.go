// Package clock provides the per-session turn clock and the time source it runs on
package clock

import "time"

// Timer is a pending delayed call
type Timer interface {
	Stop() bool
}

// Scheduler provides time operations that can be replaced in tests
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real implements Scheduler using the system clock
type Real struct{}

// NewReal creates a Real scheduler
func NewReal() Real {
	return Real{}
}

// Now returns the current time
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc calls f in its own goroutine after d
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
