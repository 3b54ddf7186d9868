// Package clocktest provides a manually driven clock.Scheduler for tests
package clocktest

import (
	"sort"
	"sync"
	"time"

	"github.com/tecu23/duel-server/pkg/clock"
)

// Fake is a Scheduler whose time only moves on Advance.
// Due callbacks run synchronously inside Advance, in deadline order.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

// Ensure Fake implements Scheduler
var _ clock.Scheduler = (*Fake)(nil)

type fakeTimer struct {
	owner   *Fake
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

// NewFake creates a Fake set to the given time
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

// Now returns the fake current time
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

// AfterFunc registers fn to run once the fake time reaches now+d
func (f *Fake) AfterFunc(d time.Duration, fn func()) clock.Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTimer{owner: f, at: f.now.Add(d), fn: fn}
	f.timers = append(f.timers, t)

	return t
}

// Advance moves the clock forward and runs every callback that became due
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now

	var due []*fakeTimer
	kept := f.timers[:0]
	for _, t := range f.timers {
		switch {
		case t.stopped || t.fired:
		case !t.at.After(now):
			due = append(due, t)
		default:
			kept = append(kept, t)
		}
	}
	f.timers = kept
	f.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })

	for _, t := range due {
		f.mu.Lock()
		run := !t.stopped
		t.fired = true
		f.mu.Unlock()

		if run {
			t.fn()
		}
	}
}

// Pending returns the number of timers that are neither stopped nor fired
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, t := range f.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}

	return n
}

func (t *fakeTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true

	return true
}
