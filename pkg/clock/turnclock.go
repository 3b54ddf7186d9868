package clock

import (
	"sync"
	"time"
)

// DefaultTurnTimeout is how long a side has to move
const DefaultTurnTimeout = 60 * time.Second

// TurnClock is a single cancellable countdown for the side to move.
//
// Every Arm starts a new generation. The expiry callback receives the
// generation it was armed with; the owner must check Current under its own
// lock before acting on it, which is what makes a move and an expiry that
// race resolve to exactly one outcome.
type TurnClock struct {
	sched    Scheduler
	onExpire func(gen uint64)

	mu       sync.Mutex
	timer    Timer
	gen      uint64
	armed    bool
	deadline time.Time
}

// NewTurnClock creates a stopped clock
func NewTurnClock(sched Scheduler, onExpire func(gen uint64)) *TurnClock {
	return &TurnClock{
		sched:    sched,
		onExpire: onExpire,
	}
}

// Arm cancels any pending countdown and starts a new one of length d.
func (c *TurnClock) Arm(d time.Duration) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}

	c.gen++
	gen := c.gen
	c.armed = true
	c.deadline = c.sched.Now().Add(d)
	c.timer = c.sched.AfterFunc(d, func() { c.fire(gen) })

	return gen
}

// Cancel stops the countdown. Safe to call repeatedly and after expiry.
func (c *TurnClock) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	if c.armed {
		c.gen++
		c.armed = false
	}
}

// Current reports whether gen is still the live arming
func (c *TurnClock) Current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.armed && c.gen == gen
}

// Deadline returns the absolute expiry of the live arming
func (c *TurnClock) Deadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.deadline
}

// Remaining returns the time left before expiry, zero when stopped or elapsed.
func (c *TurnClock) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.armed {
		return 0
	}

	left := c.deadline.Sub(c.sched.Now())
	if left < 0 {
		return 0
	}

	return left
}

// Elapsed reports whether the live arming has passed its deadline, even if
// the timer callback has not run yet.
func (c *TurnClock) Elapsed() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.armed {
		return 0, false
	}

	return c.gen, !c.sched.Now().Before(c.deadline)
}

func (c *TurnClock) fire(gen uint64) {
	c.mu.Lock()
	live := c.armed && c.gen == gen
	c.mu.Unlock()

	if !live || c.onExpire == nil {
		return
	}

	c.onExpire(gen)
}
