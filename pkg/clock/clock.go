// Package clock supplies the time sources rigcart injects wherever "now"
// matters: the system clock, a fixed instant for tests, and a simulated clock
// that can be advanced to exercise offer expiry.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }

// Fixed always reports the same instant.
type Fixed time.Time

// Now returns the fixed instant.
func (f Fixed) Now() time.Time { return time.Time(f) }

// Simulated is a wall clock shifted by an adjustable offset, optionally
// anchored to a base instant instead of the real time.
type Simulated struct {
	mu     sync.RWMutex
	base   time.Time
	offset time.Duration
}

// NewSimulated creates a simulated clock with no offset that follows the wall clock.
func NewSimulated() *Simulated {
	return &Simulated{}
}

// NewSimulatedAt creates a simulated clock frozen at base until advanced.
func NewSimulatedAt(base time.Time) *Simulated {
	return &Simulated{base: base}
}

// Now returns the current simulated time.
func (c *Simulated) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.base.IsZero() {
		return time.Now().Add(c.offset)
	}
	return c.base.Add(c.offset)
}

// Advance moves the simulated clock forward by the given duration.
func (c *Simulated) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}
