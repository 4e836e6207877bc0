package domain

import (
	"sync"
	"time"
)

// Clock is the time source for session arithmetic. Every component takes one so
// tests and multi-device simulations can control time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// RealClock reads the wall clock.
type RealClock struct{}

// NewRealClock returns the wall clock.
func NewRealClock() *RealClock {
	return &RealClock{}
}

// Now returns time.Now.
func (*RealClock) Now() time.Time {
	return time.Now()
}

// SimulatedClock is a manually driven clock. Safe for concurrent use.
type SimulatedClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewSimulatedClock starts a simulated clock at start.
func NewSimulatedClock(start time.Time) *SimulatedClock {
	return &SimulatedClock{now: start}
}

func (c *SimulatedClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the clock forward by d. Negative values move it back.
func (c *SimulatedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the clock to t.
func (c *SimulatedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Skewed returns a clock that reads base shifted by skew, modelling a second
// device whose wall clock disagrees with ours.
func Skewed(base Clock, skew time.Duration) Clock {
	return ClockFunc(func() time.Time { return base.Now().Add(skew) })
}
