// Package testutil provides deterministic stand-ins for time and IDs.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a Clock reports.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Clock is a thread-safe logical clock that advances one second per reading.
//
// Unlike time.Now, two Clocks created the same way produce the same
// sequence, so timestamps in stored runs are reproducible.
type Clock struct {
	mu  sync.Mutex
	seq int64
}

// NewClock creates a clock whose first Now returns Epoch.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns Epoch plus one second per previous call.
// Monotonic: never returns the same instant twice.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.seq) * time.Second)
	c.seq++
	return t
}

// Calls returns how many times Now has been called.
func (c *Clock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock so the next Now returns Epoch again.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
