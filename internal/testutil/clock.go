package testutil

import (
	"sync"
	"time"

	"pagesync/internal/cms"
)

// FixedClock is a cms.Clock that returns a programmable time and advances
// by step on every call, so generated media names are deterministic but
// still unique within a test.
type FixedClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

var _ cms.Clock = (*FixedClock)(nil)

// NewFixedClock creates a clock starting at now, advancing by step per call.
func NewFixedClock(now time.Time, step time.Duration) *FixedClock {
	return &FixedClock{now: now, step: step}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}
