package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultDuration is the length of a practice session when none is given.
const DefaultDuration = 30 * time.Minute

// Countdown is the session timer. It ticks once a second and fires once
// when it reaches zero.
type Countdown struct {
	mu        sync.Mutex
	total     time.Duration
	remaining time.Duration
	interval  time.Duration
}

// NewCountdown returns a stopped countdown of d. A non-positive d uses
// DefaultDuration.
func NewCountdown(d time.Duration) *Countdown {
	if d <= 0 {
		d = DefaultDuration
	}
	return &Countdown{total: d, remaining: d, interval: time.Second}
}

// Total returns the time limit.
func (c *Countdown) Total() time.Duration { return c.total }

// Remaining returns the time left.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Elapsed returns the time used so far.
func (c *Countdown) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total - c.remaining
}

// Expired reports whether the countdown reached zero.
func (c *Countdown) Expired() bool {
	return c.Remaining() <= 0
}

// Tick removes one second and reports whether this tick expired the
// countdown. Ticks after expiry return false.
func (c *Countdown) Tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining <= 0 {
		return false
	}
	c.remaining -= time.Second
	if c.remaining <= 0 {
		c.remaining = 0
		return true
	}
	return false
}

// Run ticks until expiry or until ctx is done. onExpire runs on the Run
// goroutine when the countdown expires.
func (c *Countdown) Run(ctx context.Context, onExpire func()) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if c.Tick() {
				if onExpire != nil {
					onExpire()
				}
				return
			}
		}
	}
}

// FormatRemaining renders d as mm:ss, or h:mm:ss past an hour.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d.Round(time.Second) / time.Second)
	h, m, sec := s/3600, (s%3600)/60, s%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}
