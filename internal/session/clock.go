package session

import (
	"fmt"
	"sync"
	"time"
)

// Clock counts exam time down in whole one-second units and fires the
// forced-submit callback exactly once when it reaches zero. Each tick
// decrements by exactly one unit regardless of wall-clock drift, so a
// suspended process never burns more than one unit per delivered tick.
type Clock struct {
	mu        sync.Mutex
	remaining int
	running   bool
	expired   bool
	fired     bool
	finished  bool

	interval time.Duration
	onExpire func()
	stop     chan struct{}
}

// NewClock creates a stopped clock. onExpire may be nil; interval <= 0
// defaults to one second.
func NewClock(interval time.Duration, onExpire func()) *Clock {
	if interval <= 0 {
		interval = time.Second
	}
	return &Clock{interval: interval, onExpire: onExpire}
}

// Start begins ticking from the given number of seconds. Calling Start on
// a running clock is a programmer error and fails with
// ErrClockAlreadyRunning. A clock that has expired or been stopped is
// finished for good and refuses to restart.
func (c *Clock) Start(seconds int) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrClockAlreadyRunning
	}
	if c.finished {
		c.mu.Unlock()
		return ErrClockFinished
	}
	c.remaining = seconds
	c.running = true
	c.stop = make(chan struct{})
	stop := c.stop
	c.mu.Unlock()

	go c.run(stop)
	return nil
}

func (c *Clock) run(stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !c.Tick() {
				return
			}
		}
	}
}

// Tick decrements the remaining time by one unit. It returns false once
// the clock is stopped or expired. At zero the clock transitions to
// expired, emits the forced-submit signal exactly once, and stops; it
// never goes negative and never re-fires.
func (c *Clock) Tick() bool {
	c.mu.Lock()
	if !c.running || c.expired {
		c.mu.Unlock()
		return false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining > 0 {
		c.mu.Unlock()
		return true
	}

	c.expired = true
	c.running = false
	c.finished = true
	fire := !c.fired
	c.fired = true
	onExpire := c.onExpire
	c.mu.Unlock()

	if fire && onExpire != nil {
		onExpire()
	}
	return false
}

// Stop halts ticking. Idempotent; a stopped clock cannot fire and cannot
// be restarted.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.running = false
	c.finished = true
}

// Remaining returns the seconds left.
func (c *Clock) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Running reports whether the clock is ticking.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Expired reports whether the clock reached zero.
func (c *Clock) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// RemainingFormatted renders the remaining time as MM:SS (or H:MM:SS past
// one hour). Presentation helper only.
func (c *Clock) RemainingFormatted() string {
	r := c.Remaining()
	h := r / 3600
	m := r % 3600 / 60
	s := r % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
