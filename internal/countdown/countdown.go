// Package countdown publishes the time remaining until a fixed launch instant.
package countdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Its-donkey/Boostalk/logging"
)

// Expired is the display value once the target instant has passed.
const Expired = "00d 00h 00m 00s"

// ErrAlreadyStarted is returned when Start is called on a mounted countdown.
var ErrAlreadyStarted = errors.New("countdown: already started")

// Format renders a remaining duration as "DDd HHh MMm SSs". Non-positive
// durations render as Expired.
func Format(remaining time.Duration) string {
	if remaining <= 0 {
		return Expired
	}
	ms := remaining.Milliseconds()
	days := ms / (24 * 60 * 60 * 1000)
	hours := (ms / (60 * 60 * 1000)) % 24
	minutes := (ms / (60 * 1000)) % 60
	seconds := (ms / 1000) % 60
	return fmt.Sprintf("%02dd %02dh %02dm %02ds", days, hours, minutes, seconds)
}

// Snapshot describes the countdown at a single instant.
type Snapshot struct {
	Display string    `json:"display"`
	Expired bool      `json:"expired"`
	Target  time.Time `json:"target"`
}

// At computes the snapshot for target as seen at now.
func At(target, now time.Time) Snapshot {
	remaining := target.Sub(now)
	return Snapshot{
		Display: Format(remaining),
		Expired: remaining <= 0,
		Target:  target,
	}
}

// Config controls countdown construction.
type Config struct {
	Target        time.Time
	Interval      time.Duration
	Now           func() time.Time
	TickerFactory TickerFactory
	Logger        *logging.Logger
}

// Countdown owns one repeating timer. Start mounts it, Stop (or cancelling the
// start context) tears it down. A countdown can be mounted once.
type Countdown struct {
	target        time.Time
	interval      time.Duration
	now           func() time.Time
	tickerFactory TickerFactory
	logger        *logging.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	last    string
}

// New builds a Countdown. Interval defaults to one second.
func New(cfg Config) *Countdown {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	factory := cfg.TickerFactory
	if factory == nil {
		factory = DefaultTickerFactory
	}
	return &Countdown{
		target:        cfg.Target,
		interval:      interval,
		now:           now,
		tickerFactory: factory,
		logger:        cfg.Logger,
	}
}

// Snapshot computes the current value without waiting for a tick.
func (c *Countdown) Snapshot() Snapshot {
	return At(c.target, c.now())
}

// Last returns the most recently published display value, or "" before the first tick.
func (c *Countdown) Last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Start mounts the countdown. The returned channel receives the display value
// on every tick; a slow reader only ever sees the latest value. After the
// target passes the channel receives Expired and is closed. It is also closed
// when ctx is cancelled or Stop is called.
func (c *Countdown) Start(ctx context.Context) (<-chan string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil, ErrAlreadyStarted
	}
	c.started = true

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	updates := make(chan string, 1)
	ticker := c.tickerFactory(c.interval)
	go c.run(runCtx, ticker, updates)
	return updates, nil
}

// Stop unmounts the countdown and waits for its goroutine to exit. Safe to
// call more than once and before Start.
func (c *Countdown) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed once the countdown goroutine has exited.
func (c *Countdown) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Countdown) run(ctx context.Context, ticker Ticker, updates chan string) {
	defer close(c.done)
	defer close(updates)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			remaining := c.target.Sub(c.now())
			if remaining <= 0 {
				c.publish(updates, Expired)
				c.logger.Info("countdown", "launch instant reached", map[string]any{
					"target": c.target.Format(time.RFC3339),
				})
				return
			}
			c.publish(updates, Format(remaining))
		}
	}
}

// publish replaces any unread value so readers never fall behind the clock.
func (c *Countdown) publish(updates chan string, value string) {
	for {
		select {
		case updates <- value:
			c.mu.Lock()
			c.last = value
			c.mu.Unlock()
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
	}
}
