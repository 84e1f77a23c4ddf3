// Package notify implements a single-slot, auto-expiring status message.
//
// A Channel shows at most one Notification at a time. Each Notify replaces
// the current message and restarts the hide timer; only one hide timer is
// ever pending.
//
// Example usage:
//
//	ch := notify.New(page)
//	ch.Notify("Signed up a@x.com for Chess", notify.KindSuccess)
package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultDuration is how long a notification stays visible.
const DefaultDuration = 5 * time.Second

// Kind classifies a notification.
type Kind int

const (
	// KindSuccess reports a completed operation.
	KindSuccess Kind = iota
	// KindError reports a failed operation.
	KindError
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *Kind) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"success"`:
		*k = KindSuccess
	case `"error"`:
		*k = KindError
	default:
		return fmt.Errorf("unknown notification kind %s", data)
	}
	return nil
}

// Notification is a short status message.
type Notification struct {
	Text string `json:"text"`
	Kind Kind   `json:"kind"`
}

// Display renders the notification slot.
type Display interface {
	Show(Notification)
	Hide()
}

// Channel owns the notification slot and its hide timer.
type Channel struct {
	display  Display
	clock    clockwork.Clock
	duration time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	current *Notification
	timer   clockwork.Timer
	// gen identifies the most recent Notify. A timer callback from an
	// earlier generation does nothing.
	gen uint64
}

// Option configures a Channel.
type Option func(*Channel)

// WithClock sets the clock used for the hide timer.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Channel) {
		c.clock = clock
	}
}

// WithDuration sets how long each notification stays visible.
func WithDuration(d time.Duration) Option {
	return func(c *Channel) {
		c.duration = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

// New creates a Channel that renders to display.
func New(display Display, opts ...Option) *Channel {
	c := &Channel{
		display:  display,
		clock:    clockwork.NewRealClock(),
		duration: DefaultDuration,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notify replaces the current notification and restarts the hide timer.
func (c *Channel) Notify(text string, kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	c.gen++
	gen := c.gen

	n := Notification{Text: text, Kind: kind}
	c.current = &n
	c.display.Show(n)

	c.timer = c.clock.AfterFunc(c.duration, func() {
		c.expire(gen)
	})

	c.logger.Debug("notification shown", "kind", kind.String(), "text", text)
}

// Hide clears the current notification and its pending timer.
func (c *Channel) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hideLocked()
}

// Current returns the visible notification, if any.
func (c *Channel) Current() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return Notification{}, false
	}
	return *c.current, true
}

// Pending reports whether a hide timer is scheduled.
func (c *Channel) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

func (c *Channel) expire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}
	c.hideLocked()
}

func (c *Channel) hideLocked() {
	c.stopTimerLocked()
	c.gen++
	c.current = nil
	c.display.Hide()
}

func (c *Channel) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
