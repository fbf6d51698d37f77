// Package possession tracks exclusive ball-possession intervals for the two
// teams of a fixture and derives a live percentage split.
//
// The clock is operated manually: Start marks a side as holding the ball,
// Stop closes the interval and credits its elapsed wall-clock time to that
// side. Only stopped intervals count towards the totals, and there is no
// minimum interval length: a start immediately followed by a stop still
// credits whatever time elapsed.
package possession

import (
	"sync"
	"time"

	"github.com/okian/matchday/internal/domain/model"
)

const evenSplit = 50.0

// Option applies a configuration option to the Clock.
type Option func(*Clock)

// WithNow replaces the wall clock, mainly for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		if now != nil {
			c.now = now
		}
	}
}

// Clock accumulates possession time per side. At most one side is active.
type Clock struct {
	mu      sync.Mutex
	now     func() time.Time
	home    time.Duration
	away    time.Duration
	active  model.Side
	startAt time.Time
}

// Totals is a point-in-time view of the clock.
type Totals struct {
	HomeSeconds    float64    `json:"homeSeconds"`
	AwaySeconds    float64    `json:"awaySeconds"`
	Active         model.Side `json:"active,omitempty"`
	HomePercentage float64    `json:"homePercentage"`
	AwayPercentage float64    `json:"awayPercentage"`
}

// New creates an idle clock.
func New(opts ...Option) *Clock {
	c := &Clock{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start marks side as holding the ball. It is rejected when a side is
// already active or side is not home/away.
func (c *Clock) Start(side model.Side) bool {
	if !side.Valid() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != "" {
		return false
	}
	c.active = side
	c.startAt = c.now()
	return true
}

// Stop closes the running interval and credits it to the active side.
// It is a no-op when no side is active.
func (c *Clock) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == "" {
		return false
	}
	elapsed := c.now().Sub(c.startAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if c.active == model.Home {
		c.home += elapsed
	} else {
		c.away += elapsed
	}
	c.active = ""
	c.startAt = time.Time{}
	return true
}

// Active returns the side holding the ball, or "" when none does.
func (c *Clock) Active() model.Side {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Percentages returns the home/away split of stopped intervals.
// The away share is derived as 100 - home so the pair always sums to 100.
func (c *Clock) Percentages() (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return split(c.home, c.away)
}

// Totals returns accumulated seconds, the active side and the split.
func (c *Clock) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()

	home, away := split(c.home, c.away)
	return Totals{
		HomeSeconds:    c.home.Seconds(),
		AwaySeconds:    c.away.Seconds(),
		Active:         c.active,
		HomePercentage: home,
		AwayPercentage: away,
	}
}

// Reset clears both accumulators and any running interval.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.home, c.away = 0, 0
	c.active = ""
	c.startAt = time.Time{}
}

func split(home, away time.Duration) (float64, float64) {
	total := home + away
	if total <= 0 {
		return evenSplit, evenSplit
	}
	h := float64(home) / float64(total) * 100
	return h, 100 - h
}
