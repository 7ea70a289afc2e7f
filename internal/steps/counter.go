// Package steps turns cumulative pedometer readings into per-session stats.
package steps

import (
	"fmt"
	"sync"
	"time"
)

// DefaultStrideMetres is the distance credited per step.
const DefaultStrideMetres = 0.8

// Stats is a snapshot of the current session.
type Stats struct {
	Steps          int
	DistanceMetres float64
	Elapsed        time.Duration
	Goal           int
	GoalReached    bool
}

// Update is the result of observing one reading.
type Update struct {
	Stats
	// BaselineChanged is set when the reading captured or re-captured the baseline.
	BaselineChanged bool
	Baseline        int
	// GoalJustReached is set on the one reading that first meets the goal this session.
	GoalJustReached bool
}

// Counter tracks a step session against a cumulative sensor count.
// The sensor count may drop back (device reboot); the session then
// re-baselines at the new reading instead of going negative.
type Counter struct {
	mu sync.Mutex

	stride      float64
	baseline    int
	hasBaseline bool
	last        int
	hasReading  bool
	startedAt   time.Time

	goal         int
	goalNotified bool
}

// NewCounter starts a session at now. A baseline of 0 or less means the
// first reading becomes the baseline.
func NewCounter(strideMetres float64, baseline int, now time.Time) *Counter {
	if strideMetres <= 0 {
		strideMetres = DefaultStrideMetres
	}
	c := &Counter{
		stride:    strideMetres,
		startedAt: now,
	}
	if baseline > 0 {
		c.baseline = baseline
		c.hasBaseline = true
	}
	return c
}

// Observe records a cumulative reading taken at now.
func (c *Counter) Observe(cumulative int, now time.Time) Update {
	c.mu.Lock()
	defer c.mu.Unlock()

	var u Update
	switch {
	case cumulative < 0:
		// not a valid count; keep the session as is
	case !c.hasBaseline:
		c.baseline = cumulative
		c.hasBaseline = true
		u.BaselineChanged = true
	case cumulative < c.baseline || (c.hasReading && cumulative < c.last):
		c.baseline = cumulative
		u.BaselineChanged = true
	}
	if cumulative >= 0 {
		c.last = cumulative
		c.hasReading = true
	}

	u.Stats = c.statsLocked(now)
	u.Baseline = c.baseline
	if c.goal > 0 && !c.goalNotified && u.Steps >= c.goal {
		c.goalNotified = true
		u.GoalJustReached = true
	}
	u.GoalReached = c.goalNotified
	return u
}

// SetGoal stores the session goal. It returns true when the current step
// count already meets it, which counts as the session's one notification.
// A goal of 0 or less disables goal tracking.
func (c *Counter) SetGoal(goal int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if goal < 0 {
		goal = 0
	}
	c.goal = goal
	if c.goal == 0 || c.goalNotified {
		return false
	}
	if c.stepsLocked() >= c.goal {
		c.goalNotified = true
		return true
	}
	return false
}

// Reset starts a new session at now. It returns the new baseline, which is
// the last reading, or 0 if there has been none (the next reading is then
// captured).
func (c *Counter) Reset(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startedAt = now
	c.goalNotified = false
	if c.hasReading {
		c.baseline = c.last
		c.hasBaseline = true
	} else {
		c.baseline = 0
		c.hasBaseline = false
	}
	return c.baseline
}

// Stats returns the session snapshot at now.
func (c *Counter) Stats(now time.Time) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.statsLocked(now)
	s.GoalReached = c.goalNotified
	return s
}

func (c *Counter) statsLocked(now time.Time) Stats {
	steps := c.stepsLocked()
	elapsed := now.Sub(c.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return Stats{
		Steps:          steps,
		DistanceMetres: float64(steps) * c.stride,
		Elapsed:        elapsed,
		Goal:           c.goal,
	}
}

func (c *Counter) stepsLocked() int {
	if !c.hasReading || !c.hasBaseline {
		return 0
	}
	d := c.last - c.baseline
	if d < 0 {
		return 0
	}
	return d
}

// FormatElapsed renders d as MM:SS. Minutes keep counting past 59.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// FormatDistance renders metres with two decimals, e.g. "4.00 meters".
func FormatDistance(m float64) string {
	return fmt.Sprintf("%.2f meters", m)
}
