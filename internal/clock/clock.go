// Package clock maps wall-clock time onto frame indices.
package clock

import (
	"math"
	"sync"
	"time"
)

// Clock is the pacing authority for playback. Its start time is set exactly once.
type Clock struct {
	fps float64
	now func() time.Time

	once  sync.Once
	start time.Time
}

// New returns a clock for fps that reads the system time.
func New(fps float64) *Clock {
	return NewWithNow(fps, time.Now)
}

// NewWithNow returns a clock that reads time from now.
func NewWithNow(fps float64, now func() time.Time) *Clock {
	return &Clock{fps: fps, now: now}
}

// FPS is the source frame rate.
func (c *Clock) FPS() float64 { return c.fps }

// Now reads the clock's time source.
func (c *Clock) Now() time.Time { return c.now() }

// Start marks the beginning of playback. Later calls have no effect.
func (c *Clock) Start() time.Time {
	c.once.Do(func() { c.start = c.now() })
	return c.start
}

// Target is the index of the frame that should be on screen at t: floor((t - start) * fps).
func (c *Clock) Target(t time.Time) int {
	elapsed := t.Sub(c.start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return int(math.Floor(elapsed * c.fps))
}

// At is the time frame i becomes due: start + i/fps.
func (c *Clock) At(i int) time.Time {
	return c.start.Add(time.Duration(float64(i) / c.fps * float64(time.Second)))
}

// Deadline is the time frame i should give way to frame i+1: start + (i+1)/fps.
func (c *Clock) Deadline(i int) time.Time {
	return c.At(i + 1)
}
