package testfixtures

import (
	"sync"
	"time"

	"github.com/example/shift-scheduler/internal/calendar"
)

// Clock is a manually driven time source. Services receive NowFunc, and the
// shift and rule factories also take their "today" zone from Location.
type Clock struct {
	mu       sync.Mutex
	current  time.Time
	location *time.Location
}

// NewClock starts at start, or at ReferenceTime when start is zero. Dates are
// resolved in UTC until SetLocation says otherwise.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start, location: time.UTC}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc falls back to time.Now on a nil clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Location() *time.Location {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.location
}

func (c *Clock) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	c.mu.Lock()
	c.location = loc
	c.mu.Unlock()
}

// Today is the calendar date of Now in the clock location.
func (c *Clock) Today() calendar.Date {
	c.mu.Lock()
	defer c.mu.Unlock()
	return calendar.Today(c.current, c.location)
}

func (c *Clock) Set(t time.Time) {
	c.move(func(time.Time) time.Time { return t })
}

// SetDate jumps to the wall clock time at on day, in the clock location.
func (c *Clock) SetDate(day calendar.Date, at calendar.TimeOfDay) time.Time {
	loc := c.Location()
	return c.move(func(time.Time) time.Time { return day.Time(loc).Add(at.Offset()) })
}

func (c *Clock) Advance(d time.Duration) time.Time {
	return c.move(func(t time.Time) time.Time { return t.Add(d) })
}

// AdvanceDays keeps the wall clock time across DST changes.
func (c *Clock) AdvanceDays(days int) time.Time {
	return c.move(func(t time.Time) time.Time { return t.AddDate(0, 0, days) })
}

func (c *Clock) move(step func(time.Time) time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = step(c.current)
	return c.current
}
