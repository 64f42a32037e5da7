package tui

import "time"

// timerState tracks the current state of the countdown.
type timerState int

const (
	timerStopped timerState = iota
	timerRunning
	timerPaused
)

// countdown measures one focus or break phase. Paused time does not count
// toward the phase.
type countdown struct {
	now func() time.Time

	state     timerState
	total     time.Duration
	startTime time.Time
	pausedAt  time.Time
	pauseGap  time.Duration
}

func newCountdown(now func() time.Time) countdown {
	if now == nil {
		now = time.Now
	}
	return countdown{now: now}
}

func (c *countdown) start(d time.Duration) {
	c.state = timerRunning
	c.total = d
	c.startTime = c.now()
	c.pauseGap = 0
}

func (c *countdown) stop() {
	c.state = timerStopped
	c.pauseGap = 0
}

func (c *countdown) pause() {
	if c.state != timerRunning {
		return
	}
	c.state = timerPaused
	c.pausedAt = c.now()
}

func (c *countdown) resume() {
	if c.state != timerPaused {
		return
	}
	c.pauseGap += c.now().Sub(c.pausedAt)
	c.state = timerRunning
}

func (c *countdown) toggle() {
	switch c.state {
	case timerRunning:
		c.pause()
	case timerPaused:
		c.resume()
	}
}

func (c countdown) running() bool {
	return c.state != timerStopped
}

func (c countdown) paused() bool {
	return c.state == timerPaused
}

func (c countdown) elapsed() time.Duration {
	switch c.state {
	case timerStopped:
		return 0
	case timerPaused:
		return c.pausedAt.Sub(c.startTime) - c.pauseGap
	}
	return c.now().Sub(c.startTime) - c.pauseGap
}

func (c countdown) remaining() time.Duration {
	if c.state == timerStopped {
		return c.total
	}
	return max(c.total-c.elapsed(), 0)
}

// done reports whether a running phase has used up its time.
func (c countdown) done() bool {
	return c.state == timerRunning && c.elapsed() >= c.total
}

// fraction is the share of the phase already elapsed, in [0,1].
func (c countdown) fraction() float64 {
	if c.total <= 0 {
		return 0
	}
	f := float64(c.elapsed()) / float64(c.total)
	return max(0, min(f, 1))
}
