package engine

// Clock accumulates elapsed simulation time and fires once the income
// interval is reached. When it fires the accumulator resets to zero: any
// excess beyond the interval is forfeited, and a single Advance never fires
// more than once however many intervals it spans.
type Clock struct {
	interval float64 // seconds
	elapsed  float64
}

// NewClock creates a clock firing every interval seconds.
func NewClock(interval float64) *Clock {
	return &Clock{interval: interval}
}

// Advance adds dt seconds and reports whether the interval was reached.
// Non-positive (and NaN) steps are ignored.
func (c *Clock) Advance(dt float64) bool {
	if !(dt > 0) {
		return false
	}
	c.elapsed += dt
	if c.elapsed >= c.interval {
		c.elapsed = 0
		return true
	}
	return false
}

// Elapsed returns the time accumulated toward the next payout.
func (c *Clock) Elapsed() float64 {
	return c.elapsed
}

// Interval returns the payout interval in seconds.
func (c *Clock) Interval() float64 {
	return c.interval
}

// Remaining returns the seconds left until the next payout.
func (c *Clock) Remaining() float64 {
	return c.interval - c.elapsed
}

// Reset zeroes the accumulator.
func (c *Clock) Reset() {
	c.elapsed = 0
}
