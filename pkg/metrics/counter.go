package metrics

import "sync/atomic"

// Counter is a monotonically increasing int64 cell. The zero value is ready
// to use. All methods are safe for concurrent use.
type Counter struct {
	value atomic.Int64
}

// Inc increments the counter by one.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Add increments the counter by n.
func (c *Counter) Add(n int64) {
	c.value.Add(n)
}

// Value returns the current count.
func (c *Counter) Value() int64 {
	return c.value.Load()
}

// Reset returns the current count and resets the cell to zero. Reporters
// use it to extract deltas between reporting intervals.
func (c *Counter) Reset() int64 {
	return c.value.Swap(0)
}
