package activity

import (
	"sync/atomic"
	"time"
)

// InputClock holds the instant of the most recent input event. It is written
// by the input listener and read by the accounting machine without locking.
type InputClock struct {
	last atomic.Pointer[time.Time]
}

// Touch records an input at t. Older instants are ignored so the clock never
// goes backwards.
func (c *InputClock) Touch(t time.Time) {
	for {
		cur := c.last.Load()
		if cur != nil && !t.After(*cur) {
			return
		}
		if c.last.CompareAndSwap(cur, &t) {
			return
		}
	}
}

// Last returns the most recent input instant and whether any input was seen
func (c *InputClock) Last() (time.Time, bool) {
	cur := c.last.Load()
	if cur == nil {
		return time.Time{}, false
	}
	return *cur, true
}
