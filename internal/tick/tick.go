// Package tick provides the time base used for timeout and period
// measurement. Ticks are a free-running unsigned counter; elapsed time is
// computed with wrapping subtraction, so a counter rollover mid-interval is
// tolerated as long as the true elapsed time fits in the counter range.
package tick

import "sync/atomic"

// Ticks is one unit of the monotonic time base. The unit's real duration is
// whatever the application's tick source advances at.
type Ticks uint32

// Source yields the current tick. Now is called from the poll goroutine
// while the underlying counter may advance elsewhere, so implementations
// must be safe for that pairing.
type Source interface {
	Now() Ticks
}

// Func adapts a plain accessor function to a Source.
type Func func() Ticks

func (f Func) Now() Ticks { return f() }

// Counter is a Source backed by an externally advanced atomic counter,
// typically incremented by a timer goroutine standing in for a tick
// interrupt.
type Counter struct {
	c *atomic.Uint32
}

// NewCounter wraps c. The caller keeps ownership and advances it.
func NewCounter(c *atomic.Uint32) Counter { return Counter{c: c} }

func (s Counter) Now() Ticks { return Ticks(s.c.Load()) }

type zero struct{}

func (zero) Now() Ticks { return 0 }

// Zero is the degenerate source used when no time base is configured: time
// never advances, so timeouts and periods never elapse.
var Zero Source = zero{}

// OrZero returns s, or Zero when s is nil.
func OrZero(s Source) Source {
	if s == nil {
		return Zero
	}
	return s
}
