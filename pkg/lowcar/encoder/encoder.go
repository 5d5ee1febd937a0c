// Package encoder provides position feedback for actuators.
package encoder

import (
	"sync/atomic"
	"time"
)

// Reader reads the cumulative encoder position in ticks.
// Read must not block and is safe to call at any rate.
type Reader interface {
	Read() int32
}

// ReadFunc is the func form of Reader.
type ReadFunc func() int32

// Read implements Reader.
func (f ReadFunc) Read() int32 { return f() }

// Counter is a Reader fed by a pulse counting producer, which usually
// runs in interrupt context, so updates are atomic.
type Counter struct {
	ticks int32
}

// Add adds delta ticks.
func (c *Counter) Add(delta int32) {
	atomic.AddInt32(&c.ticks, delta)
}

// Set overrides the position.
func (c *Counter) Set(ticks int32) {
	atomic.StoreInt32(&c.ticks, ticks)
}

// Read implements Reader.
func (c *Counter) Read() int32 {
	return atomic.LoadInt32(&c.ticks)
}

// Rate tracks successive readings and derives ticks per second.
type Rate struct {
	last  int32
	valid bool
}

// Reset forgets the previous reading; the next Update reports 0.
func (r *Rate) Reset() {
	r.valid = false
}

// Update records pos and returns the rate since the previous reading.
// Position wraps around int32 naturally.
func (r *Rate) Update(pos int32, dt time.Duration) float64 {
	prev, valid := r.last, r.valid
	r.last, r.valid = pos, true
	secs := dt.Seconds()
	if !valid || secs <= 0 {
		return 0
	}
	return float64(pos-prev) / secs
}
