// Package pid provides a discrete PID controller.
//
// The integral term is clamped to avoid windup and the derivative term
// is computed on the measured signal, so changing the target does not
// produce a derivative kick and encoder noise enters the loop only
// through the measurement path.
//
// Not safe for concurrent use.
package pid

import (
	"math"
	"time"
)

// DefaultIntegralLimit bounds the integral contribution when
// IntegralLimit is not set.
const DefaultIntegralLimit = 1.0

// Controller is a PID controller.
type Controller struct {
	Kp, Ki, Kd float64

	// IntegralLimit bounds the magnitude of the integral contribution.
	IntegralLimit float64
	// OutputMin and OutputMax bound the output, unbounded if both are 0.
	OutputMin, OutputMax float64

	integral     float64
	prevMeasured float64
	havePrev     bool
}

// New creates a Controller with gains.
func New(kp, ki, kd float64) *Controller {
	return &Controller{Kp: kp, Ki: ki, Kd: kd, IntegralLimit: DefaultIntegralLimit}
}

// SetGains updates gains without resetting state.
func (c *Controller) SetGains(kp, ki, kd float64) {
	c.Kp, c.Ki, c.Kd = kp, ki, kd
}

// Reset clears the accumulated integral and derivative history.
func (c *Controller) Reset() {
	c.integral, c.prevMeasured, c.havePrev = 0, 0, false
}

// Integral returns the current integral contribution.
func (c *Controller) Integral() float64 {
	return c.integral
}

// Compute returns the correction driving measured towards target.
// dt is the time elapsed since the previous call; when it's not
// positive only the proportional term is applied.
func (c *Controller) Compute(target, measured float64, dt time.Duration) float64 {
	err := target - measured
	out := c.Kp * err
	if secs := dt.Seconds(); secs > 0 {
		limit := c.IntegralLimit
		if limit <= 0 {
			limit = DefaultIntegralLimit
		}
		c.integral = clamp(c.integral+c.Ki*err*secs, -limit, limit)
		if c.havePrev {
			out -= c.Kd * (measured - c.prevMeasured) / secs
		}
		out += c.integral
	}
	c.prevMeasured, c.havePrev = measured, true
	if c.OutputMin != 0 || c.OutputMax != 0 {
		out = clamp(out, c.OutputMin, c.OutputMax)
	}
	return out
}

func clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(max, v))
}
