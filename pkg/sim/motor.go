// Package sim simulates the hardware lowcar devices are bound to.
package sim

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/robotalks/lowcar/pkg/lowcar/devices/polarbear"
)

// Motor simulates a DC motor behind a dual-input driver with a
// quadrature encoder. Its speed follows the signed PWM level with a
// first-order response.
type Motor struct {
	conf  MotorConfig
	clock clock.Clock

	lock     sync.Mutex
	levels   [3]uint8
	speed    float64 // ticks/s
	position float64 // ticks
	last     time.Time
	fault    error
}

// NewMotor creates a Motor at rest.
func NewMotor(conf MotorConfig, clk clock.Clock) *Motor {
	if clk == nil {
		clk = clock.New()
	}
	return &Motor{conf: conf, clock: clk, last: clk.Now()}
}

// SetPWM implements polarbear.PWMDriver.
func (m *Motor) SetPWM(channel int, level uint8) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.fault != nil {
		return m.fault
	}
	if channel != polarbear.PWMChannel1 && channel != polarbear.PWMChannel2 {
		return fmt.Errorf("invalid PWM channel %d", channel)
	}
	m.advance()
	m.levels[channel] = level
	return nil
}

// Read implements encoder.Reader.
func (m *Motor) Read() int32 {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.advance()
	return int32(math.Round(m.position))
}

// Speed returns the current speed in ticks/s.
func (m *Motor) Speed() float64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.advance()
	return m.speed
}

// Level returns the signed PWM level driving the motor.
func (m *Motor) Level() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.level()
}

// SetFault makes SetPWM fail with err, nil clears it.
func (m *Motor) SetFault(err error) {
	m.lock.Lock()
	m.fault = err
	m.lock.Unlock()
}

func (m *Motor) level() int {
	return int(m.levels[polarbear.PWMChannel1]) - int(m.levels[polarbear.PWMChannel2])
}

// advance integrates the motion up to now. The target speed is
// constant between PWM changes, so the response is exact.
func (m *Motor) advance() {
	now := m.clock.Now()
	dt := now.Sub(m.last).Seconds()
	m.last = now
	if dt <= 0 {
		return
	}
	target := float64(m.level()) / polarbear.MaxPWM * m.conf.MaxSpeed
	tau := m.conf.TimeConstant.Seconds()
	if tau <= 0 {
		m.speed = target
		m.position += target * dt
		return
	}
	decay := math.Exp(-dt / tau)
	diff := m.speed - target
	m.position += target*dt + diff*tau*(1-decay)
	m.speed = target + diff*decay
}
