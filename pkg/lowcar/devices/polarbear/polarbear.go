// Package polarbear implements the PolarBear dual-output motor driver.
package polarbear

import (
	"fmt"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"

	"github.com/robotalks/lowcar/pkg/control/pid"
	"github.com/robotalks/lowcar/pkg/lowcar/device"
	"github.com/robotalks/lowcar/pkg/lowcar/encoder"
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
)

// MaxPWM is the output level at full duty cycle.
const MaxPWM = 255

// PWM channels of the two motor driver inputs.
const (
	PWMChannel1 = 1
	PWMChannel2 = 2
)

// PWMDriver writes PWM levels to the motor driver inputs.
type PWMDriver interface {
	SetPWM(channel int, level uint8) error
}

// Hardware is what PolarBear drives and senses.
type Hardware struct {
	PWM     PWMDriver
	Encoder encoder.Reader // optional in OpenLoop mode
	Clock   clock.Clock    // defaults to the wall clock
}

// PolarBear turns a commanded duty cycle into two ramp-limited,
// deadband-filtered PWM outputs.
//
// Driving forward raises output 1 and holds output 2 at 0, driving
// backward does the opposite; both at 0 is neutral.
type PolarBear struct {
	device.Base

	hw   Hardware
	pid  *pid.Controller
	rate encoder.Rate

	pwmInput     float64
	driveMode    DriveMode
	motorEnabled bool
	deadBand     float64
	dpwmDt       float64
	maxSpeed     float64
	currpwm1     int
	currpwm2     int
	tickDivider  int
	delayMod     int

	encPos   int32
	encVel   float64
	lastTick time.Time
}

// New creates a PolarBear in the Disabled state.
func New(uid msgs.UID, conf Config, hw Hardware) (*PolarBear, error) {
	if hw.PWM == nil {
		return nil, fmt.Errorf("polar bear %s: PWM driver required", uid)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("polar bear %s: %w", uid, err)
	}
	if hw.Encoder == nil {
		if conf.DriveMode == PIDVelocity {
			return nil, fmt.Errorf("polar bear %s: encoder required for %s", uid, conf.DriveMode)
		}
		hw.Encoder = encoder.ReadFunc(func() int32 { return 0 })
	}
	if hw.Clock == nil {
		hw.Clock = clock.New()
	}
	p := &PolarBear{
		hw:          hw,
		pid:         pid.New(conf.Kp, conf.Ki, conf.Kd),
		driveMode:   conf.DriveMode,
		deadBand:    conf.DeadBand,
		dpwmDt:      conf.DPWMDt,
		maxSpeed:    conf.MaxSpeed,
		tickDivider: conf.TickDivider,
	}
	if conf.IntegralLimit > 0 {
		p.pid.IntegralLimit = conf.IntegralLimit
	}
	if p.tickDivider < 1 {
		p.tickDivider = 1
	}
	p.Base = device.NewBase(uid, p.newStore())
	p.neutral()
	return p, nil
}

// Enabled indicates the motor is enabled.
func (p *PolarBear) Enabled() bool {
	return p.motorEnabled
}

// Outputs returns the current PWM levels of both outputs.
func (p *PolarBear) Outputs() (pwm1, pwm2 int) {
	return p.currpwm1, p.currpwm2
}

// Target returns the commanded duty cycle.
func (p *PolarBear) Target() float64 {
	return p.pwmInput
}

// Enable implements Device.
func (p *PolarBear) Enable() {
	if p.motorEnabled {
		return
	}
	p.motorEnabled = true
	p.pid.Reset()
	p.delayMod = 0
	p.lastTick = p.hw.Clock.Now()
	p.encPos, p.encVel = p.hw.Encoder.Read(), 0
	p.rate.Reset()
	p.rate.Update(p.encPos, 0)
	glog.V(2).Infof("%s: enabled", p.UID())
}

// Disable implements Device.
func (p *PolarBear) Disable() {
	if p.motorEnabled {
		glog.V(2).Infof("%s: disabled", p.UID())
	}
	p.motorEnabled = false
	p.pwmInput = 0
	p.pid.Reset()
	p.delayMod = 0
	p.neutral()
}

// Action implements Device.
func (p *PolarBear) Action() {
	if !p.motorEnabled {
		if p.currpwm1 != 0 || p.currpwm2 != 0 {
			p.neutral()
		}
		return
	}
	if p.delayMod++; p.delayMod < p.tickDivider {
		return
	}
	p.delayMod = 0
	p.drive(p.pwmInput)
}

// drive reads feedback and moves the outputs one ramp-limited step
// towards target.
func (p *PolarBear) drive(target float64) {
	now := p.hw.Clock.Now()
	dt := now.Sub(p.lastTick)
	p.lastTick = now
	p.encPos = p.hw.Encoder.Read()
	p.encVel = p.rate.Update(p.encPos, dt)

	duty := target
	if p.driveMode == PIDVelocity {
		duty += p.pid.Compute(target, p.encVel/p.maxSpeed, dt)
	}
	duty = math.Max(-1, math.Min(1, duty))

	current := p.currpwm1 - p.currpwm2
	delta := math.Round(duty*MaxPWM) - float64(current)
	if math.Abs(delta) < p.deadBand {
		delta = 0
	}
	step := math.Floor(p.dpwmDt)
	delta = math.Max(-step, math.Min(step, delta))
	if err := p.output(current + int(delta)); err != nil {
		glog.Warningf("%s: PWM output error, disabling: %v", p.UID(), err)
		p.Disable()
	}
}

// output splits a signed level across both outputs.
func (p *PolarBear) output(level int) error {
	if level > MaxPWM {
		level = MaxPWM
	} else if level < -MaxPWM {
		level = -MaxPWM
	}
	pwm1, pwm2 := 0, 0
	if level > 0 {
		pwm1 = level
	} else {
		pwm2 = -level
	}
	return p.setPWM(pwm1, pwm2)
}

func (p *PolarBear) neutral() {
	if err := p.setPWM(0, 0); err != nil {
		glog.Errorf("%s: unable to set neutral output: %v", p.UID(), err)
	}
}

func (p *PolarBear) setPWM(pwm1, pwm2 int) error {
	p.currpwm1, p.currpwm2 = pwm1, pwm2
	// release the output going to 0 first so both inputs are never
	// driven at the same time.
	first, second := PWMChannel1, PWMChannel2
	lv1, lv2 := uint8(pwm1), uint8(pwm2)
	if pwm1 != 0 {
		first, second, lv1, lv2 = PWMChannel2, PWMChannel1, lv2, lv1
	}
	if err := p.hw.PWM.SetPWM(first, lv1); err != nil {
		return err
	}
	return p.hw.PWM.SetPWM(second, lv2)
}
