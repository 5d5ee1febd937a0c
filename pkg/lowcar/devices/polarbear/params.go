package polarbear

import (
	"github.com/robotalks/lowcar/pkg/lowcar/param"
)

// Parameter IDs
const (
	ParamDutyCycle uint8 = iota
	ParamKp
	ParamKi
	ParamKd
	ParamDeadBand
	ParamDPWMDt
	ParamDriveMode
	ParamEncPos
	ParamEncVel
	ParamPWM1
	ParamPWM2
	ParamEnabled
	ParamMaxSpeed
)

func floatParam(id uint8, name string, get func() float64, set func(float64), valid func(float64) bool) param.Binding {
	b := param.Binding{
		ID:   id,
		Name: name,
		Kind: param.Float,
		Get:  func() param.Value { return param.FloatValue(float32(get())) },
	}
	if set != nil {
		b.Set = func(v param.Value) bool { set(float64(v.Float())); return true }
	}
	if valid != nil {
		b.Valid = func(v param.Value) bool { return valid(float64(v.Float())) }
	}
	return b
}

func assign(dst *float64) func(float64) {
	return func(v float64) { *dst = v }
}

func nonNegative(v float64) bool { return v >= 0 }

func positive(v float64) bool { return v > 0 }

// a ramp step below one PWM unit would never move the outputs.
func rampStep(v float64) bool { return v >= MinDPWMDt }

func (p *PolarBear) newStore() *param.Store {
	return param.MustNewStore(
		// the target is stored immediately, outputs follow on the next tick.
		floatParam(ParamDutyCycle, "duty_cycle",
			func() float64 { return p.pwmInput },
			func(v float64) {
				if p.motorEnabled {
					p.pwmInput = v
				}
			}, nil),
		floatParam(ParamKp, "pid_kp", func() float64 { return p.pid.Kp }, assign(&p.pid.Kp), nonNegative),
		floatParam(ParamKi, "pid_ki", func() float64 { return p.pid.Ki }, assign(&p.pid.Ki), nonNegative),
		floatParam(ParamKd, "pid_kd", func() float64 { return p.pid.Kd }, assign(&p.pid.Kd), nonNegative),
		floatParam(ParamDeadBand, "deadband", func() float64 { return p.deadBand }, assign(&p.deadBand), nonNegative),
		floatParam(ParamDPWMDt, "dpwm_dt", func() float64 { return p.dpwmDt }, assign(&p.dpwmDt), rampStep),
		param.Binding{
			ID:    ParamDriveMode,
			Name:  "drive_mode",
			Kind:  param.Uint8,
			Get:   func() param.Value { return param.Uint8Value(uint8(p.driveMode)) },
			Valid: func(v param.Value) bool { return DriveMode(v.Uint8()) <= PIDVelocity },
			Set: func(v param.Value) bool {
				if mode := DriveMode(v.Uint8()); mode != p.driveMode {
					p.driveMode = mode
					p.pid.Reset()
				}
				return true
			},
		},
		param.Binding{
			ID:   ParamEncPos,
			Name: "enc_pos",
			Kind: param.Int32,
			Get:  func() param.Value { return param.Int32Value(p.encPos) },
		},
		floatParam(ParamEncVel, "enc_vel", func() float64 { return p.encVel }, nil, nil),
		param.Binding{
			ID:   ParamPWM1,
			Name: "pwm1",
			Kind: param.Int16,
			Get:  func() param.Value { return param.Int16Value(int16(p.currpwm1)) },
		},
		param.Binding{
			ID:   ParamPWM2,
			Name: "pwm2",
			Kind: param.Int16,
			Get:  func() param.Value { return param.Int16Value(int16(p.currpwm2)) },
		},
		param.Binding{
			ID:   ParamEnabled,
			Name: "enabled",
			Kind: param.Bool,
			Get:  func() param.Value { return param.BoolValue(p.motorEnabled) },
		},
		floatParam(ParamMaxSpeed, "max_speed", func() float64 { return p.maxSpeed }, assign(&p.maxSpeed), positive),
	)
}
