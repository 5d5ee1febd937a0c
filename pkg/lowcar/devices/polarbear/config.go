package polarbear

import "fmt"

// DriveMode selects how the commanded duty cycle is turned into output.
type DriveMode uint8

// Drive modes
const (
	// OpenLoop applies the commanded duty cycle directly.
	OpenLoop DriveMode = 0
	// PIDVelocity adds a PID correction driving the measured velocity,
	// normalized by MaxSpeed, towards the commanded duty cycle.
	PIDVelocity DriveMode = 1
)

// String implements fmt.Stringer.
func (m DriveMode) String() string {
	switch m {
	case OpenLoop:
		return "open_loop"
	case PIDVelocity:
		return "pid_velocity"
	}
	return fmt.Sprintf("drive_mode_%d", uint8(m))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *DriveMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "open_loop", "0":
		*m = OpenLoop
	case "pid_velocity", "pid", "1":
		*m = PIDVelocity
	default:
		return fmt.Errorf("unknown drive mode %q", string(text))
	}
	return nil
}

// Config is the initial tuning of a PolarBear.
type Config struct {
	Kp            float64   `yaml:"kp"`
	Ki            float64   `yaml:"ki"`
	Kd            float64   `yaml:"kd"`
	IntegralLimit float64   `yaml:"integral_limit"`
	DeadBand      float64   `yaml:"deadband"`
	DPWMDt        float64   `yaml:"dpwm_dt"`
	DriveMode     DriveMode `yaml:"drive_mode"`
	// MaxSpeed is the encoder rate (ticks/s) reached at full duty cycle.
	MaxSpeed float64 `yaml:"max_speed"`
	// TickDivider runs the control law every TickDivider actions.
	TickDivider int `yaml:"tick_divider"`
}

// Defaults
const (
	DefaultKp            = 0.2
	DefaultKi            = 1.0
	DefaultIntegralLimit = 0.5
	DefaultDeadBand      = 5
	DefaultDPWMDt        = 10
	DefaultMaxSpeed      = 2000

	// MinDPWMDt is the smallest ramp step, one PWM unit per tick.
	MinDPWMDt = 1
)

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{
		Kp:            DefaultKp,
		Ki:            DefaultKi,
		IntegralLimit: DefaultIntegralLimit,
		DeadBand:      DefaultDeadBand,
		DPWMDt:        DefaultDPWMDt,
		DriveMode:     PIDVelocity,
		MaxSpeed:      DefaultMaxSpeed,
		TickDivider:   1,
	}
}

// Validate checks the config.
func (c *Config) Validate() error {
	switch {
	case c.Kp < 0 || c.Ki < 0 || c.Kd < 0:
		return fmt.Errorf("PID gains must not be negative")
	case c.IntegralLimit < 0:
		return fmt.Errorf("integral_limit must not be negative")
	case c.DeadBand < 0:
		return fmt.Errorf("deadband must not be negative")
	case c.DPWMDt < MinDPWMDt:
		return fmt.Errorf("dpwm_dt must be at least %d", MinDPWMDt)
	case c.MaxSpeed <= 0:
		return fmt.Errorf("max_speed must be positive")
	case c.DriveMode > PIDVelocity:
		return fmt.Errorf("invalid drive mode %d", c.DriveMode)
	case c.TickDivider < 0:
		return fmt.Errorf("tick_divider must not be negative")
	}
	return nil
}
