package sim

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/robotalks/lowcar/pkg/board"
)

// MotorConfig describes a simulated motor.
type MotorConfig struct {
	// MaxSpeed is the encoder rate (ticks/s) at full duty cycle.
	MaxSpeed     float64       `yaml:"max_speed"`
	TimeConstant time.Duration `yaml:"time_constant"`
}

// BatteryConfig describes a simulated battery.
type BatteryConfig struct {
	Cells []float32 `yaml:"cells"`
	VRef  float32   `yaml:"vref"`
}

// Config describes the simulated hardware of a board.
type Config struct {
	Motor   MotorConfig   `yaml:"motor"`
	Battery BatteryConfig `yaml:"battery"`
}

// DefaultConfig returns a motor matching the PolarBear defaults and a
// charged battery.
func DefaultConfig() Config {
	return Config{
		Motor: MotorConfig{
			MaxSpeed:     2000,
			TimeConstant: 100 * time.Millisecond,
		},
		Battery: BatteryConfig{
			Cells: []float32{4.0, 4.0, 4.0},
			VRef:  2.5,
		},
	}
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.Motor.MaxSpeed <= 0 {
		return fmt.Errorf("motor max_speed must be positive")
	}
	if c.Motor.TimeConstant < 0 {
		return fmt.Errorf("motor time_constant must not be negative")
	}
	if len(c.Battery.Cells) != 3 {
		return fmt.Errorf("battery requires 3 cells, got %d", len(c.Battery.Cells))
	}
	return nil
}

// Rig is the simulated hardware of one board.
type Rig struct {
	Motor   *Motor
	Battery *Battery
	Clock   clock.Clock
}

// NewRig creates the simulated hardware.
func NewRig(conf Config, clk clock.Clock) *Rig {
	if clk == nil {
		clk = clock.New()
	}
	return &Rig{
		Motor:   NewMotor(conf.Motor, clk),
		Battery: NewBattery(conf.Battery),
		Clock:   clk,
	}
}

// Hardware binds the rig for board.NewDevice.
func (r *Rig) Hardware() board.Hardware {
	return board.Hardware{
		PWM:     r.Motor,
		Encoder: r.Motor,
		Sampler: r.Battery,
		Clock:   r.Clock,
	}
}
