package board

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/robotalks/lowcar/pkg/lowcar/device"
	"github.com/robotalks/lowcar/pkg/lowcar/devices/batterybuzzer"
	"github.com/robotalks/lowcar/pkg/lowcar/devices/polarbear"
	"github.com/robotalks/lowcar/pkg/lowcar/encoder"
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
)

// ErrUnsupportedDevice indicates no implementation exists for a device type.
var ErrUnsupportedDevice = errors.New("unsupported device type")

// Hardware collects what devices may be bound to.
// Only the fields a device type needs must be set.
type Hardware struct {
	PWM     polarbear.PWMDriver
	Encoder encoder.Reader
	Sampler batterybuzzer.Sampler
	Clock   clock.Clock
}

// NewDevice creates the device for uid.DeviceType.
func NewDevice(uid msgs.UID, conf DeviceConfig, hw Hardware) (device.Device, error) {
	switch uid.DeviceType {
	case msgs.PolarBear:
		return polarbear.New(uid, conf.PolarBear, polarbear.Hardware{
			PWM:     hw.PWM,
			Encoder: hw.Encoder,
			Clock:   hw.Clock,
		})
	case msgs.BatteryBuzzer:
		return batterybuzzer.New(uid, hw.Sampler)
	}
	return nil, fmt.Errorf("%s: %w", uid.DeviceType, ErrUnsupportedDevice)
}
