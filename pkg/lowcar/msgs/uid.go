package msgs

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// DeviceType is the device type code assigned to each kind of lowcar device.
type DeviceType uint16

// Device types
const (
	LimitSwitch   DeviceType = 0x00
	PolarBear     DeviceType = 0x01
	LineFollower  DeviceType = 0x02
	BatteryBuzzer DeviceType = 0x03
	TeamFlag      DeviceType = 0x04
	RFID          DeviceType = 0x05
	ServoControl  DeviceType = 0x06
	ColorSensor   DeviceType = 0x07
	ExampleDevice DeviceType = 0xFF
)

var deviceTypeNames = map[DeviceType]string{
	LimitSwitch:   "limit_switch",
	PolarBear:     "polar_bear",
	LineFollower:  "line_follower",
	BatteryBuzzer: "battery_buzzer",
	TeamFlag:      "team_flag",
	RFID:          "rfid",
	ServoControl:  "servo_control",
	ColorSensor:   "color_sensor",
	ExampleDevice: "example_device",
}

// String implements fmt.Stringer.
func (t DeviceType) String() string {
	if name, ok := deviceTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("device_type_%d", uint16(t))
}

// ParseDeviceType parses a device type from its name or numeric code.
func ParseDeviceType(s string) (DeviceType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range deviceTypeNames {
		if n == name {
			return t, nil
		}
	}
	if v, err := strconv.ParseUint(name, 0, 16); err == nil {
		return DeviceType(v), nil
	}
	return 0, fmt.Errorf("unknown device type %q", s)
}

// UIDSize is the encoded size of a UID.
const UIDSize = 11

// UID uniquely identifies a device instance on the bus.
type UID struct {
	DeviceType DeviceType
	Year       uint8
	ID         uint64
}

// String implements fmt.Stringer.
func (u UID) String() string {
	return fmt.Sprintf("%s-%d-%016x", u.DeviceType, u.Year, u.ID)
}

// Put encodes the UID into b, which must hold UIDSize bytes.
func (u UID) Put(b []byte) {
	binary.LittleEndian.PutUint16(b[0:2], uint16(u.DeviceType))
	b[2] = u.Year
	binary.LittleEndian.PutUint64(b[3:11], u.ID)
}

// Bytes returns the encoded UID.
func (u UID) Bytes() []byte {
	b := make([]byte, UIDSize)
	u.Put(b)
	return b
}

// DecodeUID decodes a UID from b.
func DecodeUID(b []byte) (UID, error) {
	if len(b) < UIDSize {
		return UID{}, ErrMalformed
	}
	return UID{
		DeviceType: DeviceType(binary.LittleEndian.Uint16(b[0:2])),
		Year:       b[2],
		ID:         binary.LittleEndian.Uint64(b[3:11]),
	}, nil
}
