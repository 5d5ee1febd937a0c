package board

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/Masterminds/semver"
	"github.com/denisbrodbeck/machineid"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/lowcar/pkg/lowcar/devices/polarbear"
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
)

// FirmwareVersion is the version board configs are checked against.
const FirmwareVersion = "1.2.0"

// Config describes the boards to bring up.
type Config struct {
	// Requires is a semver constraint on FirmwareVersion, e.g. ">= 1.1".
	Requires         string         `yaml:"requires"`
	HeartbeatTimeout time.Duration  `yaml:"heartbeat_timeout"`
	Boards           []DeviceConfig `yaml:"boards"`
}

// DeviceConfig describes a single board.
type DeviceConfig struct {
	Name string `yaml:"name"`
	// Type is a device type name or numeric code.
	Type string `yaml:"type"`
	Year uint8  `yaml:"year"`
	// Serial is the UID id, derived from the machine id when 0.
	Serial    uint64           `yaml:"serial"`
	PolarBear polarbear.Config `yaml:"polar_bear"`
}

// UnmarshalYAML implements yaml.Unmarshaler, filling defaults.
func (c *DeviceConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain DeviceConfig
	conf := plain{PolarBear: polarbear.DefaultConfig()}
	if err := node.Decode(&conf); err != nil {
		return err
	}
	*c = DeviceConfig(conf)
	return nil
}

// machineID is replaced in tests.
var machineID = machineid.ProtectedID

// DefaultSerial derives a stable serial for a named board from the
// machine id.
func DefaultSerial(name string) (uint64, error) {
	id, err := machineID("lowcar/" + name)
	if err != nil {
		return 0, fmt.Errorf("machine id: %w", err)
	}
	b, err := hex.DecodeString(id)
	if err != nil || len(b) < 8 {
		return 0, fmt.Errorf("machine id: unexpected format %q", id)
	}
	var serial uint64
	for _, v := range b[:8] {
		serial = serial<<8 | uint64(v)
	}
	return serial, nil
}

// UID resolves the UID of the board.
func (c *DeviceConfig) UID() (msgs.UID, error) {
	devType, err := msgs.ParseDeviceType(c.Type)
	if err != nil {
		return msgs.UID{}, err
	}
	uid := msgs.UID{DeviceType: devType, Year: c.Year, ID: c.Serial}
	if uid.ID == 0 {
		if uid.ID, err = DefaultSerial(c.Name); err != nil {
			return uid, err
		}
	}
	return uid, nil
}

// LoadConfig parses and validates a YAML board config.
func LoadConfig(r io.Reader) (*Config, error) {
	var conf Config
	if err := yaml.NewDecoder(r).Decode(&conf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("board config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("board config: %w", err)
	}
	return &conf, nil
}

// Validate checks the config.
func (c *Config) Validate() error {
	if err := CheckFirmware(c.Requires); err != nil {
		return err
	}
	if c.HeartbeatTimeout < 0 {
		return fmt.Errorf("heartbeat_timeout must not be negative")
	}
	names := make(map[string]bool)
	for n := range c.Boards {
		dc := &c.Boards[n]
		if dc.Name == "" {
			dc.Name = fmt.Sprintf("board%d", n)
		}
		if names[dc.Name] {
			return fmt.Errorf("duplicated board %q", dc.Name)
		}
		names[dc.Name] = true
		if _, err := msgs.ParseDeviceType(dc.Type); err != nil {
			return fmt.Errorf("board %s: %w", dc.Name, err)
		}
		if err := dc.PolarBear.Validate(); err != nil {
			return fmt.Errorf("board %s: %w", dc.Name, err)
		}
	}
	return nil
}

// CheckFirmware checks FirmwareVersion satisfies the constraint.
// An empty constraint is always satisfied.
func CheckFirmware(requires string) error {
	if requires == "" {
		return nil
	}
	c, err := semver.NewConstraint(requires)
	if err != nil {
		return fmt.Errorf("requires %q: %w", requires, err)
	}
	v, err := semver.NewVersion(FirmwareVersion)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("firmware %s doesn't satisfy %q", FirmwareVersion, requires)
	}
	return nil
}
