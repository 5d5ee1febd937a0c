package mqtt

import (
	"flag"
	"os"
)

// Config provides the MQTT options of a binary.
type Config struct {
	// BrokerURL specifies the MQTT broker to use, empty to disable.
	// e.g. mqtt://host:port/topic-prefix
	BrokerURL string
}

var defaultConfig Config

func init() {
	if val := os.Getenv("LOWCAR_MQTT_URL"); val != "" {
		defaultConfig.BrokerURL = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.BrokerURL, "mqtt", defaultConfig.BrokerURL, "MQTT broker URL, e.g. mqtt://localhost:1883/robo/")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewQueue creates the Queue, or nil when no broker is configured.
func (c *Config) NewQueue() (*Queue, error) {
	if c.BrokerURL == "" {
		return nil, nil
	}
	return NewQueueFromURL(c.BrokerURL)
}
