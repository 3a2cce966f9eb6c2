package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/magnetometer/compass"
)

const (
	AdapterMCP2221 = "mcp2221"
	AdapterGeneric = "generic"
	AdapterNanoPi  = "nanopi"
	AdapterLinux   = "linux"
	AdapterSim     = "sim"
)

var adapters = []string{AdapterMCP2221, AdapterGeneric, AdapterNanoPi, AdapterLinux, AdapterSim}

// Config describes which bus to use and how to configure the magnetometer.
//
//	adapter: generic
//	device: /dev/i2c-1
//	settings:
//	  odr: 50Hz
//	  osr: 256
//	  range: 8G
//	set_reset_period: 1
type Config struct {
	Adapter        string           `yaml:"adapter"`
	Device         string           `yaml:"device"`
	Bus            int              `yaml:"bus"`
	Address        uint8            `yaml:"address"`
	Settings       compass.Settings `yaml:"settings"`
	SetResetPeriod *int8            `yaml:"set_reset_period,omitempty"`
}

func Default() Config {
	return Config{
		Adapter:  AdapterMCP2221,
		Device:   "/dev/i2c-1",
		Bus:      -1,
		Address:  compass.DefaultAddress,
		Settings: compass.DefaultSettings(),
	}
}

// Load reads path on top of Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(&c)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("could not decode config: %w", err)
	}
	err = c.Validate()
	if err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	known := false
	for _, a := range adapters {
		if a == c.Adapter {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("unknown adapter %q (expected one of %v)", c.Adapter, adapters)
	}
	if c.Address == 0 || c.Address > 0x7F {
		return fmt.Errorf("invalid 7-bit address %#02x", c.Address)
	}
	if !c.Settings.Valid() {
		return fmt.Errorf("invalid settings %s", c.Settings)
	}
	return nil
}

// Options translates the file into driver options.
func (c Config) Options() []compass.ConfigOption {
	opts := []compass.ConfigOption{compass.WithAddress(c.Address)}
	if c.SetResetPeriod != nil {
		opts = append(opts, compass.WithSetResetPeriod(*c.SetResetPeriod))
	}
	return opts
}

func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
