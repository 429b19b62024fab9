package config

import (
	"fmt"
	"strconv"

	"d30-print/internal/protocol"
)

// Transports
const (
	TransportRFCOMM = "rfcomm"
	TransportSerial = "serial"
)

// Config holds everything needed to render and print a label
type Config struct {
	Model     string
	Transport string

	DeviceMAC  string
	AdapterMAC string
	Channel    int
	SerialPort string
	BaudRate   int

	FontPath  string
	FontSize  float64
	Fruit     bool
	Dither    bool
	Threshold int
	Invert    bool

	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Model:     protocol.D30.Name,
		Transport: TransportRFCOMM,
		Channel:   protocol.D30.Channel,
		BaudRate:  115200,
		FontSize:  44,
		Threshold: 128,
		LogLevel:  "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := protocol.Lookup(c.Model); err != nil {
		return err
	}
	switch c.Transport {
	case TransportRFCOMM, TransportSerial:
	default:
		return fmt.Errorf("unknown transport %q (want %s or %s)", c.Transport, TransportRFCOMM, TransportSerial)
	}
	if c.Channel < 1 || c.Channel > 30 {
		return fmt.Errorf("RFCOMM channel must be between 1 and 30, got %d", c.Channel)
	}
	if c.FontSize <= 0 {
		return fmt.Errorf("font size must be positive")
	}
	if c.Threshold < 0 || c.Threshold > 255 {
		return fmt.Errorf("threshold must be between 0 and 255, got %d", c.Threshold)
	}
	return nil
}

// ValidateForPrint additionally checks that a printer address is configured.
func (c *Config) ValidateForPrint() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.Transport {
	case TransportRFCOMM:
		if c.DeviceMAC == "" {
			return fmt.Errorf("device-mac is required to print (find it with: bluetoothctl devices)")
		}
		if c.AdapterMAC == "" {
			return fmt.Errorf("adapter-mac is required to print (find it with: bluetoothctl list)")
		}
	case TransportSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("serial-port is required for the serial transport")
		}
	}
	return nil
}

// Profile returns the protocol profile for the configured model and channel.
func (c *Config) Profile() (protocol.Profile, error) {
	p, err := protocol.Lookup(c.Model)
	if err != nil {
		return p, err
	}
	if c.Channel > 0 {
		p.Channel = c.Channel
	}
	return p, nil
}

// Remote returns the address the configured transport dials.
func (c *Config) Remote() string {
	if c.Transport == TransportSerial {
		return c.SerialPort
	}
	return c.DeviceMAC
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = f
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
