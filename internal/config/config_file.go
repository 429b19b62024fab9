package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig is the TOML form of Config. Pointers mark values that were set.
type FileConfig struct {
	Model      string  `toml:"model,omitempty"`
	Transport  string  `toml:"transport,omitempty"`
	DeviceMAC  string  `toml:"device_mac,omitempty"`
	AdapterMAC string  `toml:"adapter_mac,omitempty"`
	Channel    int     `toml:"channel,omitempty"`
	SerialPort string  `toml:"serial_port,omitempty"`
	BaudRate   int     `toml:"baud_rate,omitempty"`
	FontPath   string  `toml:"font,omitempty"`
	FontSize   float64 `toml:"font_size,omitempty"`
	Fruit      *bool   `toml:"fruit,omitempty"`
	Dither     *bool   `toml:"dither,omitempty"`
	Threshold  *int    `toml:"threshold,omitempty"`
	Invert     *bool   `toml:"invert,omitempty"`
	LogLevel   string  `toml:"log_level,omitempty"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.d30-print/config.toml, or "" without a home directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".d30-print", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) {
	s := newConfigSetter(changed)

	s.setString("model", fc.Model, &cfg.Model)
	s.setString("transport", fc.Transport, &cfg.Transport)
	s.setString("device-mac", fc.DeviceMAC, &cfg.DeviceMAC)
	s.setString("adapter-mac", fc.AdapterMAC, &cfg.AdapterMAC)
	s.setString("serial-port", fc.SerialPort, &cfg.SerialPort)
	s.setString("font", fc.FontPath, &cfg.FontPath)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt("channel", fc.Channel, &cfg.Channel)
	s.setInt("baud", fc.BaudRate, &cfg.BaudRate)
	s.setFloat("font-size", fc.FontSize, &cfg.FontSize)

	s.setBool("fruit", fc.Fruit, &cfg.Fruit)
	s.setBool("dither", fc.Dither, &cfg.Dither)
	s.setBool("invert", fc.Invert, &cfg.Invert)
	if fc.Threshold != nil && !changed["threshold"] {
		cfg.Threshold = *fc.Threshold
	}
}

// ToFileConfig converts cfg into its file form, omitting nothing.
func ToFileConfig(cfg Config) FileConfig {
	return FileConfig{
		Model:      cfg.Model,
		Transport:  cfg.Transport,
		DeviceMAC:  cfg.DeviceMAC,
		AdapterMAC: cfg.AdapterMAC,
		Channel:    cfg.Channel,
		SerialPort: cfg.SerialPort,
		BaudRate:   cfg.BaudRate,
		FontPath:   cfg.FontPath,
		FontSize:   cfg.FontSize,
		Fruit:      &cfg.Fruit,
		Dither:     &cfg.Dither,
		Threshold:  &cfg.Threshold,
		Invert:     &cfg.Invert,
		LogLevel:   cfg.LogLevel,
	}
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
