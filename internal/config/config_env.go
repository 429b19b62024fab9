package config

import "os"

// ApplyEnvConfig applies configuration from environment variables (D30_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("model", os.Getenv("D30_MODEL"), &cfg.Model)
	s.setString("transport", os.Getenv("D30_TRANSPORT"), &cfg.Transport)
	s.setString("device-mac", os.Getenv("D30_DEVICE_MAC"), &cfg.DeviceMAC)
	s.setString("adapter-mac", os.Getenv("D30_ADAPTER_MAC"), &cfg.AdapterMAC)
	s.setString("serial-port", os.Getenv("D30_SERIAL_PORT"), &cfg.SerialPort)
	s.setString("font", os.Getenv("D30_FONT"), &cfg.FontPath)
	s.setString("log-level", os.Getenv("D30_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("channel", os.Getenv("D30_CHANNEL"), &cfg.Channel); err != nil {
		return err
	}
	if err := s.setIntFromString("baud", os.Getenv("D30_BAUD_RATE"), &cfg.BaudRate); err != nil {
		return err
	}
	if err := s.setIntFromString("threshold", os.Getenv("D30_THRESHOLD"), &cfg.Threshold); err != nil {
		return err
	}
	if err := s.setFloatFromString("font-size", os.Getenv("D30_FONT_SIZE"), &cfg.FontSize); err != nil {
		return err
	}

	s.setBoolFromString("fruit", os.Getenv("D30_FRUIT"), &cfg.Fruit)
	s.setBoolFromString("dither", os.Getenv("D30_DITHER"), &cfg.Dither)
	s.setBoolFromString("invert", os.Getenv("D30_INVERT"), &cfg.Invert)

	return nil
}
