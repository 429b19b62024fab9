package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "unknown model", mutate: func(c *Config) { c.Model = "m110" }, wantErr: "unknown printer model"},
		{name: "unknown transport", mutate: func(c *Config) { c.Transport = "ble" }, wantErr: "unknown transport"},
		{name: "channel zero", mutate: func(c *Config) { c.Channel = 0 }, wantErr: "channel"},
		{name: "channel too high", mutate: func(c *Config) { c.Channel = 31 }, wantErr: "channel"},
		{name: "font size", mutate: func(c *Config) { c.FontSize = 0 }, wantErr: "font size"},
		{name: "threshold", mutate: func(c *Config) { c.Threshold = 256 }, wantErr: "threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateForPrint(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ValidateForPrint(); err == nil || !strings.Contains(err.Error(), "device-mac") {
		t.Errorf("ValidateForPrint() error = %v, want device-mac required", err)
	}
	cfg.DeviceMAC = "AA:BB:CC:DD:EE:FF"
	if err := cfg.ValidateForPrint(); err == nil || !strings.Contains(err.Error(), "adapter-mac") {
		t.Errorf("ValidateForPrint() error = %v, want adapter-mac required", err)
	}
	cfg.AdapterMAC = "11:22:33:44:55:66"
	if err := cfg.ValidateForPrint(); err != nil {
		t.Errorf("ValidateForPrint() error = %v", err)
	}
	if cfg.Remote() != cfg.DeviceMAC {
		t.Errorf("Remote() = %q, want device MAC", cfg.Remote())
	}

	cfg = DefaultConfig()
	cfg.Transport = TransportSerial
	if err := cfg.ValidateForPrint(); err == nil {
		t.Error("serial transport without a port should fail")
	}
	cfg.SerialPort = "/dev/rfcomm0"
	if err := cfg.ValidateForPrint(); err != nil {
		t.Errorf("ValidateForPrint() error = %v", err)
	}
	if cfg.Remote() != "/dev/rfcomm0" {
		t.Errorf("Remote() = %q, want serial port", cfg.Remote())
	}
}

func TestProfileChannelOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Channel = 3
	p, err := cfg.Profile()
	if err != nil {
		t.Fatal(err)
	}
	if p.Channel != 3 || p.DotWidth != 96 {
		t.Errorf("Profile() = channel %d width %d", p.Channel, p.DotWidth)
	}
}

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	zero := 0

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		check      func(t *testing.T, c Config)
	}{
		{
			name: "applies values",
			fileConfig: FileConfig{
				DeviceMAC:  "AA:BB:CC:DD:EE:FF",
				AdapterMAC: "11:22:33:44:55:66",
				FontSize:   30,
				Fruit:      &trueVal,
				Threshold:  &zero,
			},
			changed: map[string]bool{},
			check: func(t *testing.T, c Config) {
				if c.DeviceMAC != "AA:BB:CC:DD:EE:FF" || c.AdapterMAC != "11:22:33:44:55:66" {
					t.Errorf("addresses = %q %q", c.DeviceMAC, c.AdapterMAC)
				}
				if c.FontSize != 30 || !c.Fruit || c.Threshold != 0 {
					t.Errorf("font size %v fruit %v threshold %d", c.FontSize, c.Fruit, c.Threshold)
				}
			},
		},
		{
			name:       "respects changed flags",
			fileConfig: FileConfig{DeviceMAC: "AA:BB:CC:DD:EE:FF", FontSize: 30},
			changed:    map[string]bool{"device-mac": true},
			check: func(t *testing.T, c Config) {
				if c.DeviceMAC != "flag" {
					t.Errorf("DeviceMAC = %q, want flag value kept", c.DeviceMAC)
				}
				if c.FontSize != 30 {
					t.Errorf("FontSize = %v, want 30", c.FontSize)
				}
			},
		},
		{
			name:       "empty file keeps defaults",
			fileConfig: FileConfig{},
			check: func(t *testing.T, c Config) {
				if c.FontSize != 44 || c.Channel != 1 || c.Transport != TransportRFCOMM {
					t.Errorf("defaults lost: %+v", c)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DeviceMAC = "flag"
			if !tt.changed["device-mac"] {
				cfg.DeviceMAC = ""
			}
			ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
device_mac = "AA:BB:CC:DD:EE:FF"
adapter_mac = "11:22:33:44:55:66"
font = "/usr/share/fonts/DejaVuSans.ttf"
font_size = 38.5
fruit = true
threshold = 100
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}
	if fc.DeviceMAC != "AA:BB:CC:DD:EE:FF" || fc.FontSize != 38.5 || fc.FontPath != "/usr/share/fonts/DejaVuSans.ttf" {
		t.Errorf("LoadFileConfig() = %+v", fc)
	}
	if fc.Fruit == nil || !*fc.Fruit || fc.Threshold == nil || *fc.Threshold != 100 {
		t.Errorf("pointer fields not set: %+v", fc)
	}
	if fc.Dither != nil {
		t.Errorf("Dither = %v, want unset", *fc.Dither)
	}

	if err := os.WriteFile(path, []byte("font_size = ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFileConfig(path); err == nil {
		t.Error("invalid TOML should fail")
	}
}

func TestApplyEnvConfig(t *testing.T) {
	t.Setenv("D30_DEVICE_MAC", "AA:BB:CC:DD:EE:FF")
	t.Setenv("D30_FONT_SIZE", "52")
	t.Setenv("D30_FRUIT", "1")
	t.Setenv("D30_TRANSPORT", "serial")
	t.Setenv("D30_CHANNEL", "2")

	cfg := DefaultConfig()
	if err := ApplyEnvConfig(&cfg, map[string]bool{"transport": true}); err != nil {
		t.Fatalf("ApplyEnvConfig() error = %v", err)
	}
	if cfg.DeviceMAC != "AA:BB:CC:DD:EE:FF" || cfg.FontSize != 52 || !cfg.Fruit || cfg.Channel != 2 {
		t.Errorf("ApplyEnvConfig() = %+v", cfg)
	}
	if cfg.Transport != TransportRFCOMM {
		t.Errorf("Transport = %q, flag should win over env", cfg.Transport)
	}

	t.Setenv("D30_FONT_SIZE", "big")
	if err := ApplyEnvConfig(&cfg, nil); err == nil {
		t.Error("invalid D30_FONT_SIZE should fail")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs", "config.toml")

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if got := s.Get(); got != DefaultConfig() {
		t.Fatalf("new store = %+v, want defaults", got)
	}

	cfg := s.Get()
	cfg.DeviceMAC = "AA:BB:CC:DD:EE:FF"
	cfg.Fruit = true
	cfg.Threshold = 0
	cfg.FontPath = "/fonts/Inter.ttf"
	if err := s.Update(cfg); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	again, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() reopen error = %v", err)
	}
	if got := again.Get(); got != cfg {
		t.Errorf("reloaded %+v\nwant %+v", got, cfg)
	}
	if FileExists(path + ".tmp") {
		t.Error("temporary file left behind")
	}
}

func TestMemoryStore(t *testing.T) {
	s, err := NewStore("")
	if err != nil {
		t.Fatal(err)
	}
	cfg := s.Get()
	cfg.Fruit = true
	if err := s.Update(cfg); err != nil {
		t.Fatal(err)
	}
	if !s.Get().Fruit || s.Path() != "" {
		t.Errorf("memory store lost update")
	}
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`font_size = 20`), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan FileConfig, 8)
	if err := Watch(ctx, path, zerolog.Nop(), func(fc FileConfig) { got <- fc }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(path, []byte(`font_size = 60`), 0o644); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case fc := <-got:
			if fc.FontSize == 60 {
				return
			}
		case <-timeout:
			t.Fatal("no reload seen")
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "warn")
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output %q", buf.String())
	}

	if lvl := newLogger(&buf, "nonsense").GetLevel(); lvl != zerolog.InfoLevel {
		t.Errorf("level = %v, want info", lvl)
	}
}
