package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"nvconfig/internal/checksum"
	"nvconfig/internal/record"
	"nvconfig/internal/recovery"
	"nvconfig/internal/storage"
	"nvconfig/internal/store"
)

// EnvConfigPath names the environment variable holding the config path
// when --config is not given.
const EnvConfigPath = "NVCONFIG_CONFIG"

// ErrInvalidConfig is returned when a loaded config fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the tool configuration.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Layout   LayoutConfig   `yaml:"layout"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Log      LogConfig      `yaml:"log"`
}

// DeviceConfig selects the backing device.
type DeviceConfig struct {
	// Kind is "file", "mmap" or "memory". Default: file.
	Kind storage.Kind `yaml:"kind"`

	// Path is the device image file. Ignored for memory devices.
	Path string `yaml:"path"`

	// Size of the image in bytes. Default: 1024.
	Size int64 `yaml:"size"`

	// Checksum names the CRC-32 provider: "table" or "ieee". Default: table.
	Checksum string `yaml:"checksum"`
}

// LayoutConfig describes the slots on the device.
type LayoutConfig struct {
	// Redundant enables the main/backup pair. Default: true.
	Redundant bool `yaml:"redundant"`

	// RevalidateOnRead re-checks the stored slot on every get. When unset
	// it is false for redundant layouts and true for single-slot layouts.
	RevalidateOnRead *bool `yaml:"revalidate_on_read,omitempty"`

	MainAddr   uint32 `yaml:"main_addr"`
	BackupAddr uint32 `yaml:"backup_addr"`
}

// DefaultsConfig overrides the compiled-in default settings.
type DefaultsConfig struct {
	OptionA int32 `yaml:"option_a"`
	OptionB int64 `yaml:"option_b"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: warn.
	Level string `yaml:"level"`

	// Format is text or json. Default: text.
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Kind:     storage.KindFile,
			Path:     "nvconfig.img",
			Size:     1024,
			Checksum: "table",
		},
		Layout: LayoutConfig{
			Redundant:  true,
			MainAddr:   recovery.DefaultMainAddr,
			BackupAddr: recovery.DefaultBackupAddr,
		},
		Defaults: DefaultsConfig{
			OptionA: record.Defaults.OptionA,
			OptionB: record.Defaults.OptionB,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads path over Default and validates the result. An empty path
// falls back to $NVCONFIG_CONFIG, then to Default alone.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the layout fits the device.
func (c *Config) Validate() error {
	if c.Device.Size <= 0 {
		return fmt.Errorf("%w: device.size must be positive, got %d", ErrInvalidConfig, c.Device.Size)
	}
	if c.Device.Kind != storage.KindMemory && c.Device.Path == "" {
		return fmt.Errorf("%w: device.path is required for %q devices", ErrInvalidConfig, c.Device.Kind)
	}
	if _, err := checksum.ByName(c.Device.Checksum); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	slots := []uint32{c.Layout.MainAddr}
	if c.Layout.Redundant {
		slots = append(slots, c.Layout.BackupAddr)
		if overlaps(c.Layout.MainAddr, c.Layout.BackupAddr) {
			return fmt.Errorf("%w: main_addr %d and backup_addr %d overlap",
				ErrInvalidConfig, c.Layout.MainAddr, c.Layout.BackupAddr)
		}
	}
	for _, addr := range slots {
		if int64(addr)+record.Size > c.Device.Size {
			return fmt.Errorf("%w: slot at %d does not fit in %d-byte device",
				ErrInvalidConfig, addr, c.Device.Size)
		}
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// StoreOptions converts the layout into store options.
func (c *Config) StoreOptions() store.Options {
	revalidate := !c.Layout.Redundant
	if c.Layout.RevalidateOnRead != nil {
		revalidate = *c.Layout.RevalidateOnRead
	}
	return store.Options{
		Redundant:        c.Layout.Redundant,
		RevalidateOnRead: revalidate,
		MainAddr:         c.Layout.MainAddr,
		BackupAddr:       c.Layout.BackupAddr,
		Defaults: record.Data{
			OptionA: c.Defaults.OptionA,
			OptionB: c.Defaults.OptionB,
		},
	}
}

func overlaps(a, b uint32) bool {
	if a > b {
		a, b = b, a
	}
	return b-a < record.Size
}
