package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds the cache geometry, cost model, and report formatting settings
// a simulator run is parameterised by.
type Config struct {
	Cache struct {
		Sets     int `toml:"sets"`
		Ways     int `toml:"ways"`
		LineSize int `toml:"line_size"`
	} `toml:"cache"`

	Cost struct {
		CyclesHit  uint64 `toml:"cycles_hit"`
		CyclesMiss uint64 `toml:"cycles_miss"`
		ClockMHz   uint64 `toml:"clock_mhz"`
	} `toml:"cost"`

	Report struct {
		ShowRelative bool `toml:"show_relative"`
		Decimals     int  `toml:"decimals"`
	} `toml:"report"`
}

// DefaultConfig returns the reference cache geometry and cost model spec.md §6
// names: a typical L1-sized 128-set, 4-way, 64-byte-line cache and a
// 1/10-cycle hit/miss cost at 1000MHz.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Cache.Sets = 128
	cfg.Cache.Ways = 4
	cfg.Cache.LineSize = 64

	cfg.Cost.CyclesHit = 1
	cfg.Cost.CyclesMiss = 10
	cfg.Cost.ClockMHz = 1000

	cfg.Report.ShowRelative = true
	cfg.Report.Decimals = 3

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "icache-sim")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "icache-sim")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file, falling back to
// DefaultConfig when the file does not exist.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the loaded cost model's clock rate is non-zero. It does
// not check the cache geometry; cache.New performs the power-of-two and
// bit-budget check when a cache is constructed from it.
func (c *Config) Validate() error {
	if c.Cost.ClockMHz == 0 {
		return fmt.Errorf("config: cost.clock_mhz must be non-zero")
	}
	return nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
