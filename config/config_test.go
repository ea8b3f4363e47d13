package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Cache.Sets != 128 {
		t.Errorf("Expected Cache.Sets=128, got %d", cfg.Cache.Sets)
	}
	if cfg.Cache.Ways != 4 {
		t.Errorf("Expected Cache.Ways=4, got %d", cfg.Cache.Ways)
	}
	if cfg.Cache.LineSize != 64 {
		t.Errorf("Expected Cache.LineSize=64, got %d", cfg.Cache.LineSize)
	}

	if cfg.Cost.CyclesHit != 1 {
		t.Errorf("Expected Cost.CyclesHit=1, got %d", cfg.Cost.CyclesHit)
	}
	if cfg.Cost.CyclesMiss != 10 {
		t.Errorf("Expected Cost.CyclesMiss=10, got %d", cfg.Cost.CyclesMiss)
	}
	if cfg.Cost.ClockMHz != 1000 {
		t.Errorf("Expected Cost.ClockMHz=1000, got %d", cfg.Cost.ClockMHz)
	}

	if cfg.Report.Decimals != 3 {
		t.Errorf("Expected Report.Decimals=3, got %d", cfg.Report.Decimals)
	}
	if !cfg.Report.ShowRelative {
		t.Error("Expected Report.ShowRelative=true")
	}
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()

	if path == "" {
		t.Error("GetConfigPath returned empty string")
	}
	if filepath.Base(path) != "config.toml" {
		t.Errorf("Expected path to end with config.toml, got %s", path)
	}

	switch runtime.GOOS {
	case "windows":
		if !filepath.IsAbs(path) && path != "config.toml" {
			t.Errorf("Expected absolute path on Windows, got %s", path)
		}
	case "darwin", "linux":
		dir := filepath.Dir(path)
		if filepath.Base(dir) != "icache-sim" && path != "config.toml" {
			t.Errorf("Expected path in icache-sim directory or fallback, got %s", path)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.toml")

	cfg := DefaultConfig()
	cfg.Cache.Sets = 256
	cfg.Cache.Ways = 8
	cfg.Cost.CyclesMiss = 20
	cfg.Report.Decimals = 2

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Cache.Sets != 256 {
		t.Errorf("Expected Cache.Sets=256, got %d", loaded.Cache.Sets)
	}
	if loaded.Cache.Ways != 8 {
		t.Errorf("Expected Cache.Ways=8, got %d", loaded.Cache.Ways)
	}
	if loaded.Cost.CyclesMiss != 20 {
		t.Errorf("Expected Cost.CyclesMiss=20, got %d", loaded.Cost.CyclesMiss)
	}
	if loaded.Report.Decimals != 2 {
		t.Errorf("Expected Report.Decimals=2, got %d", loaded.Report.Decimals)
	}
}

func TestLoadNonExistent(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nonexistent.toml")

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom should not error on non-existent file: %v", err)
	}
	if cfg.Cache.Sets != 128 {
		t.Error("Expected default config when file doesn't exist")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "invalid.toml")

	invalidTOML := `
[cache]
sets = "not a number"
`
	if err := os.WriteFile(configPath, []byte(invalidTOML), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if _, err := LoadFrom(configPath); err == nil {
		t.Error("Expected error when loading invalid TOML")
	}
}

func TestLoadRejectsZeroClockMHz(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "zero_clock.toml")

	badTOML := `
[cost]
clock_mhz = 0
`
	if err := os.WriteFile(configPath, []byte(badTOML), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if _, err := LoadFrom(configPath); err == nil {
		t.Error("Expected a configuration error for clock_mhz=0")
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "subdir1", "subdir2", "config.toml")

	cfg := DefaultConfig()
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}
	dir := filepath.Dir(configPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("Parent directories were not created")
	}
}
