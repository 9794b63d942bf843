package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvMaxBatch, "")
	t.Setenv(EnvCalendar, "")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.MaxBatch != DefaultMaxBatch {
		t.Errorf("Expected MaxBatch %d, got %d", DefaultMaxBatch, cfg.MaxBatch)
	}
	if cfg.Calendar != DefaultCalendar {
		t.Errorf("Expected Calendar %q, got %q", DefaultCalendar, cfg.Calendar)
	}
	if cfg.ColorBy != ColorByPriority {
		t.Errorf("Expected ColorBy %q, got %q", ColorByPriority, cfg.ColorBy)
	}
	if filepath.Base(cfg.DBPath) != dbFile {
		t.Errorf("Expected default db file %s, got %s", dbFile, cfg.DBPath)
	}
}

func TestSaveLoadAndEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.json")

	if err := SaveTo(path, &Config{DBPath: "/tmp/from-file.db", MaxBatch: 10, Calendar: "Work"}); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvMaxBatch, "")
	t.Setenv(EnvCalendar, "")
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.DBPath != "/tmp/from-file.db" || cfg.MaxBatch != 10 || cfg.Calendar != "Work" {
		t.Errorf("Unexpected config from file: %+v", cfg)
	}

	t.Setenv(EnvMaxBatch, "25")
	t.Setenv(EnvCalendar, "Personal")
	cfg, err = LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.MaxBatch != 25 {
		t.Errorf("Expected env MaxBatch 25, got %d", cfg.MaxBatch)
	}
	if cfg.Calendar != "Personal" {
		t.Errorf("Expected env Calendar Personal, got %s", cfg.Calendar)
	}

	t.Setenv(EnvMaxBatch, "lots")
	if _, err := LoadFrom(path); err == nil {
		t.Error("Expected an error for a non-numeric max batch")
	}
}

func TestLoadRejectsUnknownColorMode(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvMaxBatch, "")
	t.Setenv(EnvCalendar, "")
	path := filepath.Join(t.TempDir(), "config.json")
	if err := SaveTo(path, &Config{ColorBy: "rainbow"}); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("Expected an error for an unknown color_by")
	}
}

func TestLoadRejectsExcessiveBusyRetries(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvMaxBatch, "")
	t.Setenv(EnvCalendar, "")
	path := filepath.Join(t.TempDir(), "config.json")
	if err := SaveTo(path, &Config{BusyRetries: 64}); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("Expected an error for busy_retries above the maximum")
	}

	if err := SaveTo(path, &Config{BusyRetries: MaxBusyRetries}); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.BusyRetries != MaxBusyRetries {
		t.Errorf("Expected busy_retries %d, got %d", MaxBusyRetries, cfg.BusyRetries)
	}
}
