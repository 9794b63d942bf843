package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	xdgAppName = "tasklink"
	configFile = "config.json"
	dbFile     = "tasklink.db"

	DefaultCalendar      = "Tasks"
	DefaultMaxBatch      = 100
	DefaultPreviewLength = 200
	DefaultBusyRetries   = 5
	MaxBusyRetries       = 20
)

// Event colouring modes for the calendar mirror.
const (
	ColorByPriority = "priority"
	ColorByOwner    = "owner"
)

// Environment overrides, applied after the config file.
const (
	EnvDBPath   = "TASKLINK_DB_PATH"
	EnvMaxBatch = "TASKLINK_MAX_BATCH"
	EnvCalendar = "TASKLINK_CALENDAR"
)

type Config struct {
	DBPath        string `json:"db_path,omitempty"`
	MaxBatch      int    `json:"max_batch,omitempty"`
	PreviewLength int    `json:"preview_length,omitempty"`
	BusyRetries   int    `json:"busy_retries,omitempty"`
	Calendar      string `json:"calendar,omitempty"`
	ColorBy       string `json:"color_by,omitempty"`
}

// Dir is the per-user directory holding the config, database, OAuth token
// and calendar event index.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the config file at the default location, falling back to
// defaults when it does not exist, then applies .env and environment
// overrides.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFile decodes the config file alone, without environment overrides or
// defaults. A missing file yields an empty Config.
func ReadFile(path string) (*Config, error) {
	cfg := &Config{}
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvCalendar); v != "" {
		c.Calendar = v
	}
	if v := os.Getenv(EnvMaxBatch); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %q", EnvMaxBatch, v)
		}
		c.MaxBatch = n
	}
	return nil
}

func (c *Config) applyDefaults() error {
	if c.DBPath == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		c.DBPath = filepath.Join(dir, dbFile)
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = DefaultMaxBatch
	}
	if c.PreviewLength <= 0 {
		c.PreviewLength = DefaultPreviewLength
	}
	if c.BusyRetries <= 0 {
		c.BusyRetries = DefaultBusyRetries
	}
	if c.BusyRetries > MaxBusyRetries {
		return fmt.Errorf("busy_retries must be at most %d, got %d", MaxBusyRetries, c.BusyRetries)
	}
	if c.Calendar == "" {
		c.Calendar = DefaultCalendar
	}
	switch c.ColorBy {
	case "":
		c.ColorBy = ColorByPriority
	case ColorByPriority, ColorByOwner:
	default:
		return fmt.Errorf("color_by must be %q or %q, got %q", ColorByPriority, ColorByOwner, c.ColorBy)
	}
	return nil
}

func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

func SaveTo(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}
