// Package config loads pocketpages settings from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongoDB  = "mongodb"

	envPrefix = "POCKETPAGES_"
)

type Config struct {
	DataDir string        `toml:"data_dir"`
	Storage StorageConfig `toml:"storage"`
	Editor  EditorConfig  `toml:"editor"`
	Trash   TrashConfig   `toml:"trash"`
	Log     LogConfig     `toml:"log"`
}

type StorageConfig struct {
	Driver string `toml:"driver"`
	// DSN is a file path for sqlite, a connection string otherwise.
	DSN string `toml:"dsn"`
	// Database names the MongoDB database.
	Database string `toml:"database"`
}

type EditorConfig struct {
	DebounceMs   int `toml:"debounce_ms"`
	HistoryLimit int `toml:"history_limit"`
}

type TrashConfig struct {
	RetentionDays int    `toml:"retention_days"`
	PurgeSchedule string `toml:"purge_schedule"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".local", "share", "pocketpages")
	return Config{
		DataDir: dataDir,
		Storage: StorageConfig{Driver: DriverSQLite},
		Editor:  EditorConfig{DebounceMs: 2000, HistoryLimit: 100},
		Trash:   TrashConfig{RetentionDays: 30, PurgeSchedule: "@daily"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads the TOML file at path (missing files are fine), then applies
// POCKETPAGES_* environment overrides. An empty path means <data dir>/config.toml.
func Load(path string) (Config, error) {
	cfg := Default()
	if dir, ok := os.LookupEnv(envPrefix + "DATA_DIR"); ok && dir != "" {
		cfg.DataDir = dir
	}
	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.toml")
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg as TOML to path, creating the directory when needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) applyEnv() {
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.Storage.Driver = getEnv("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.DSN = getEnv("STORAGE_DSN", c.Storage.DSN)
	c.Storage.Database = getEnv("STORAGE_DATABASE", c.Storage.Database)
	c.Editor.DebounceMs = getEnvAsInt("DEBOUNCE_MS", c.Editor.DebounceMs)
	c.Editor.HistoryLimit = getEnvAsInt("HISTORY_LIMIT", c.Editor.HistoryLimit)
	c.Trash.RetentionDays = getEnvAsInt("TRASH_RETENTION_DAYS", c.Trash.RetentionDays)
	c.Trash.PurgeSchedule = getEnv("TRASH_PURGE_SCHEDULE", c.Trash.PurgeSchedule)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
}

// Validate rejects settings the rest of the program cannot work with.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	case DriverMongoDB:
		if c.Storage.DSN == "" {
			return errors.New("config: storage.dsn is required for mongodb")
		}
	default:
		return fmt.Errorf("config: unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver != DriverSQLite && c.Storage.Driver != DriverMongoDB && c.Storage.DSN == "" {
		return fmt.Errorf("config: storage.dsn is required for %s", c.Storage.Driver)
	}
	if c.Editor.DebounceMs <= 0 {
		return fmt.Errorf("config: editor.debounce_ms must be positive, got %d", c.Editor.DebounceMs)
	}
	if c.Editor.HistoryLimit < 0 {
		return fmt.Errorf("config: editor.history_limit must not be negative")
	}
	if c.Trash.RetentionDays < 0 {
		return fmt.Errorf("config: trash.retention_days must not be negative")
	}
	return nil
}

// SQLitePath resolves the sqlite database file.
func (c Config) SQLitePath() string {
	if c.Storage.DSN != "" {
		return c.Storage.DSN
	}
	return filepath.Join(c.DataDir, "pocketpages.db")
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(envPrefix + key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(envPrefix + key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
