// Package config loads caremem settings from YAML, .env files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/caremem/internal/memory"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Config is the application configuration.
type Config struct {
	Patient string        `yaml:"patient"`
	Storage StorageConfig `yaml:"storage"`
	Limits  memory.Limits `yaml:"limits"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig selects and locates the snapshot backend.
type StorageConfig struct {
	Backend      string `yaml:"backend"`
	DBPath       string `yaml:"db_path"`
	SnapshotDir  string `yaml:"snapshot_dir"`
	KeepVersions int    `yaml:"keep_versions"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Home returns the caremem home directory: $CAREMEM_HOME, else ~/.caremem.
func Home() string {
	if h := os.Getenv("CAREMEM_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".caremem"
	}
	return filepath.Join(home, ".caremem")
}

// DefaultPath is the config file location inside Home.
func DefaultPath() string {
	return filepath.Join(Home(), "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home := Home()
	return &Config{
		Patient: "default",
		Storage: StorageConfig{
			Backend:      BackendSQLite,
			DBPath:       filepath.Join(home, "caremem.db"),
			SnapshotDir:  filepath.Join(home, "snapshots"),
			KeepVersions: 500,
		},
		Limits: memory.DefaultLimits(),
		Log:    LogConfig{Level: "warn"},
	}
}

// LoadEnv loads .env.local and .env from the working directory. Variables
// already set in the environment win.
func LoadEnv() error {
	for _, p := range []string{".env.local", ".env"} {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CAREMEM_DB"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("CAREMEM_SNAPSHOT_DIR"); v != "" {
		c.Storage.SnapshotDir = v
	}
	if v := os.Getenv("CAREMEM_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("CAREMEM_PATIENT"); v != "" {
		c.Patient = v
	}
	if v := os.Getenv("CAREMEM_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CAREMEM_KEEP_VERSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: CAREMEM_KEEP_VERSIONS: %w", err)
		}
		c.Storage.KeepVersions = n
	}
	return nil
}

// Save writes cfg to path as YAML, creating the directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("serialize config: %w", err)
	}
	content := "# caremem configuration\n\n" + string(data)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Storage.Backend)) {
	case BackendSQLite:
		if c.Storage.DBPath == "" {
			return fmt.Errorf("config error: storage.db_path cannot be empty")
		}
	case BackendFile:
		if c.Storage.SnapshotDir == "" {
			return fmt.Errorf("config error: storage.snapshot_dir cannot be empty")
		}
	default:
		return fmt.Errorf("config error: storage.backend must be %q or %q, got %q", BackendSQLite, BackendFile, c.Storage.Backend)
	}
	if c.Storage.KeepVersions < 0 {
		return fmt.Errorf("config error: storage.keep_versions cannot be negative")
	}
	if c.Limits.MaxSessions < 0 || c.Limits.MaxFacts < 0 ||
		c.Limits.MaxReadingsPerVital < 0 || c.Limits.MaxQuestions < 0 {
		return fmt.Errorf("config error: limits cannot be negative")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config error: log.level: %w", err)
	}
	return nil
}

// LogLevel returns the parsed log level, defaulting to warn.
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.WarnLevel
	}
	return lvl
}

// String renders the configuration as YAML.
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}
