// Package config loads renamer settings from viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/rename-agent/internal/common"
)

// Configuration keys.
const (
	KeyDataDir       = "data_dir"
	KeyHistory       = "history.backend"
	KeyMaxLength     = "naming.max_length"
	KeyOnCollision   = "naming.on_collision"
	KeyWorkers       = "batch.workers"
	KeyRetryAttempts = "batch.retry.max_attempts"
	KeyLogLevel      = "logging.level"
	KeyLogFormat     = "logging.format"
)

// History backends.
const (
	HistoryJSON   = "json"
	HistorySQLite = "sqlite"
)

// Name length bounds in bytes. Most filesystems cap a name at 255.
const (
	minMaxLength = 16
	maxMaxLength = 255
)

// Config is the validated application configuration.
type Config struct {
	DataDir        string
	HistoryBackend string
	OnCollision    string
	LogLevel       string
	LogFormat      string
	MaxLength      int
	Workers        int
	RetryAttempts  int
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDataDir, "~/.rename-agent")
	v.SetDefault(KeyHistory, HistoryJSON)
	v.SetDefault(KeyMaxLength, 200)
	v.SetDefault(KeyOnCollision, "suffix")
	v.SetDefault(KeyWorkers, 4)
	v.SetDefault(KeyRetryAttempts, 3)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// Load reads and validates the configuration held by v. Paths are expanded.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	cfg := Config{
		DataDir:        ExpandPath(strings.TrimSpace(v.GetString(KeyDataDir))),
		HistoryBackend: strings.ToLower(strings.TrimSpace(v.GetString(KeyHistory))),
		OnCollision:    strings.ToLower(strings.TrimSpace(v.GetString(KeyOnCollision))),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFormat:      v.GetString(KeyLogFormat),
		MaxLength:      v.GetInt(KeyMaxLength),
		Workers:        v.GetInt(KeyWorkers),
		RetryAttempts:  v.GetInt(KeyRetryAttempts),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every setting.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: %s cannot be empty", common.ErrInvalidConfig, KeyDataDir)
	}

	switch c.HistoryBackend {
	case HistoryJSON, HistorySQLite:
	default:
		return fmt.Errorf("%w: %s must be %q or %q, got %q", common.ErrInvalidConfig, KeyHistory, HistoryJSON, HistorySQLite, c.HistoryBackend)
	}

	switch c.OnCollision {
	case "suffix", "skip":
	default:
		return fmt.Errorf("%w: %s must be \"suffix\" or \"skip\", got %q", common.ErrInvalidConfig, KeyOnCollision, c.OnCollision)
	}

	if c.MaxLength < minMaxLength || c.MaxLength > maxMaxLength {
		return fmt.Errorf("%w: %s must be between %d and %d, got %d", common.ErrInvalidConfig, KeyMaxLength, minMaxLength, maxMaxLength, c.MaxLength)
	}

	if c.Workers < 1 {
		return fmt.Errorf("%w: %s must be positive, got %d", common.ErrInvalidConfig, KeyWorkers, c.Workers)
	}

	if c.RetryAttempts < 1 {
		return fmt.Errorf("%w: %s must be positive, got %d", common.ErrInvalidConfig, KeyRetryAttempts, c.RetryAttempts)
	}

	if _, err := common.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("%w: %s must be \"console\" or \"json\", got %q", common.ErrInvalidConfig, KeyLogFormat, c.LogFormat)
	}

	return nil
}

// HistoryDBPath is where the SQLite ledger lives inside the data directory.
func (c Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}
