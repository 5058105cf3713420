// Package config loads proteus settings from an optional env file and
// PROTEUS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Log      LogConfig
	Engine   EngineConfig
	REPL     REPLConfig
	Snapshot SnapshotConfig
	Metrics  MetricsConfig
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level   string // debug, info, warn, error
	NoColor bool
}

// EngineConfig represents object engine configuration
type EngineConfig struct {
	LookupCache   bool
	CacheEntries  int // receivers remembered per attribute name
	NormalizeKeys bool
}

// REPLConfig represents interactive shell configuration
type REPLConfig struct {
	HistoryFile string
	Prompt      string
}

// SnapshotConfig represents snapshot persistence configuration
type SnapshotConfig struct {
	Path string // sqlite file; empty disables save/load
}

// MetricsConfig represents the Prometheus endpoint configuration
type MetricsConfig struct {
	Addr string // empty disables the endpoint
}

// InitConfig initializes viper configuration
// env: environment name (dev, test, prod)
func InitConfig(env string) error {
	if env == "" {
		env = "dev"
	}

	viper.SetConfigName(fmt.Sprintf(".proteus.%s", env))
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}

	// Config file is optional
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables take precedence over config file
	viper.SetEnvPrefix("PROTEUS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_NO_COLOR", false)

	viper.SetDefault("LOOKUP_CACHE", false)
	viper.SetDefault("LOOKUP_ENTRIES", 4)
	viper.SetDefault("NORMALIZE_KEYS", false)

	viper.SetDefault("REPL_HISTORY", defaultHistoryFile())
	viper.SetDefault("REPL_PROMPT", "proteus> ")

	viper.SetDefault("SNAPSHOT_PATH", "")
	viper.SetDefault("METRICS_ADDR", "")

	return nil
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".proteus_history")
}

// Load loads configuration from viper
func Load() (*Config, error) {
	config := &Config{
		Log: LogConfig{
			Level:   strings.ToLower(viper.GetString("LOG_LEVEL")),
			NoColor: viper.GetBool("LOG_NO_COLOR"),
		},
		Engine: EngineConfig{
			LookupCache:   viper.GetBool("LOOKUP_CACHE"),
			CacheEntries:  viper.GetInt("LOOKUP_ENTRIES"),
			NormalizeKeys: viper.GetBool("NORMALIZE_KEYS"),
		},
		REPL: REPLConfig{
			HistoryFile: viper.GetString("REPL_HISTORY"),
			Prompt:      viper.GetString("REPL_PROMPT"),
		},
		Snapshot: SnapshotConfig{
			Path: viper.GetString("SNAPSHOT_PATH"),
		},
		Metrics: MetricsConfig{
			Addr: viper.GetString("METRICS_ADDR"),
		},
	}

	if _, err := config.Log.SlogLevel(); err != nil {
		return nil, err
	}
	if config.Engine.CacheEntries < 1 {
		return nil, fmt.Errorf("LOOKUP_ENTRIES must be positive, got %d", config.Engine.CacheEntries)
	}

	return config, nil
}

// SlogLevel parses Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.Level, err)
	}
	return level, nil
}
