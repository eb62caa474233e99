// Package config loads collate settings from defaults, environment variables,
// an optional .env file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/collate"
	"github.com/fwojciec/collate/fs"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment variable, e.g. COLLATE_CACHE_DIR.
const EnvPrefix = "COLLATE"

// Log format constants
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Settings application settings
type Settings struct {
	CacheDir          string                    `mapstructure:"cache_dir"`
	Moves             string                    `mapstructure:"moves"` // JSONL move file, optional
	Resolution        int                       `mapstructure:"resolution"`
	MinChangeDistance int                       `mapstructure:"min_change_distance"`
	MemoryEntries     int                       `mapstructure:"memory_entries"`
	LoadWorkers       int                       `mapstructure:"load_workers"`
	MetricsAddr       string                    `mapstructure:"metrics_addr"` // Empty disables the endpoint
	LogLevel          string                    `mapstructure:"log_level"`
	LogFormat         string                    `mapstructure:"log_format"`
	Tokenizer         collate.TokenizerSettings `mapstructure:"tokenizer"`
}

// flagKeys maps flag names to settings keys.
var flagKeys = map[string]string{
	"cache-dir":          "cache_dir",
	"moves":              "moves",
	"resolution":         "resolution",
	"min-distance":       "min_change_distance",
	"memory-entries":     "memory_entries",
	"load-workers":       "load_workers",
	"metrics-addr":       "metrics_addr",
	"log-level":          "log_level",
	"log-format":         "log_format",
	"filter-case":        "tokenizer.filter_case",
	"filter-punctuation": "tokenizer.filter_punctuation",
	"filter-whitespace":  "tokenizer.filter_whitespace",
}

// RegisterFlags adds a flag for every setting to flags. Flag defaults are
// informational; unset flags never override environment variables.
func RegisterFlags(flags *pflag.FlagSet) {
	tok := collate.DefaultTokenizerSettings()
	flags.String("cache-dir", fs.DefaultCacheDir(), "directory holding collation sessions")
	flags.String("moves", "", "JSONL file with declared moves")
	flags.Int("resolution", collate.DefaultResolution, "histogram resolution")
	flags.Int("min-distance", 0, "hide differences with a smaller edit distance")
	flags.Int("memory-entries", fs.DefaultMemoryEntries, "decoded collations kept in memory")
	flags.Int("load-workers", fs.DefaultLoadWorkers, "documents read concurrently")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", LogFormatConsole, "log format (console, json)")
	flags.Bool("filter-case", tok.FilterCase, "ignore letter case")
	flags.Bool("filter-punctuation", tok.FilterPunctuation, "ignore punctuation")
	flags.Bool("filter-whitespace", tok.FilterWhitespace, "treat all whitespace runs as equal")
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// Only flags the user actually set take part.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	tok := collate.DefaultTokenizerSettings()
	v.SetDefault("cache_dir", fs.DefaultCacheDir())
	v.SetDefault("moves", "")
	v.SetDefault("resolution", collate.DefaultResolution)
	v.SetDefault("min_change_distance", 0)
	v.SetDefault("memory_entries", fs.DefaultMemoryEntries)
	v.SetDefault("load_workers", fs.DefaultLoadWorkers)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", LogFormatConsole)
	v.SetDefault("tokenizer.filter_case", tok.FilterCase)
	v.SetDefault("tokenizer.filter_punctuation", tok.FilterPunctuation)
	v.SetDefault("tokenizer.filter_whitespace", tok.FilterWhitespace)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}
	settings.CacheDir = expandHomeDir(settings.CacheDir)
	settings.Moves = expandHomeDir(settings.Moves)
	return &settings, nil
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// ValidateSettings checks settings for values the engine cannot use.
func ValidateSettings(s *Settings) error {
	if s.CacheDir == "" {
		return errors.New("cache-dir cannot be empty")
	}
	if s.Resolution <= 0 {
		return fmt.Errorf("resolution must be positive, got %d", s.Resolution)
	}
	if s.MinChangeDistance < 0 {
		return fmt.Errorf("min-distance cannot be negative, got %d", s.MinChangeDistance)
	}
	if s.MemoryEntries <= 0 {
		return fmt.Errorf("memory-entries must be positive, got %d", s.MemoryEntries)
	}
	if s.LoadWorkers <= 0 {
		return fmt.Errorf("load-workers must be positive, got %d", s.LoadWorkers)
	}
	if _, err := zapcore.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("log-level: %w", err)
	}
	switch s.LogFormat {
	case LogFormatConsole, LogFormatJSON:
	default:
		return errors.New("log-format must be 'console' or 'json', got: " + s.LogFormat)
	}
	return nil
}
