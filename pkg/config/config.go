// Package config manages PeakSeg configuration using Viper
package config

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ChrisMcGann/peakseg/pkg/filter"
)

// Keys shared with the CLI flag bindings
const (
	KeyStorePath      = "store.path"
	KeyLogLevel       = "logging.level"
	KeyFilterBaseline = "filter.baseline"
	KeyFilterCutoff   = "filter.cutoff"
	KeyFilterTopN     = "filter.top_n"
)

// EnvPrefix prefixes environment overrides, e.g. PEAKSEG_STORE_PATH
const EnvPrefix = "PEAKSEG"

// Config wraps a Viper instance with typed getters
type Config struct {
	v *viper.Viper
}

// New creates a new configuration with defaults and environment overrides
func New() *Config {
	v := viper.New()

	// Storage
	v.SetDefault(KeyStorePath, "peakseg.db")

	// Logging
	v.SetDefault(KeyLogLevel, "info")

	// Filter defaults
	v.SetDefault(KeyFilterBaseline, 0.0)
	v.SetDefault(KeyFilterCutoff, 0.0)
	v.SetDefault(KeyFilterTopN, 0)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v}
}

// LoadFromFile loads configuration from a YAML, TOML or JSON file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// BindFlag makes a command-line flag override key when it is set
func (c *Config) BindFlag(key string, flag *pflag.Flag) error {
	return c.v.BindPFlag(key, flag)
}

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// Getters
func (c *Config) StorePath() string { return c.v.GetString(KeyStorePath) }
func (c *Config) LogLevel() string  { return c.v.GetString(KeyLogLevel) }

// Filter returns the configured peak filter
func (c *Config) Filter() filter.Config {
	return filter.Config{
		Baseline:        c.v.GetFloat64(KeyFilterBaseline),
		IntensityCutoff: c.v.GetFloat64(KeyFilterCutoff),
		TopN:            c.v.GetInt(KeyFilterTopN),
	}
}

// CreateLogger creates a zerolog logger based on config, writing to stderr
func (c *Config) CreateLogger() zerolog.Logger {
	return c.CreateLoggerTo(os.Stderr)
}

// CreateLoggerTo is CreateLogger with an explicit destination
func (c *Config) CreateLoggerTo(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    true,
	}).Level(level).With().Timestamp().Str("service", "peakseg").Logger()
}
