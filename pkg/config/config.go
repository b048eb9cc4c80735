// Package config loads rubyhl configuration from .rubyhl.yaml, RUBYHL_*
// environment variables and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/rubyhl/pkg/levenshtein"
)

// Tree source backends.
const (
	BackendTreeSitter = "treesitter"
	BackendRipper     = "ripper"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Sentinel validation errors.
var (
	ErrInvalidBackend    = errors.New("invalid extract backend")
	ErrInvalidColumnBase = errors.New("column base must be 0 or 1")
	ErrInvalidTimeout    = errors.New("extract timeout must be positive")
	ErrInvalidLogFormat  = errors.New("invalid log format")
)

const (
	defaultRubyPath = "ruby"
	defaultTimeout  = 10 * time.Second
	configName      = ".rubyhl"
	envPrefix       = "RUBYHL"
)

// Config holds all rubyhl configuration.
type Config struct {
	Extract   ExtractConfig   `mapstructure:"extract"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ExtractConfig controls how trees are produced and occurrences reported.
type ExtractConfig struct {
	Backend      string        `mapstructure:"backend"`
	RubyPath     string        `mapstructure:"ruby_path"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ColumnBase   int           `mapstructure:"column_base"`
	ShowWarnings bool          `mapstructure:"show_warnings"`
	FollowCallee bool          `mapstructure:"follow_callee"`
	MaxFileSize  int64         `mapstructure:"max_file_size"`
	CacheSize    int64         `mapstructure:"cache_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry and Prometheus settings.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string `mapstructure:"otlp_headers"`
	Environment  string `mapstructure:"environment"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

// Option adjusts loading.
type Option func(*viper.Viper)

// WithOverride sets key to value above every other source, the way an
// explicitly passed command-line flag should.
func WithOverride(key string, value any) Option {
	return func(v *viper.Viper) {
		v.Set(key, value)
	}
}

// LoadConfig reads configPath, or .rubyhl.yaml from the working directory or
// $HOME when configPath is empty, then RUBYHL_* environment variables.
// A missing default file is not an error.
func LoadConfig(configPath string, opts ...Option) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	for _, opt := range opts {
		opt(viperCfg)
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	viperCfg := viper.New()
	setDefaults(viperCfg)

	var cfg Config

	//nolint:errcheck // defaults always decode.
	_ = viperCfg.Unmarshal(&cfg)

	return &cfg
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("extract.backend", BackendTreeSitter)
	viperCfg.SetDefault("extract.ruby_path", defaultRubyPath)
	viperCfg.SetDefault("extract.timeout", defaultTimeout)
	viperCfg.SetDefault("extract.column_base", 0)
	viperCfg.SetDefault("extract.show_warnings", false)
	viperCfg.SetDefault("extract.follow_callee", false)
	viperCfg.SetDefault("extract.max_file_size", humanize.MiByte)
	viperCfg.SetDefault("extract.cache_size", 32*humanize.MiByte)

	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", FormatText)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.environment", "")
	viperCfg.SetDefault("telemetry.metrics_addr", "")
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Extract.Backend {
	case BackendTreeSitter, BackendRipper:
	default:
		return fmt.Errorf("%w: %q%s", ErrInvalidBackend, c.Extract.Backend,
			levenshtein.Hint(c.Extract.Backend, []string{BackendTreeSitter, BackendRipper}))
	}

	if c.Extract.ColumnBase != 0 && c.Extract.ColumnBase != 1 {
		return fmt.Errorf("%w: %d", ErrInvalidColumnBase, c.Extract.ColumnBase)
	}

	if c.Extract.Timeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.Extract.Timeout)
	}

	switch c.Logging.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	return nil
}
