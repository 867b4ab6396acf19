// Package config loads snrecon settings from a config file, SNRECON_
// environment variables and built-in defaults, in increasing order of
// precedence: defaults, file, environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. SNRECON_DATABASE.
const EnvPrefix = "SNRECON"

// Config holds all snrecon settings.
type Config struct {
	// Database is the SQLite file holding leftovers, undo snapshots and
	// the metadata cache. ":memory:" keeps state for one run only.
	Database string `mapstructure:"database" validate:"required"`
	// RulesFile is an optional CUE file replacing the built-in quantity
	// rules.
	RulesFile string `mapstructure:"rules_file"`
	// CatalogFile is an optional YAML product catalog.
	CatalogFile string `mapstructure:"catalog_file"`
	// CatalogTTL is how long cached product metadata is trusted. Zero
	// keeps entries forever.
	CatalogTTL time.Duration `mapstructure:"catalog_ttl" validate:"gte=0"`
	// MetricsFile receives Prometheus text exposition after each run.
	MetricsFile string    `mapstructure:"metrics_file"`
	Log         LogConfig `mapstructure:"log"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database", "snrecon.db")
	v.SetDefault("rules_file", "")
	v.SetDefault("catalog_file", "")
	v.SetDefault("catalog_ttl", "720h")
	v.SetDefault("metrics_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration. With an empty path, snrecon.yaml in the
// working directory is used when present; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("snrecon")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
