// Package config loads koan-graphdb settings from an optional YAML file,
// KOANS_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dd0wney/koan-graphdb/pkg/logging"
	"github.com/dd0wney/koan-graphdb/pkg/metrics"
	"github.com/dd0wney/koan-graphdb/pkg/storage"
)

// EnvPrefix is prepended to every environment override, e.g.
// KOANS_STORAGE_DATA_DIR.
const EnvPrefix = "KOANS"

// Config is the top-level configuration
type Config struct {
	Storage StorageSettings `mapstructure:"storage"`
	Log     LogSettings     `mapstructure:"log"`
}

// StorageSettings configures the graph store. An empty DataDir gives a
// memory-only store.
type StorageSettings struct {
	DataDir     string `mapstructure:"data_dir" validate:"omitempty,max=4096"`
	Compression bool   `mapstructure:"compression"`
}

// LogSettings configures logging
type LogSettings struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// flagKeys maps command-line flag names onto configuration keys
var flagKeys = map[string]string{
	"data-dir":  "storage.data_dir",
	"compress":  "storage.compression",
	"log-level": "log.level",
}

var validate = validator.New()

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Log: LogSettings{Level: "info"},
	}
}

// Load reads configuration from path (if non-empty), the environment and
// any of flags that were set on the command line. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("storage.data_dir", def.Storage.DataDir)
	v.SetDefault("storage.compression", def.Storage.Compression)
	v.SetDefault("log.level", def.Log.Level)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// Logger builds a JSON logger writing to stderr at the configured level
func (c *Config) Logger() logging.Logger {
	return logging.NewJSONLogger(os.Stderr, c.LogLevel())
}

// LogLevel returns the configured level
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Log.Level)
}

// StorageConfig converts the settings into a storage.StorageConfig
func (c *Config) StorageConfig(logger logging.Logger, registry *metrics.Registry) storage.StorageConfig {
	return storage.StorageConfig{
		DataDir:           c.Storage.DataDir,
		EnableCompression: c.Storage.Compression,
		Logger:            logger,
		Metrics:           registry,
	}
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Report the first failure
	for _, e := range validationErrs {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, e.Param())
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s], got %q", field, e.Param(), e.Value())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}
	return err
}
