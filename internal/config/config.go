// Package config resolves CLI settings from a YAML file, STORYSCOPE_*
// environment variables and built-in defaults. Environment values win over
// the file; flags are applied on top by the CLI layer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config carries every tunable the CLI exposes. Zero values defer to the
// per-stage defaults.
type Config struct {
	Title        string `mapstructure:"title" validate:"-"`
	DB           string `mapstructure:"db" validate:"-"`
	Lexicons     string `mapstructure:"lexicons" validate:"-"`
	Out          string `mapstructure:"out" validate:"-"`
	BlankLineRun int    `mapstructure:"blank_line_run" validate:"omitempty,min=1"`
	SampleSize   int    `mapstructure:"sample_size" validate:"omitempty,min=3"`
	Protagonist  string `mapstructure:"protagonist" validate:"-"`
	MaxSecondary int    `mapstructure:"max_secondary" validate:"omitempty,min=1"`
	Workers      int    `mapstructure:"workers" validate:"omitempty,min=1"`
}

var validate = validator.New()

// Load resolves the configuration. A non-empty path names an explicit
// config file; otherwise ./storyscope.yaml and ~/.config/storyscope/ are
// searched and a missing file just yields the defaults. A .env file in the
// working directory is honored before the environment is read.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("storyscope")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "storyscope"))
		}
	}
	v.SetEnvPrefix("STORYSCOPE")
	v.AutomaticEnv()

	// Registering defaults also makes AutomaticEnv cover these keys
	// during Unmarshal.
	v.SetDefault("title", "")
	v.SetDefault("db", "")
	v.SetDefault("lexicons", "")
	v.SetDefault("out", "")
	v.SetDefault("blank_line_run", 0)
	v.SetDefault("sample_size", 0)
	v.SetDefault("protagonist", "")
	v.SetDefault("max_secondary", 0)
	v.SetDefault("workers", 0)

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}
