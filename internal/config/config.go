// Package config loads daylist settings from daylist.yaml, DAYLIST_* environment variables
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	FileName  = "daylist"
	EnvPrefix = "DAYLIST"
)

type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	Bridge  BridgeConfig  `mapstructure:"bridge"`

	// Workspace is the workspace id selected with `daylist ws use`.
	Workspace string `mapstructure:"workspace"`

	v *viper.Viper
}

type StorageConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=sqlite diskv memory"`
	Path    string `mapstructure:"path" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
	Output string `mapstructure:"output"`
}

type BridgeConfig struct {
	MaxInFlight int     `mapstructure:"max_in_flight" validate:"min=1,max=256"`
	RatePerSec  float64 `mapstructure:"rate_per_sec" validate:"min=0"`
}

var validate = validator.New()

// DefaultDir is ~/.daylist, or ./.daylist when the home directory is unknown.
func DefaultDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return ".daylist"
	}
	return filepath.Join(home, ".daylist")
}

// Load reads configuration. An explicit file must exist; otherwise daylist.yaml is looked
// up in $DAYLIST_CONFIG_DIR, ~/.daylist and the working directory, and a missing file just
// leaves the defaults.
func Load(file string) (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		if dir := os.Getenv(EnvPrefix + "_CONFIG_DIR"); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(DefaultDir())
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.v = v
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if p, err := homedir.Expand(cfg.Storage.Path); err == nil {
		cfg.Storage.Path = p
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", DefaultDir())
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("bridge.max_in_flight", 8)
	v.SetDefault("bridge.rate_per_sec", 0)
	v.SetDefault("workspace", "")
}

// File returns the config file in use, or the default location when none was found.
func (c *Config) File() string {
	if c.v != nil {
		if f := c.v.ConfigFileUsed(); f != "" {
			return f
		}
	}
	if dir := os.Getenv(EnvPrefix + "_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, FileName+".yaml")
	}
	return filepath.Join(DefaultDir(), FileName+".yaml")
}

// SaveWorkspace persists the selected workspace id to the config file.
func (c *Config) SaveWorkspace(id string) error {
	if c.v == nil {
		return errors.New("config not loaded")
	}
	path := c.File()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	c.v.Set("workspace", id)
	if err := c.v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	c.Workspace = id
	return nil
}
