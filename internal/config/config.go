// Package config loads server configuration from a YAML file with
// environment-variable overrides. Every key has a default so the server
// starts with no file at all.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	// URL empty disables persistence; the server runs stats-less.
	URL string `mapstructure:"url"`
}

type AuthConfig struct {
	// Audience empty disables credential verification.
	Audience string        `mapstructure:"audience"`
	KeysURL  string        `mapstructure:"keys_url"`
	KeyTTL   time.Duration `mapstructure:"key_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type GameConfig struct {
	BotDelayMin time.Duration `mapstructure:"bot_delay_min"`
	BotDelayMax time.Duration `mapstructure:"bot_delay_max"`
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

// Load reads the configuration file at path. A missing file is not an
// error; defaults and LOVELETTER_* environment variables apply either
// way.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.url", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.keys_url", "")
	v.SetDefault("auth.key_ttl", time.Hour)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("game.bot_delay_min", 800*time.Millisecond)
	v.SetDefault("game.bot_delay_max", 2*time.Second)
	v.SetDefault("game.grace_period", 60*time.Second)

	v.SetEnvPrefix("LOVELETTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Game.BotDelayMax < c.Game.BotDelayMin {
		return fmt.Errorf("game.bot_delay_max (%s) below game.bot_delay_min (%s)",
			c.Game.BotDelayMax, c.Game.BotDelayMin)
	}
	if c.Game.GracePeriod <= 0 {
		return fmt.Errorf("game.grace_period must be positive, got %s", c.Game.GracePeriod)
	}
	return nil
}
