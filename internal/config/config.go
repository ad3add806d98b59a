// Package config reads the function's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Skill     SkillConfig     `mapstructure:"skill"`
	Log       LogConfig       `mapstructure:"log"`
	DeviceAPI DeviceAPIConfig `mapstructure:"deviceapi"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Table   string `mapstructure:"table"`
}

type RedisConfig struct {
	URL string        `mapstructure:"url"`
	TTL time.Duration `mapstructure:"ttl"`
}

type SkillConfig struct {
	// IDParam names the SSM parameter holding the skill application ID.
	// Empty disables the check.
	IDParam string `mapstructure:"id_param"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DeviceAPIConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

var envBindings = map[string]string{
	"store.backend":     "STORE_BACKEND",
	"store.table":       "STATE_TABLE",
	"redis.url":         "REDIS_URL",
	"redis.ttl":         "REDIS_TTL",
	"skill.id_param":    "SKILL_ID_PARAM",
	"log.level":         "LOG_LEVEL",
	"deviceapi.timeout": "DEVICE_API_TIMEOUT",
}

// Load reads the configuration from environment variables and validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.backend", "dynamodb")
	v.SetDefault("log.level", "info")
	v.SetDefault("deviceapi.timeout", "3s")
	v.SetDefault("redis.ttl", "0s")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	cfg.Skill.IDParam = strings.TrimSpace(cfg.Skill.IDParam)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case "dynamodb":
		if strings.TrimSpace(c.Store.Table) == "" {
			errs = append(errs, errors.New("STATE_TABLE is required for the dynamodb store"))
		}
	case "redis":
		if strings.TrimSpace(c.Redis.URL) == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis store"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q is not one of dynamodb, redis, memory", c.Store.Backend))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.DeviceAPI.Timeout <= 0 {
		errs = append(errs, errors.New("DEVICE_API_TIMEOUT must be positive"))
	}
	if c.Redis.TTL < 0 {
		errs = append(errs, errors.New("REDIS_TTL must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel returns the configured log level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	lvl, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return lvl, nil
}
