package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Relay struct {
		URL             string        `mapstructure:"url"`
		Room            string        `mapstructure:"room"`
		Keepalive       time.Duration `mapstructure:"keepalive"`
		DialTimeout     time.Duration `mapstructure:"dial_timeout"`
		DiscoverTimeout time.Duration `mapstructure:"discover_timeout"`
	} `mapstructure:"relay"`
	Board struct {
		ClearLock time.Duration `mapstructure:"clear_lock"`
		Color     string        `mapstructure:"color"`
		Size      float64       `mapstructure:"size"`
	} `mapstructure:"board"`
	Server struct {
		Addr      string `mapstructure:"addr"`
		Advertise bool   `mapstructure:"advertise"`
		Metrics   bool   `mapstructure:"metrics"`
		Redis     struct {
			Addr     string `mapstructure:"addr"`
			Password string `mapstructure:"password"`
		} `mapstructure:"redis"`
	} `mapstructure:"server"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

const EnvPrefix = "LIVEBOARD"

var defaults = map[string]any{
	"relay.url":              "",
	"relay.room":             "interactive-chat",
	"relay.keepalive":        "30s",
	"relay.dial_timeout":     "5s",
	"relay.discover_timeout": "3s",
	"board.clear_lock":       "90s",
	"board.color":            "#000000",
	"board.size":             3,
	"server.addr":            ":8080",
	"server.advertise":       false,
	"server.metrics":         true,
	"server.redis.addr":      "",
	"server.redis.password":  "",
	"log.level":              "info",
	"log.format":             "text",
}

// Load reads liveboard.yaml from path, or from . and ./config when path is
// empty, and applies LIVEBOARD_* environment overrides. A missing file is
// only an error when path names it explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("liveboard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Relay.Room) == "" {
		errs = append(errs, errors.New("relay.room must not be empty"))
	}
	for name, d := range map[string]time.Duration{
		"relay.keepalive":        c.Relay.Keepalive,
		"relay.dial_timeout":     c.Relay.DialTimeout,
		"relay.discover_timeout": c.Relay.DiscoverTimeout,
		"board.clear_lock":       c.Board.ClearLock,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.Board.Size <= 0 {
		errs = append(errs, fmt.Errorf("board.size must be positive, got %v", c.Board.Size))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}
