package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr            string `yaml:"addr"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Cache struct {
		DefaultTTL string `yaml:"default_ttl"`
	} `yaml:"cache"`

	Upstream struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
		TTL     string `yaml:"ttl"`
		Retry   struct {
			MaxAttempts int     `yaml:"max_attempts"`
			BaseDelay   string  `yaml:"base_delay"`
			MaxDelay    string  `yaml:"max_delay"`
			Multiplier  float64 `yaml:"multiplier"`
		} `yaml:"retry"`
	} `yaml:"upstream"`

	Store struct {
		// none | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"store"`
}

// Load reads the YAML file at path, applies environment overrides and fills
// whatever is still unset with defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "config: read")
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, errors.Wrapf(err, "config: parse %s", path)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Cache.DefaultTTL == "" {
		c.Cache.DefaultTTL = "5m"
	}
	if c.Upstream.Timeout == "" {
		c.Upstream.Timeout = "10s"
	}
	if c.Upstream.TTL == "" {
		c.Upstream.TTL = c.Cache.DefaultTTL
	}
	if c.Upstream.Retry.MaxAttempts == 0 {
		c.Upstream.Retry.MaxAttempts = 3
	}
	if c.Upstream.Retry.BaseDelay == "" {
		c.Upstream.Retry.BaseDelay = "1s"
	}
	if c.Upstream.Retry.MaxDelay == "" {
		c.Upstream.Retry.MaxDelay = "30s"
	}
	if c.Upstream.Retry.Multiplier == 0 {
		c.Upstream.Retry.Multiplier = 2
	}
	if c.Store.Kind == "" {
		c.Store.Kind = "none"
	}
	if c.Store.Redis.Prefix == "" {
		c.Store.Redis.Prefix = "memo:"
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("MEMO_ENV"); v != "" {
		c.App.Env = v
	}
	if v := os.Getenv("MEMO_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MEMO_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("MEMO_DEFAULT_TTL"); v != "" {
		c.Cache.DefaultTTL = v
	}
	if v := os.Getenv("MEMO_UPSTREAM_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("MEMO_REDIS_ADDR"); v != "" {
		c.Store.Kind = "redis"
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv("MEMO_REDIS_PASSWORD"); v != "" {
		c.Store.Redis.Password = v
	}
	if v := os.Getenv("MEMO_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "config: MEMO_REDIS_DB %q", v)
		}
		c.Store.Redis.DB = n
	}
	return nil
}

// Validate checks durations and enumerations.
func (c *Config) Validate() error {
	durations := map[string]string{
		"server.shutdown_timeout":   c.Server.ShutdownTimeout,
		"cache.default_ttl":         c.Cache.DefaultTTL,
		"upstream.timeout":          c.Upstream.Timeout,
		"upstream.ttl":              c.Upstream.TTL,
		"upstream.retry.base_delay": c.Upstream.Retry.BaseDelay,
		"upstream.retry.max_delay":  c.Upstream.Retry.MaxDelay,
	}
	for name, v := range durations {
		if _, err := time.ParseDuration(v); err != nil {
			return errors.Wrapf(err, "config: %s", name)
		}
	}

	if ttl, _ := time.ParseDuration(c.Cache.DefaultTTL); ttl <= 0 {
		return errors.Errorf("config: cache.default_ttl must be positive, got %q", c.Cache.DefaultTTL)
	}
	if ttl, _ := time.ParseDuration(c.Upstream.TTL); ttl <= 0 {
		return errors.Errorf("config: upstream.ttl must be positive, got %q", c.Upstream.TTL)
	}
	if c.Upstream.Retry.MaxAttempts < 1 {
		return errors.Errorf("config: upstream.retry.max_attempts must be at least 1, got %d", c.Upstream.Retry.MaxAttempts)
	}

	switch strings.ToLower(c.Store.Kind) {
	case "none":
	case "redis":
		if c.Store.Redis.Addr == "" {
			return errors.New("config: store.redis.addr is required for the redis store")
		}
	default:
		return errors.Errorf("config: unknown store.kind %q", c.Store.Kind)
	}
	return nil
}

// Duration parses a duration field already checked by Validate.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
