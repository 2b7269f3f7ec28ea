// Package config loads process configuration for the domus binaries from a
// YAML file with DOMUS_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/domus-client/pkg/bulk"
	"github.com/Sternrassler/domus-client/pkg/client"
	"github.com/Sternrassler/domus-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is sent when none is configured.
const DefaultUserAgent = "My-Simple-RealEstate-App"

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Bulk    BulkConfig    `yaml:"bulk"`
	Client  ClientConfig  `yaml:"client"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig is optional; without it caching and shared cooldowns are off.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type BulkConfig struct {
	MaxConnections          int           `yaml:"max_connections"`
	MaxKeepaliveConnections int           `yaml:"max_keepalive_connections"`
	Timeout                 time.Duration `yaml:"timeout"`
}

type ClientConfig struct {
	UserAgent         string        `yaml:"user_agent"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	MaxRetries        int           `yaml:"max_retries"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	Timeout           time.Duration `yaml:"timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	bulkDefaults := bulk.DefaultConfig()
	clientDefaults := client.DefaultConfig(nil, DefaultUserAgent)

	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Bulk: BulkConfig{
			MaxConnections:          bulkDefaults.MaxConnections,
			MaxKeepaliveConnections: bulkDefaults.MaxKeepaliveConnections,
			Timeout:                 bulkDefaults.Timeout,
		},
		Client: ClientConfig{
			UserAgent:         clientDefaults.UserAgent,
			RequestsPerSecond: clientDefaults.RequestsPerSecond,
			Burst:             clientDefaults.Burst,
			CacheTTL:          clientDefaults.CacheTTL,
			MaxRetries:        clientDefaults.MaxRetries,
			InitialBackoff:    clientDefaults.InitialBackoff,
			Timeout:           clientDefaults.Timeout,
		},
		Logging: LoggingConfig{
			Level: string(logging.LevelInfo),
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides cfg from DOMUS_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) error {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", name, err)
			}
			*dst = n
		}
		return nil
	}
	boolean := func(name string, dst *bool) error {
		if v, ok := lookup(name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", name, err)
			}
			*dst = b
		}
		return nil
	}
	duration := func(name string, dst *time.Duration) error {
		if v, ok := lookup(name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", name, err)
			}
			*dst = d
		}
		return nil
	}

	str("DOMUS_SERVER_ADDR", &cfg.Server.Addr)
	str("DOMUS_REDIS_ADDR", &cfg.Redis.Addr)
	str("DOMUS_REDIS_PASSWORD", &cfg.Redis.Password)
	str("DOMUS_USER_AGENT", &cfg.Client.UserAgent)
	str("DOMUS_LOG_LEVEL", &cfg.Logging.Level)

	if v, ok := lookup("DOMUS_REQUESTS_PER_SECOND"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid DOMUS_REQUESTS_PER_SECOND value: %w", err)
		}
		cfg.Client.RequestsPerSecond = f
	}

	for _, apply := range []func() error{
		func() error { return boolean("DOMUS_REDIS_ENABLED", &cfg.Redis.Enabled) },
		func() error { return integer("DOMUS_REDIS_DB", &cfg.Redis.DB) },
		func() error { return integer("DOMUS_BULK_MAX_CONNECTIONS", &cfg.Bulk.MaxConnections) },
		func() error {
			return integer("DOMUS_BULK_MAX_KEEPALIVE_CONNECTIONS", &cfg.Bulk.MaxKeepaliveConnections)
		},
		func() error { return duration("DOMUS_BULK_TIMEOUT", &cfg.Bulk.Timeout) },
		func() error { return integer("DOMUS_MAX_RETRIES", &cfg.Client.MaxRetries) },
		func() error { return duration("DOMUS_CACHE_TTL", &cfg.Client.CacheTTL) },
		func() error { return boolean("DOMUS_LOG_PRETTY", &cfg.Logging.Pretty) },
	} {
		if err := apply(); err != nil {
			return err
		}
	}

	return nil
}

// BulkFetcherConfig converts to the bulk fetcher configuration.
func (c *Config) BulkFetcherConfig() bulk.Config {
	return bulk.Config{
		MaxConnections:          c.Bulk.MaxConnections,
		MaxKeepaliveConnections: c.Bulk.MaxKeepaliveConnections,
		Timeout:                 c.Bulk.Timeout,
		UserAgent:               c.Client.UserAgent,
	}
}

// ProviderClientConfig converts to the single-call client configuration.
// redisClient may be nil.
func (c *Config) ProviderClientConfig(redisClient *redis.Client) client.Config {
	return client.Config{
		Redis:             redisClient,
		UserAgent:         c.Client.UserAgent,
		RequestsPerSecond: c.Client.RequestsPerSecond,
		Burst:             c.Client.Burst,
		CacheTTL:          c.Client.CacheTTL,
		MaxRetries:        c.Client.MaxRetries,
		InitialBackoff:    c.Client.InitialBackoff,
		Timeout:           c.Client.Timeout,
	}
}

// RedisOptions returns connection options, or nil when Redis is disabled.
func (c *Config) RedisOptions() *redis.Options {
	if !c.Redis.Enabled {
		return nil
	}
	return &redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// LoggerConfig converts to the logging configuration.
func (c *Config) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Logging.Level)
	cfg.Pretty = c.Logging.Pretty
	return cfg
}
