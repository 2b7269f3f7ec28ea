package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration correctness without mutating it.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if strings.TrimSpace(cfg.Client.UserAgent) == "" {
		return fmt.Errorf("client.user_agent is required")
	}

	if cfg.Bulk.MaxConnections < 0 || cfg.Bulk.MaxKeepaliveConnections < 0 {
		return fmt.Errorf("bulk connection limits must not be negative")
	}
	if cfg.Bulk.MaxKeepaliveConnections > 0 && cfg.Bulk.MaxConnections > 0 &&
		cfg.Bulk.MaxKeepaliveConnections > cfg.Bulk.MaxConnections {
		return fmt.Errorf(
			"bulk.max_keepalive_connections (%d) exceeds bulk.max_connections (%d)",
			cfg.Bulk.MaxKeepaliveConnections, cfg.Bulk.MaxConnections,
		)
	}

	if cfg.Client.RequestsPerSecond < 0 {
		return fmt.Errorf("client.requests_per_second must not be negative")
	}
	if cfg.Client.MaxRetries < 0 {
		return fmt.Errorf("client.max_retries must not be negative")
	}
	if cfg.Client.CacheTTL < 0 || cfg.Client.Timeout < 0 || cfg.Client.InitialBackoff < 0 {
		return fmt.Errorf("client durations must not be negative")
	}

	if cfg.Redis.Enabled {
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when redis is enabled")
		}
		if cfg.Redis.DB < 0 {
			return fmt.Errorf("redis.db must be non-negative")
		}
	}

	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	return nil
}
