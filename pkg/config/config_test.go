package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Default()) = %v", err)
	}
	if cfg.Bulk.MaxConnections != 500 || cfg.Bulk.Timeout != 30*time.Second {
		t.Errorf("bulk defaults = %+v", cfg.Bulk)
	}
	if cfg.RedisOptions() != nil {
		t.Error("Redis should be disabled by default")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domus.yaml")
	content := `
server:
  addr: ":9090"
redis:
  enabled: true
  addr: "redis:6379"
  db: 2
bulk:
  max_connections: 50
  max_keepalive_connections: 10
  timeout: 5s
client:
  user_agent: "DomusTest/1.0"
  cache_ttl: 2m
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Bulk.MaxConnections != 50 || cfg.Bulk.Timeout != 5*time.Second {
		t.Errorf("Bulk = %+v", cfg.Bulk)
	}
	if cfg.Client.CacheTTL != 2*time.Minute {
		t.Errorf("CacheTTL = %v, want 2m", cfg.Client.CacheTTL)
	}
	// Unset keys keep their defaults.
	if cfg.Client.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want default 2", cfg.Client.MaxRetries)
	}

	opts := cfg.RedisOptions()
	if opts == nil || opts.Addr != "redis:6379" || opts.DB != 2 {
		t.Errorf("RedisOptions() = %+v", opts)
	}

	bc := cfg.BulkFetcherConfig()
	if bc.UserAgent != "DomusTest/1.0" || bc.MaxKeepaliveConnections != 10 {
		t.Errorf("BulkFetcherConfig() = %+v", bc)
	}
	if lc := cfg.LoggerConfig(); lc.Level != "debug" {
		t.Errorf("LoggerConfig().Level = %q", lc.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := applyEnv(cfg, envMap(map[string]string{
		"DOMUS_SERVER_ADDR":          ":7000",
		"DOMUS_REDIS_ENABLED":        "true",
		"DOMUS_REDIS_DB":             "3",
		"DOMUS_BULK_MAX_CONNECTIONS": "25",
		"DOMUS_BULK_TIMEOUT":         "1500ms",
		"DOMUS_REQUESTS_PER_SECOND":  "2.5",
		"DOMUS_USER_AGENT":           "EnvAgent/2.0",
		"DOMUS_LOG_PRETTY":           "1",
		"DOMUS_REDIS_PASSWORD":       "",
	}))
	if err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}

	if cfg.Server.Addr != ":7000" || !cfg.Redis.Enabled || cfg.Redis.DB != 3 {
		t.Errorf("server/redis = %+v %+v", cfg.Server, cfg.Redis)
	}
	if cfg.Bulk.MaxConnections != 25 || cfg.Bulk.Timeout != 1500*time.Millisecond {
		t.Errorf("bulk = %+v", cfg.Bulk)
	}
	if cfg.Client.RequestsPerSecond != 2.5 || cfg.Client.UserAgent != "EnvAgent/2.0" {
		t.Errorf("client = %+v", cfg.Client)
	}
	if !cfg.Logging.Pretty {
		t.Error("Logging.Pretty not applied")
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := map[string]string{
		"DOMUS_REDIS_DB":            "two",
		"DOMUS_BULK_TIMEOUT":        "soon",
		"DOMUS_REDIS_ENABLED":       "maybe",
		"DOMUS_REQUESTS_PER_SECOND": "fast",
	}

	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			err := applyEnv(Default(), envMap(map[string]string{name: value}))
			if err == nil || !strings.Contains(err.Error(), name) {
				t.Errorf("applyEnv() error = %v, want one naming %s", err, name)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing user agent",
			mutate:  func(c *Config) { c.Client.UserAgent = " " },
			wantErr: "user_agent",
		},
		{
			name: "keepalive above connections",
			mutate: func(c *Config) {
				c.Bulk.MaxConnections = 10
				c.Bulk.MaxKeepaliveConnections = 20
			},
			wantErr: "exceeds",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Client.MaxRetries = -1 },
			wantErr: "max_retries",
		},
		{
			name: "redis without addr",
			mutate: func(c *Config) {
				c.Redis.Enabled = true
				c.Redis.Addr = ""
			},
			wantErr: "redis.addr",
		},
		{
			name:    "empty server addr",
			mutate:  func(c *Config) { c.Server.Addr = "" },
			wantErr: "server.addr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
