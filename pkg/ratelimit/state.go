// Package ratelimit keeps the client polite towards upstream providers.
//
// A Tracker records per-host cooldowns announced by 429 and 503 responses
// (honoring Retry-After) and shares them through Redis so every process
// backs off together. A HostLimiter paces outgoing requests per host with a
// token bucket.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RedisKeyPrefix prefixes the per-host cooldown keys.
const RedisKeyPrefix = "domus:cooldown:"

const (
	// DefaultCooldown applies when a throttling response carries no usable Retry-After.
	DefaultCooldown = 60 * time.Second

	// MaxCooldown caps what a provider can ask for.
	MaxCooldown = 1 * time.Hour
)

// CooldownState is the backoff window of one provider host.
type CooldownState struct {
	Host string `json:"host"`

	// Until is when requests to Host may resume. Zero means no cooldown.
	Until time.Time `json:"until"`

	// LastStatus is the status code that started the cooldown.
	LastStatus int `json:"last_status"`

	LastUpdate time.Time `json:"last_update"`
}

// Active reports whether the host is still cooling down.
func (s *CooldownState) Active() bool {
	return time.Now().Before(s.Until)
}

// Remaining returns the time left in the cooldown, or 0.
func (s *CooldownState) Remaining() time.Duration {
	d := time.Until(s.Until)
	if d < 0 {
		return 0
	}
	return d
}

// IsStale returns true if the state is older than maxAge.
func (s *CooldownState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// RedisKey returns the Redis key holding the cooldown of host.
func RedisKey(host string) string {
	return RedisKeyPrefix + strings.ToLower(host)
}

// TriggersCooldown reports whether a response status asks the client to back off.
func TriggersCooldown(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// ParseRetryAfter reads a Retry-After value given either in seconds or as
// an HTTP date. ok is false when the value is missing or malformed.
func ParseRetryAfter(value string, now time.Time) (d time.Duration, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return clampCooldown(time.Duration(secs) * time.Second), true
	}

	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return clampCooldown(d), true
	}

	return 0, false
}

func clampCooldown(d time.Duration) time.Duration {
	if d > MaxCooldown {
		return MaxCooldown
	}
	return d
}
