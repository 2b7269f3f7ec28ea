package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Tracker records provider cooldowns and gates requests on them.
// With a Redis client the state is shared between processes; without one it
// is kept in memory.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	mu    sync.Mutex
	local map[string]CooldownState
}

// NewTracker creates a new cooldown tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		local:  make(map[string]CooldownState),
	}
}

// GetState returns the cooldown state of host. A host without a recorded
// cooldown gets an inactive state.
func (t *Tracker) GetState(ctx context.Context, host string) (*CooldownState, error) {
	host = strings.ToLower(host)

	if t.redis == nil {
		t.mu.Lock()
		state, ok := t.local[host]
		t.mu.Unlock()
		if !ok {
			return &CooldownState{Host: host}, nil
		}
		return &state, nil
	}

	data, err := t.redis.Get(ctx, RedisKey(host)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &CooldownState{Host: host}, nil
		}
		return nil, fmt.Errorf("get cooldown state: %w", err)
	}

	var state CooldownState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse cooldown state: %w", err)
	}
	return &state, nil
}

// UpdateFromResponse starts a cooldown for host when status is 429 or 503.
// Other statuses leave the state untouched.
func (t *Tracker) UpdateFromResponse(ctx context.Context, host string, status int, header http.Header) error {
	if !TriggersCooldown(status) {
		return nil
	}
	host = strings.ToLower(host)

	now := time.Now()
	wait, ok := ParseRetryAfter(header.Get("Retry-After"), now)
	if !ok {
		wait = DefaultCooldown
	}

	state := CooldownState{
		Host:       host,
		Until:      now.Add(wait),
		LastStatus: status,
		LastUpdate: now,
	}

	if err := t.store(ctx, state, wait); err != nil {
		return err
	}

	cooldownsStartedTotal.WithLabelValues(host, strconv.Itoa(status)).Inc()
	cooldownSeconds.WithLabelValues(host).Set(wait.Seconds())

	t.logger.Warn().
		Str("host", host).
		Int("status", status).
		Dur("cooldown", wait).
		Time("until", state.Until).
		Msg("Provider asked to back off - cooling down host")

	return nil
}

func (t *Tracker) store(ctx context.Context, state CooldownState, ttl time.Duration) error {
	if t.redis == nil {
		t.mu.Lock()
		t.local[state.Host] = state
		t.mu.Unlock()
		return nil
	}

	// A zero TTL would make the key permanent.
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal cooldown state: %w", err)
	}

	if err := t.redis.Set(ctx, RedisKey(state.Host), data, ttl).Err(); err != nil {
		return fmt.Errorf("store cooldown state in redis: %w", err)
	}
	return nil
}

// ShouldAllowRequest reports whether a request to host may be sent now.
func (t *Tracker) ShouldAllowRequest(ctx context.Context, host string) (bool, error) {
	state, err := t.GetState(ctx, host)
	if err != nil {
		return false, fmt.Errorf("get cooldown state: %w", err)
	}

	if state.Active() {
		t.logger.Warn().
			Str("host", state.Host).
			Int("last_status", state.LastStatus).
			Dur("remaining", state.Remaining()).
			Msg("Host cooling down - blocking request")

		cooldownBlocksTotal.WithLabelValues(state.Host).Inc()
		return false, nil
	}

	return true, nil
}
