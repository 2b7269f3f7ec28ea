//go:build integration

package ratelimit

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func newIntegrationTracker(t *testing.T) (*Tracker, *redis.Client) {
	redisClient, cleanup := setupRedis(t)
	t.Cleanup(cleanup)

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	return NewTracker(redisClient, logger), redisClient
}

func TestTracker_Integration_DefaultState(t *testing.T) {
	tracker, _ := newIntegrationTracker(t)
	ctx := context.Background()

	state, err := tracker.GetState(ctx, "www.redfin.com")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Active() {
		t.Error("empty Redis should yield an inactive cooldown")
	}
	if state.Host != "www.redfin.com" {
		t.Errorf("Host = %q, want www.redfin.com", state.Host)
	}
}

func TestTracker_Integration_SharedBetweenTrackers(t *testing.T) {
	first, redisClient := newIntegrationTracker(t)
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	second := NewTracker(redisClient, logger)
	ctx := context.Background()

	header := http.Header{"Retry-After": []string{"30"}}
	if err := first.UpdateFromResponse(ctx, "www.zillow.com", http.StatusTooManyRequests, header); err != nil {
		t.Fatalf("UpdateFromResponse() error = %v", err)
	}

	allowed, err := second.ShouldAllowRequest(ctx, "www.zillow.com")
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("second tracker ignored cooldown stored by the first")
	}

	state, err := second.GetState(ctx, "www.zillow.com")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.LastStatus != http.StatusTooManyRequests {
		t.Errorf("LastStatus = %d, want 429", state.LastStatus)
	}
	if r := state.Remaining(); r < 28*time.Second || r > 30*time.Second {
		t.Errorf("Remaining() = %v, want about 30s", r)
	}
}

func TestTracker_Integration_KeyExpiresWithCooldown(t *testing.T) {
	tracker, redisClient := newIntegrationTracker(t)
	ctx := context.Background()

	header := http.Header{"Retry-After": []string{"1"}}
	if err := tracker.UpdateFromResponse(ctx, "www.homes.com", http.StatusServiceUnavailable, header); err != nil {
		t.Fatalf("UpdateFromResponse() error = %v", err)
	}

	ttl, err := redisClient.TTL(ctx, RedisKey("www.homes.com")).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Second {
		t.Errorf("key TTL = %v, want (0, 1s]", ttl)
	}

	time.Sleep(1500 * time.Millisecond)

	exists, err := redisClient.Exists(ctx, RedisKey("www.homes.com")).Result()
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists != 0 {
		t.Error("cooldown key still present after expiry")
	}

	allowed, err := tracker.ShouldAllowRequest(ctx, "www.homes.com")
	if err != nil || !allowed {
		t.Errorf("ShouldAllowRequest() after expiry = %v, %v; want true, nil", allowed, err)
	}
}
