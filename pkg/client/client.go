// Package client provides a single-call provider client with per-host
// throttling, shared cooldowns, Redis caching and retries.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/domus-client/pkg/bulk"
	"github.com/Sternrassler/domus-client/pkg/cache"
	"github.com/Sternrassler/domus-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Client performs one provider request at a time. For fan-out use
// bulk.Fetcher; Send accepts the same request descriptor.
type Client struct {
	httpClient *http.Client
	cooldowns  *ratelimit.Tracker
	limiter    *ratelimit.HostLimiter
	cache      *cache.Manager
	retry      RetryConfig
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis backs the response cache and shares cooldowns between
	// processes. Nil disables caching and keeps cooldowns in memory.
	Redis *redis.Client

	// UserAgent is sent when a request carries none (REQUIRED).
	// Several providers reject the Go default.
	UserAgent string

	// Per-host token bucket. A non-positive rate disables it.
	RequestsPerSecond float64
	Burst             int

	// CacheTTL applies to cacheable responses without freshness headers.
	CacheTTL time.Duration

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration

	// Timeout bounds each attempt.
	Timeout time.Duration
}

// DefaultConfig returns a polite default configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		Redis:             redis,
		UserAgent:         userAgent,
		RequestsPerSecond: 5,
		Burst:             10,
		CacheTTL:          cache.DefaultTTL,
		MaxRetries:        2,
		InitialBackoff:    500 * time.Millisecond,
		Timeout:           30 * time.Second,
	}
}

// New creates a new provider client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("requests_per_second must be >= 0 (got %v)", cfg.RequestsPerSecond)
	}

	if cfg.Timeout < 0 || cfg.CacheTTL < 0 || cfg.InitialBackoff < 0 {
		return nil, fmt.Errorf("timeout, cache_ttl and initial_backoff must not be negative")
	}

	logger := log.With().Str("component", "domus-client").Logger()

	retry := DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries + 1
	if cfg.InitialBackoff > 0 {
		retry.InitialBackoff = cfg.InitialBackoff
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cooldowns:  ratelimit.NewTracker(cfg.Redis, logger),
		limiter:    ratelimit.NewHostLimiter(cfg.RequestsPerSecond, cfg.Burst),
		retry:      retry,
		config:     cfg,
		logger:     logger,
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// Do performs an HTTP request with cooldown gating, per-host pacing,
// caching and retries.
//
// Non-2xx statuses that are not retried (4xx other than 429) come back as a
// normal response. When retries are exhausted the error wraps
// ErrRetryExhausted and the last *ProviderError.
//
// A fresh cache entry is served without contacting the provider unless the
// request carries "Cache-Control: no-cache", in which case it is revalidated
// with a conditional request.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}

// do is Do, except that on a status-related failure the buffered last
// response is returned together with the error.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	host := strings.ToLower(req.URL.Hostname())

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(host).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check cooldown
	allowed, err := c.cooldowns.ShouldAllowRequest(ctx, host)
	if err != nil {
		c.logger.Error().Err(err).Str("host", host).Msg("Cooldown check failed")
		return nil, fmt.Errorf("cooldown check: %w", err)
	}
	if !allowed {
		requestsTotal.WithLabelValues(host, "cooling_down").Inc()
		return nil, fmt.Errorf("%s: %w", host, ErrHostCoolingDown)
	}

	// Step 2: Check cache
	cacheable := c.cache != nil && req.Method == http.MethodGet
	var cacheKey cache.CacheKey
	var cached *cache.CacheEntry
	if cacheable {
		cacheKey = cache.KeyFromRequest(req)
		cached, err = c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("key", cacheKey.String()).Msg("Cache get error")
		}
		if cached != nil && !wantsRevalidation(req) {
			requestsTotal.WithLabelValues(host, "cache_hit").Inc()
			c.logger.Debug().
				Str("host", host).
				Str("path", req.URL.Path).
				Dur("age", cached.Age()).
				Msg("Serving from cache")
			return cache.EntryToResponse(cached), nil
		}
	}

	c.logger.Debug().
		Str("host", host).
		Str("path", req.URL.Path).
		Str("method", req.Method).
		Msg("Executing provider request")

	// Step 3: Execute with retries
	var resp *http.Response
	retryErr := retryWithBackoff(ctx, c.retry, func() error {
		resp = nil

		if err := c.limiter.Wait(ctx, host); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}

		attempt, err := c.newAttempt(ctx, req, cached)
		if err != nil {
			return err
		}

		r, err := c.httpClient.Do(attempt)
		if err != nil {
			errClass := c.classifyError(nil, err)
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			requestsTotal.WithLabelValues(host, "network_error").Inc()
			c.logger.Warn().Err(err).Str("host", host).Msg("Provider request failed")
			return &ProviderError{
				Host:       host,
				ErrorClass: errClass,
				Message:    "request failed",
				Err:        err,
			}
		}

		if err := c.cooldowns.UpdateFromResponse(ctx, host, r.StatusCode, r.Header); err != nil {
			c.logger.Warn().Err(err).Str("host", host).Msg("Failed to record cooldown")
		}

		resp = r
		requestsTotal.WithLabelValues(host, strconv.Itoa(r.StatusCode)).Inc()
		if r.StatusCode < 400 {
			return nil
		}

		errClass := c.classifyError(r, nil)
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		c.logger.Warn().
			Str("host", host).
			Int("status", r.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Provider request error")

		if !shouldRetry(errClass) {
			return nil
		}

		// Keep the body readable for the caller should this be the last attempt.
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		retryAfter, _ := ratelimit.ParseRetryAfter(r.Header.Get("Retry-After"), time.Now())
		return &ProviderError{
			Host:       host,
			StatusCode: r.StatusCode,
			ErrorClass: errClass,
			Message:    r.Status,
			RetryAfter: retryAfter,
		}
	})
	if retryErr != nil {
		return resp, retryErr
	}

	// Step 4: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified && cached != nil {
		resp.Body.Close()
		cache.NotModifiedResponses.Inc()
		c.logger.Debug().Str("host", host).Str("path", req.URL.Path).Msg("304 Not Modified - using cache")

		expires := cache.ExpiresFromHeaders(resp.Header, c.config.CacheTTL)
		if err := c.cache.UpdateTTL(ctx, cacheKey, expires); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}
		return cache.EntryToResponse(cached), nil
	}

	// Step 5: Update cache on success
	if cacheable && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntryWithTTL(resp, c.config.CacheTTL)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if entry.TTL() > 0 {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("key", cacheKey.String()).
					Dur("ttl", entry.TTL()).
					Msg("Cached response")
			}
		}
	}

	return resp, nil
}

// newAttempt prepares a fresh copy of req for one attempt.
func (c *Client) newAttempt(ctx context.Context, req *http.Request, cached *cache.CacheEntry) (*http.Request, error) {
	attempt := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		attempt.Body = body
	}

	if attempt.Header.Get("User-Agent") == "" {
		attempt.Header.Set("User-Agent", c.config.UserAgent)
	}

	if cached != nil && cache.ShouldMakeConditionalRequest(cached) {
		cache.AddConditionalHeaders(attempt, cached)
		cache.ConditionalRequestsSent.Inc()
	}

	return attempt, nil
}

func wantsRevalidation(req *http.Request) bool {
	return strings.Contains(strings.ToLower(req.Header.Get("Cache-Control")), "no-cache")
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// Send performs one bulk.Request through Do and reports it the way the
// bulk fetcher would: statuses are data, failures land in Result.Err.
// The returned error is non-nil only for an invalid request.
func (c *Client) Send(ctx context.Context, request bulk.Request) (bulk.Result, error) {
	if err := request.Validate(); err != nil {
		return bulk.Result{}, err
	}

	start := time.Now()
	result := bulk.Result{Key: request.Key}

	httpReq, err := request.NewHTTPRequest(ctx)
	if err != nil {
		return bulk.Result{}, err
	}

	resp, err := c.do(httpReq)
	if resp == nil {
		result.Duration = time.Since(start)
		result.Err = resultError(ctx, request.Key, err)
		return result, nil
	}

	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	result.Duration = time.Since(start)
	if readErr != nil {
		result.Err = resultError(ctx, request.Key, fmt.Errorf("read body: %w", readErr))
		return result, nil
	}

	result.StatusCode = resp.StatusCode
	result.Header = resp.Header
	result.Body = body
	return result, nil
}

func resultError(ctx context.Context, key string, err error) error {
	if ctx.Err() != nil {
		return bulk.AbortError(ctx, key, err)
	}
	return fmt.Errorf("request %q: %w", key, err)
}

// Get performs a GET request to rawURL.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Cache returns the cache manager, or nil when caching is disabled.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// Limiter returns the per-host pacing limiter.
func (c *Client) Limiter() *ratelimit.HostLimiter {
	return c.limiter
}

// Cooldowns returns the cooldown tracker.
func (c *Client) Cooldowns() *ratelimit.Tracker {
	return c.cooldowns
}
