package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts including the first one.
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// BackoffMultiplier grows the backoff after each failed attempt.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// initialBackoffFor stretches the first wait for classes that need longer to recover.
func (c RetryConfig) initialBackoffFor(class ErrorClass) time.Duration {
	switch class {
	case ErrorClassRateLimit:
		return c.InitialBackoff * 4
	case ErrorClassNetwork:
		return c.InitialBackoff * 2
	default:
		return c.InitialBackoff
	}
}

// retryWithBackoff calls fn until it succeeds, fails with a class that is
// not retried, or runs out of attempts. Failures are expected as
// *ProviderError so the class and any Retry-After can be read; other errors
// are returned as-is. A Retry-After beyond MaxBackoff ends the loop early.
func retryWithBackoff(ctx context.Context, config RetryConfig, fn func() error) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error
	var backoff time.Duration
	var class ErrorClass

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("error_class", string(class)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}
		lastErr = err

		var perr *ProviderError
		if !errors.As(err, &perr) || !shouldRetry(perr.ErrorClass) {
			return err
		}
		class = perr.ErrorClass

		if attempt >= config.MaxAttempts {
			break
		}

		if backoff == 0 {
			backoff = config.initialBackoffFor(class)
		}

		// Add jitter (±20% randomness)
		wait := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		if perr.RetryAfter > 0 {
			if perr.RetryAfter > config.MaxBackoff {
				log.Warn().
					Str("host", perr.Host).
					Dur("retry_after", perr.RetryAfter).
					Msg("Retry-After exceeds max backoff - giving up")
				return err
			}
			wait = max(wait, perr.RetryAfter)
		}

		retriesTotal.WithLabelValues(string(class)).Inc()
		retryBackoffSeconds.WithLabelValues(string(class)).Observe(wait.Seconds())

		log.Debug().
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Warn().
				Str("error_class", string(class)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	retryExhaustedTotal.WithLabelValues(string(class)).Inc()
	log.Warn().
		Str("error_class", string(class)).
		Int("max_attempts", config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxAttempts, lastErr)
}
