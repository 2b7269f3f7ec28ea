package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Defaults for Config.
const (
	DefaultMaxConnections          = 500
	DefaultMaxKeepaliveConnections = 500
	DefaultTimeout                 = 30 * time.Second
)

// Config holds bulk fetcher configuration.
type Config struct {
	// MaxConnections caps open connections per host for one batch.
	// It is also the worker count, so larger batches queue instead of failing.
	MaxConnections int

	// MaxKeepaliveConnections caps idle connections kept in the batch pool.
	MaxKeepaliveConnections int

	// Timeout is the batch deadline. Requests still pending when it expires
	// become failure results. Zero means DefaultTimeout, negative disables it.
	Timeout time.Duration

	// UserAgent is applied to requests that carry none.
	UserAgent string
}

// DefaultConfig returns the default bulk configuration.
func DefaultConfig() Config {
	return Config{
		MaxConnections:          DefaultMaxConnections,
		MaxKeepaliveConnections: DefaultMaxKeepaliveConnections,
		Timeout:                 DefaultTimeout,
	}
}

// Fetcher dispatches batches of requests. It holds no connections between
// batches and is safe for concurrent use.
type Fetcher struct {
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a new bulk fetcher.
func NewFetcher(config Config) *Fetcher {
	if config.MaxConnections <= 0 {
		config.MaxConnections = DefaultMaxConnections
	}
	if config.MaxKeepaliveConnections <= 0 {
		config.MaxKeepaliveConnections = DefaultMaxKeepaliveConnections
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Fetcher{
		config: config,
		logger: log.With().Str("component", "bulk-fetcher").Logger(),
	}
}

// Config returns the normalized configuration.
func (f *Fetcher) Config() Config {
	return f.config
}

// Fetch issues every request concurrently and blocks until each one has a
// Result. Results come back in completion order; use SortByKeys to restore
// input order.
//
// The returned error is non-nil only when the batch is malformed, in which
// case nothing is sent.
func (f *Fetcher) Fetch(ctx context.Context, requests []Request) ([]Result, error) {
	if err := validateBatch(requests); err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return []Result{}, nil
	}

	start := time.Now()
	logger := f.logger.With().
		Str("batch_id", uuid.NewString()).
		Int("requests", len(requests)).
		Logger()

	if f.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()
	}

	// Connection pool lives exactly as long as the batch.
	transport := f.newTransport()
	defer transport.CloseIdleConnections()
	httpClient := &http.Client{Transport: transport}

	bulkBatchesTotal.Inc()
	bulkBatchSize.Observe(float64(len(requests)))

	logger.Debug().
		Int("max_connections", f.config.MaxConnections).
		Dur("timeout", f.config.Timeout).
		Msg("Starting bulk fetch")

	queue := make(chan Request, len(requests))
	for _, req := range requests {
		queue <- req
	}
	close(queue)

	results := make(chan Result, len(requests))

	workers := min(f.config.MaxConnections, len(requests))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go f.worker(ctx, httpClient, queue, results, &wg, i, logger)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]Result, 0, len(requests))
	failed := 0
	for result := range results {
		if result.Failed() {
			failed++
		}
		collected = append(collected, result)
	}

	elapsed := time.Since(start)
	bulkBatchDuration.Observe(elapsed.Seconds())

	event := logger.Info()
	if failed > 0 {
		event = logger.Warn()
	}
	event.
		Int("completed", len(collected)-failed).
		Int("failed", failed).
		Dur("duration", elapsed).
		Msg("Bulk fetch complete")

	return collected, nil
}

// FetchOne runs a batch of one.
func (f *Fetcher) FetchOne(ctx context.Context, request Request) (Result, error) {
	results, err := f.Fetch(ctx, []Request{request})
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

// worker drains the queue. Every dequeued request yields exactly one result,
// including after the batch context is done.
func (f *Fetcher) worker(ctx context.Context, httpClient *http.Client, queue <-chan Request, results chan<- Result, wg *sync.WaitGroup, workerID int, logger zerolog.Logger) {
	defer wg.Done()
	processed := 0

	for req := range queue {
		if ctx.Err() != nil {
			results <- Result{Key: req.Key, Err: AbortError(ctx, req.Key, ctx.Err())}
			bulkRequestsTotal.WithLabelValues(req.Host(), string(StatusClassFailed)).Inc()
			continue
		}

		results <- f.do(ctx, httpClient, req, logger)
		processed++
	}

	logger.Debug().
		Int("worker_id", workerID).
		Int("requests_processed", processed).
		Msg("Worker completed")
}

// do performs one request and reads its body.
func (f *Fetcher) do(ctx context.Context, httpClient *http.Client, req Request, logger zerolog.Logger) Result {
	start := time.Now()
	host := req.Host()
	result := Result{Key: req.Key}

	httpReq, err := req.NewHTTPRequest(ctx)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		f.record(logger, host, result)
		return result
	}
	if f.config.UserAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", f.config.UserAgent)
	}

	bulkInflight.Inc()
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		bulkInflight.Dec()
		result.Err = transportError(ctx, req.Key, err)
		result.Duration = time.Since(start)
		f.record(logger, host, result)
		return result
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	bulkInflight.Dec()
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = transportError(ctx, req.Key, fmt.Errorf("read body: %w", err))
		f.record(logger, host, result)
		return result
	}

	result.StatusCode = resp.StatusCode
	result.Header = resp.Header
	result.Body = body
	f.record(logger, host, result)

	return result
}

// record counts the result and logs it at the severity of its status class.
func (f *Fetcher) record(logger zerolog.Logger, host string, result Result) {
	class := result.Class()
	bulkRequestsTotal.WithLabelValues(host, string(class)).Inc()

	event := logger.WithLevel(class.logLevel()).
		Str("key", result.Key).
		Str("host", host).
		Str("status_class", string(class)).
		Dur("duration", result.Duration)

	if result.Failed() {
		event.Err(result.Err).Msg("Bulk request failed")
		return
	}

	event.Int("status", result.StatusCode)
	if class == StatusClassOK {
		event.Msg("Bulk request succeeded")
		return
	}
	event.Msg("Bulk request returned non-success status")
}

func (f *Fetcher) newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxConnsPerHost = f.config.MaxConnections
	t.MaxIdleConns = f.config.MaxKeepaliveConnections
	t.MaxIdleConnsPerHost = f.config.MaxKeepaliveConnections
	return t
}

// transportError attributes a failure to the batch context when that is
// what ended the request.
func transportError(ctx context.Context, key string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return AbortError(ctx, key, err)
	}
	return fmt.Errorf("request %q: %w", key, err)
}

// AbortError attributes cause to the end of ctx, wrapping ErrDeadlineExceeded
// or ErrCancelled.
func AbortError(ctx context.Context, key string, cause error) error {
	sentinel := ErrCancelled
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		sentinel = ErrDeadlineExceeded
	}
	return fmt.Errorf("request %q: %w: %v", key, sentinel, cause)
}
