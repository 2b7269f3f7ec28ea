package bulk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/domus-client/internal/testutil"
)

func TestNewFetcher_Defaults(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected Config
	}{
		{
			name:   "zero config gets defaults",
			config: Config{},
			expected: Config{
				MaxConnections:          DefaultMaxConnections,
				MaxKeepaliveConnections: DefaultMaxKeepaliveConnections,
				Timeout:                 DefaultTimeout,
			},
		},
		{
			name: "explicit values kept",
			config: Config{
				MaxConnections:          8,
				MaxKeepaliveConnections: 4,
				Timeout:                 2 * time.Second,
				UserAgent:               "test/1.0",
			},
			expected: Config{
				MaxConnections:          8,
				MaxKeepaliveConnections: 4,
				Timeout:                 2 * time.Second,
				UserAgent:               "test/1.0",
			},
		},
		{
			name:   "negative timeout disables deadline",
			config: Config{Timeout: -1},
			expected: Config{
				MaxConnections:          DefaultMaxConnections,
				MaxKeepaliveConnections: DefaultMaxKeepaliveConnections,
				Timeout:                 -1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewFetcher(tt.config).Config()
			if got != tt.expected {
				t.Errorf("Config() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestFetch_AllKeysReturned(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()

	var requests []Request
	for i := 1; i <= 25; i++ {
		path := fmt.Sprintf("/item/%d", i)
		mock.SetResponse(path, testutil.NewJSONResponse(fmt.Sprintf(`{"id":%d}`, i)))
		requests = append(requests, Get(fmt.Sprintf("item-%d", i), mock.URL()+path, nil, nil))
	}

	results, err := NewFetcher(DefaultConfig()).Fetch(context.Background(), requests)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(results) != len(requests) {
		t.Fatalf("got %d results, want %d", len(results), len(requests))
	}

	index := ByKey(results)
	if len(index) != len(requests) {
		t.Fatalf("got %d distinct keys, want %d", len(index), len(requests))
	}

	for i, req := range requests {
		r, ok := index[req.Key]
		if !ok {
			t.Errorf("missing result for key %q", req.Key)
			continue
		}
		if !r.OK() {
			t.Errorf("key %q: OK() = false (status=%d err=%v)", req.Key, r.StatusCode, r.Err)
		}
		want := fmt.Sprintf(`{"id":%d}`, i+1)
		if string(r.Body) != want {
			t.Errorf("key %q: body = %s, want %s", req.Key, r.Body, want)
		}
	}
}

func TestFetch_TransportFailureIsolated(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()

	requests := []Request{
		Get("a", mock.URL()+"/a", nil, nil),
		Get("b", testutil.ClosedURL()+"/b", nil, nil),
		Get("c", mock.URL()+"/c", nil, nil),
		Get("d", mock.URL()+"/d", nil, nil),
	}

	results, err := NewFetcher(DefaultConfig()).Fetch(context.Background(), requests)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	index := ByKey(results)
	if len(index) != 4 {
		t.Fatalf("got %d keys, want 4", len(index))
	}

	if !index["b"].Failed() {
		t.Errorf("b: Failed() = false, want true")
	}
	if index["b"].StatusCode != 0 {
		t.Errorf("b: StatusCode = %d, want 0", index["b"].StatusCode)
	}

	for _, key := range []string{"a", "c", "d"} {
		if !index[key].OK() {
			t.Errorf("%s: OK() = false (err=%v)", key, index[key].Err)
		}
	}
}

func TestFetch_DeadlineConvertsPendingToFailures(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()

	mock.SetResponse("/a", testutil.NewJSONResponse(`"A"`))
	mock.SetHanging("/b")
	mock.SetResponse("/c", testutil.NewJSONResponse(`"C"`))

	requests := []Request{
		Get("A", mock.URL()+"/a", nil, nil),
		Get("B", mock.URL()+"/b", nil, nil),
		Get("C", mock.URL()+"/c", nil, nil),
	}

	fetcher := NewFetcher(Config{Timeout: 300 * time.Millisecond})

	start := time.Now()
	results, err := fetcher.Fetch(context.Background(), requests)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if elapsed > 5*time.Second {
		t.Errorf("Fetch() took %v, want bounded by the deadline", elapsed)
	}

	index := ByKey(results)
	if !index["A"].OK() || !index["C"].OK() {
		t.Errorf("A/C should succeed: A=%v C=%v", index["A"].Err, index["C"].Err)
	}
	if !errors.Is(index["B"].Err, ErrDeadlineExceeded) {
		t.Errorf("B: Err = %v, want ErrDeadlineExceeded", index["B"].Err)
	}

	ordered := Successful(SortByKeys(results, Keys(requests)))
	var got []string
	for _, r := range ordered {
		got = append(got, r.Key)
	}
	if strings.Join(got, ",") != "A,C" {
		t.Errorf("sorted successful keys = %v, want [A C]", got)
	}
}

func TestFetch_CallerCancellation(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()

	mock.SetHanging("/slow")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	requests := []Request{
		Get("one", mock.URL()+"/slow", nil, nil),
		Get("two", mock.URL()+"/slow", nil, nil),
	}

	results, err := NewFetcher(Config{Timeout: -1}).Fetch(ctx, requests)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if !errors.Is(r.Err, ErrCancelled) {
			t.Errorf("%s: Err = %v, want ErrCancelled", r.Key, r.Err)
		}
	}
}

func TestFetch_ConnectionCeiling(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()

	mock.SetResponse("/slow", delayedResponse(20*time.Millisecond))

	const limit = 3
	var requests []Request
	for i := 0; i < 20; i++ {
		requests = append(requests, Get(fmt.Sprintf("r%d", i), mock.URL()+"/slow", nil, nil))
	}

	results, err := NewFetcher(Config{MaxConnections: limit, MaxKeepaliveConnections: limit}).Fetch(context.Background(), requests)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(Successful(results)) != len(requests) {
		t.Errorf("got %d successful results, want %d", len(Successful(results)), len(requests))
	}
	if got := mock.MaxInflight(); got > limit {
		t.Errorf("max in-flight = %d, want <= %d", got, limit)
	}
}

func TestFetch_NonSuccessStatusIsData(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()

	statuses := map[string]int{
		"unauthorized": http.StatusUnauthorized,
		"forbidden":    http.StatusForbidden,
		"bad-request":  http.StatusBadRequest,
		"not-found":    http.StatusNotFound,
		"throttled":    http.StatusTooManyRequests,
		"server-error": http.StatusInternalServerError,
	}
	wantClass := map[string]StatusClass{
		"unauthorized": StatusClassAuth,
		"forbidden":    StatusClassAuth,
		"bad-request":  StatusClassInvalid,
		"not-found":    StatusClassInvalid,
		"throttled":    StatusClassRateLimit,
		"server-error": StatusClassOther,
	}

	var requests []Request
	for key, status := range statuses {
		mock.SetResponse("/"+key, testutil.NewStatusResponse(status))
		requests = append(requests, Get(key, mock.URL()+"/"+key, nil, nil))
	}

	results, err := NewFetcher(DefaultConfig()).Fetch(context.Background(), requests)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	for _, r := range results {
		if r.Failed() {
			t.Errorf("%s: Failed() = true, non-2xx must not be a failure: %v", r.Key, r.Err)
		}
		if r.StatusCode != statuses[r.Key] {
			t.Errorf("%s: StatusCode = %d, want %d", r.Key, r.StatusCode, statuses[r.Key])
		}
		if r.Class() != wantClass[r.Key] {
			t.Errorf("%s: Class() = %s, want %s", r.Key, r.Class(), wantClass[r.Key])
		}

		var statusErr *StatusError
		if !errors.As(r.AsError(), &statusErr) {
			t.Errorf("%s: AsError() = %v, want *StatusError", r.Key, r.AsError())
		}
	}
}

func TestFetch_RepeatableClassification(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()

	mock.SetResponse("/ok", testutil.NewJSONResponse(`{}`))
	mock.SetResponse("/missing", testutil.NewStatusResponse(http.StatusNotFound))
	closed := testutil.ClosedURL()

	requests := []Request{
		Get("ok", mock.URL()+"/ok", nil, nil),
		Get("missing", mock.URL()+"/missing", nil, nil),
		Get("down", closed+"/down", nil, nil),
	}

	fetcher := NewFetcher(DefaultConfig())
	first, err := fetcher.Fetch(context.Background(), requests)
	if err != nil {
		t.Fatalf("first Fetch() error = %v", err)
	}
	second, err := fetcher.Fetch(context.Background(), requests)
	if err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}

	a, b := ByKey(first), ByKey(second)
	for _, key := range Keys(requests) {
		if a[key].Class() != b[key].Class() {
			t.Errorf("%s: class %s then %s", key, a[key].Class(), b[key].Class())
		}
	}
}

func TestFetch_Validation(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()

	valid := Get("ok", mock.URL()+"/ok", nil, nil)

	tests := []struct {
		name     string
		requests []Request
	}{
		{name: "empty key", requests: []Request{valid, Get("", mock.URL(), nil, nil)}},
		{name: "duplicate key", requests: []Request{valid, valid}},
		{name: "bad method", requests: []Request{{Key: "x", Method: "FETCH", URL: mock.URL()}}},
		{name: "missing method", requests: []Request{{Key: "x", URL: mock.URL()}}},
		{name: "bad scheme", requests: []Request{Get("x", "ftp://example.com/file", nil, nil)}},
		{name: "no host", requests: []Request{Get("x", "http:///path", nil, nil)}},
		{name: "unparsable url", requests: []Request{Get("x", "http://[::1", nil, nil)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.Reset()

			results, err := NewFetcher(DefaultConfig()).Fetch(context.Background(), tt.requests)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("Fetch() error = %v, want ErrInvalidRequest", err)
			}
			if results != nil {
				t.Errorf("results = %v, want nil", results)
			}
			if mock.RequestCount() != 0 {
				t.Errorf("server saw %d requests, want 0", mock.RequestCount())
			}
		})
	}
}

func TestFetch_EmptyBatch(t *testing.T) {
	results, err := NewFetcher(DefaultConfig()).Fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestFetchOne_MatchesDirectCall(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()

	mock.SetResponse("/single", testutil.NewJSONResponse(`{"value":42}`))

	direct, err := http.Get(mock.URL() + "/single")
	if err != nil {
		t.Fatalf("direct GET error = %v", err)
	}
	direct.Body.Close()

	result, err := NewFetcher(DefaultConfig()).FetchOne(context.Background(), Get("single", mock.URL()+"/single", nil, nil))
	if err != nil {
		t.Fatalf("FetchOne() error = %v", err)
	}

	if result.StatusCode != direct.StatusCode {
		t.Errorf("StatusCode = %d, want %d", result.StatusCode, direct.StatusCode)
	}
	if string(result.Body) != `{"value":42}` {
		t.Errorf("Body = %s", result.Body)
	}
}

func TestFetch_UserAgentDefault(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()

	fetcher := NewFetcher(Config{UserAgent: "domus-test/1.0"})

	header := http.Header{}
	if _, err := fetcher.FetchOne(context.Background(), Get("ua", mock.URL()+"/ua", nil, header)); err != nil {
		t.Fatalf("FetchOne() error = %v", err)
	}
	if got := mock.LastRequestHeader().Get("User-Agent"); got != "domus-test/1.0" {
		t.Errorf("User-Agent = %q, want domus-test/1.0", got)
	}
	if len(header) != 0 {
		t.Errorf("caller header mutated: %v", header)
	}

	header.Set("User-Agent", "custom")
	if _, err := fetcher.FetchOne(context.Background(), Get("ua", mock.URL()+"/ua", nil, header)); err != nil {
		t.Fatalf("FetchOne() error = %v", err)
	}
	if got := mock.LastRequestHeader().Get("User-Agent"); got != "custom" {
		t.Errorf("User-Agent = %q, want custom", got)
	}
}

// delayedResponse is a 200 response that takes d to arrive.
func delayedResponse(d time.Duration) testutil.MockResponse {
	resp := testutil.NewJSONResponse(`{}`)
	resp.Delay = d
	return resp
}
