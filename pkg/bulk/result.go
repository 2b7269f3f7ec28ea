package bulk

import (
	"net/http"
	"time"
)

// Result pairs a request's correlation key with either a response or a failure.
//
// A transport failure (timeout, DNS, refused connection, abandoned at the
// deadline) sets Err and leaves StatusCode at 0. Any HTTP response, including
// non-2xx, is a successful Result with Err == nil.
type Result struct {
	Key        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	Err        error
}

// Failed reports whether the request never produced a response.
func (r Result) Failed() bool {
	return r.Err != nil
}

// OK reports whether a response arrived with a 2xx status.
func (r Result) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Class returns the status class of the response. Failed results report StatusClassFailed.
func (r Result) Class() StatusClass {
	if r.Failed() {
		return StatusClassFailed
	}
	return ClassifyStatus(r.StatusCode)
}

// AsError folds the result into a single error: the transport failure, a
// *StatusError for non-2xx responses, or nil.
func (r Result) AsError() error {
	if r.Err != nil {
		return r.Err
	}
	if !r.OK() {
		return &StatusError{Key: r.Key, StatusCode: r.StatusCode, Class: r.Class()}
	}
	return nil
}

// ByKey indexes results by correlation key.
func ByKey(results []Result) map[string]Result {
	m := make(map[string]Result, len(results))
	for _, r := range results {
		m[r.Key] = r
	}
	return m
}

// SortByKeys returns results ordered by keys. Keys without a result are skipped
// and results whose key is not listed are dropped.
func SortByKeys(results []Result, keys []string) []Result {
	index := ByKey(results)
	sorted := make([]Result, 0, len(keys))
	for _, k := range keys {
		if r, ok := index[k]; ok {
			sorted = append(sorted, r)
		}
	}
	return sorted
}

// Successful filters results down to those with a 2xx response, preserving order.
func Successful(results []Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.OK() {
			out = append(out, r)
		}
	}
	return out
}
