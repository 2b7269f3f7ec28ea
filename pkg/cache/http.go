package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTTL is the fallback TTL when the response carries no freshness headers.
	// Most aggregator endpoints send none.
	DefaultTTL = 5 * time.Minute
)

// ResponseToEntry converts an HTTP response to a CacheEntry using DefaultTTL
// as the fallback lifetime. The response body is restored after reading.
func ResponseToEntry(resp *http.Response) (*CacheEntry, error) {
	return ResponseToEntryWithTTL(resp, DefaultTTL)
}

// ResponseToEntryWithTTL is ResponseToEntry with an explicit fallback TTL.
func ResponseToEntryWithTTL(resp *http.Response, fallback time.Duration) (*CacheEntry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := &CacheEntry{
		Data:       body,
		ETag:       resp.Header.Get("ETag"),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		CachedAt:   time.Now(),
		Expires:    ExpiresFromHeaders(resp.Header, fallback),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		entry.URL = resp.Request.URL.String()
	}

	if lastModStr := resp.Header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry, nil
}

// EntryToResponse rebuilds an HTTP response from a cache entry.
func EntryToResponse(entry *CacheEntry) *http.Response {
	header := entry.Headers.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set("X-Domus-Cache", "HIT")

	status := entry.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Data)),
		ContentLength: int64(len(entry.Data)),
	}
}

// ExpiresFromHeaders derives the expiry from Cache-Control max-age, then Expires,
// then the fallback. no-store and no-cache yield an already expired time.
func ExpiresFromHeaders(headers http.Header, fallback time.Duration) time.Time {
	now := time.Now()

	if cc := headers.Get("Cache-Control"); cc != "" {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.TrimSpace(strings.ToLower(directive))
			switch {
			case directive == "no-store" || directive == "no-cache":
				return now
			case strings.HasPrefix(directive, "max-age="):
				if secs, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age=")); err == nil && secs >= 0 {
					return now.Add(time.Duration(secs) * time.Second)
				}
			}
		}
	}

	if expiresStr := headers.Get("Expires"); expiresStr != "" {
		if expires, err := http.ParseTime(expiresStr); err == nil {
			if expires.Before(now) {
				return now
			}
			return expires
		}
	}

	return now.Add(fallback)
}

// ShouldMakeConditionalRequest reports whether the entry carries a validator
// (ETag or Last-Modified) usable in a conditional request.
func ShouldMakeConditionalRequest(entry *CacheEntry) bool {
	return entry != nil && entry.HasValidators()
}

// AddConditionalHeaders adds If-None-Match (preferred) or If-Modified-Since.
func AddConditionalHeaders(req *http.Request, entry *CacheEntry) {
	if entry == nil || req == nil {
		return
	}

	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}
