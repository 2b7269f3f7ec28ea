package cache

import (
	"net/http"
	"time"
)

// CacheEntry is one stored provider response.
type CacheEntry struct {
	// URL of the request that produced the entry, for debugging.
	URL string `json:"url,omitempty"`

	Data       []byte      `json:"data"`
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`

	// Validators for revalidation.
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"last_modified"`

	CachedAt time.Time `json:"cached_at"`
	Expires  time.Time `json:"expires"`
}

// IsExpired reports whether the entry is past Expires.
func (e *CacheEntry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL is the remaining lifetime, never negative.
func (e *CacheEntry) TTL() time.Duration {
	return max(time.Until(e.Expires), 0)
}

// Age is the time since the entry was stored.
func (e *CacheEntry) Age() time.Duration {
	return time.Since(e.CachedAt)
}

// HasValidators reports whether the entry can be revalidated with a
// conditional request.
func (e *CacheEntry) HasValidators() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}
