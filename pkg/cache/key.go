package cache

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache entry in Redis.
const KeyPrefix = "domus"

// CacheKey identifies a cached provider response.
type CacheKey struct {
	// Host is the upstream host (e.g. "www.redfin.com")
	Host string

	// Endpoint is the request path (e.g. "/stingray/do/query-location")
	Endpoint string

	// QueryParams are the query parameters (e.g. {"location": "Crystal Lake, IL"})
	QueryParams url.Values
}

// KeyFromRequest derives the cache key of an outbound request.
func KeyFromRequest(req *http.Request) CacheKey {
	return CacheKey{
		Host:        req.URL.Host,
		Endpoint:    req.URL.Path,
		QueryParams: req.URL.Query(),
	}
}

// String generates a deterministic cache key string.
// Format: domus:host:endpoint:query1=val1:query2=val2a,val2b
//
// Example:
//
//	domus:www.redfin.com:stingray/do/query-location:al=1:location=60014:v=1
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if host := strings.ToLower(k.Host); host != "" {
		parts = append(parts, host)
	}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Query params sorted for determinism; repeated values keep request order.
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.QueryParams[key], ",")))
		}
	}

	return strings.Join(parts, ":")
}
