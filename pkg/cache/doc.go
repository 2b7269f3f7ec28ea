// Package cache stores provider responses in Redis.
//
// Entries carry the upstream validators so a stale entry can be revalidated
// with a conditional request instead of a full fetch:
//
//   - ETag (If-None-Match) and Last-Modified (If-Modified-Since)
//   - TTL from Cache-Control max-age, then Expires, then a caller fallback
//   - no-store and no-cache responses are never stored
//   - deterministic keys: domus:<host>:<path>:<sorted query>
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Host:        "www.redfin.com",
//		Endpoint:    "/stingray/do/query-location",
//		QueryParams: url.Values{"location": []string{"60014"}, "v": []string{"1"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch upstream, then:
//		entry, _ = cache.ResponseToEntry(resp)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// # Metrics
//
//   - domus_cache_hits_total{layer="redis"}
//   - domus_cache_misses_total
//   - domus_cache_size_bytes{layer="redis"}
//   - domus_conditional_requests_total
//   - domus_304_responses_total
//   - domus_cache_errors_total{operation}
package cache
