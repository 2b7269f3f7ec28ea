// Package bulk provides concurrent fan-out of prepared HTTP requests.
//
// Callers build a slice of Request values, each carrying a correlation key,
// and hand it to a Fetcher. The fetcher validates the batch, opens a
// connection pool scoped to that batch, drains the requests through a worker
// pool sized by MaxConnections and blocks until every request has a Result.
//
// Example usage:
//
//	fetcher := bulk.NewFetcher(bulk.DefaultConfig())
//	reqs := []bulk.Request{
//		bulk.Get("dest-1", routeURL1, nil, nil),
//		bulk.Get("dest-2", routeURL2, nil, nil),
//	}
//	results, err := fetcher.Fetch(ctx, reqs)
//	ordered := bulk.SortByKeys(results, bulk.Keys(reqs))
//
// The fetcher:
//   - Rejects malformed batches before any I/O (empty or duplicate keys, bad URLs)
//   - Issues all requests at once, bounded by the pool ceiling
//   - Returns non-2xx responses as data, logged by status class
//   - Converts transport failures into failed Results without touching siblings
//   - Converts requests still pending at the deadline into failed Results
//   - Never retries
package bulk
