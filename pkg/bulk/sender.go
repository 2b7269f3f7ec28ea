package bulk

import "context"

// Sender performs a single request. *Fetcher implements it with a batch of
// one; the caching, retrying client in pkg/client does too.
type Sender interface {
	Send(ctx context.Context, request Request) (Result, error)
}

// BatchFetcher performs many requests concurrently.
type BatchFetcher interface {
	Fetch(ctx context.Context, requests []Request) ([]Result, error)
}

// Send implements Sender.
func (f *Fetcher) Send(ctx context.Context, request Request) (Result, error) {
	return f.FetchOne(ctx, request)
}

var (
	_ Sender       = (*Fetcher)(nil)
	_ BatchFetcher = (*Fetcher)(nil)
)
