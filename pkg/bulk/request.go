package bulk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// allowedMethods lists the HTTP methods a Request may carry.
var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// Request is an immutable description of one outbound call.
// The fetcher clones Header before dispatch and never writes to it.
type Request struct {
	// Key correlates the Result back to this request (e.g. "dest-3", "schools").
	// It must be non-empty and unique within a batch.
	Key string

	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Get builds a GET request. query is merged into any query already present in rawURL.
func Get(key, rawURL string, query url.Values, header http.Header) Request {
	return Request{
		Key:    key,
		Method: http.MethodGet,
		URL:    withQuery(rawURL, query),
		Header: header,
	}
}

// PostJSON builds a POST request with a JSON-encoded payload.
func PostJSON(key, rawURL string, query url.Values, header http.Header, payload any) (Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Request{}, fmt.Errorf("marshal payload for %q: %w", key, err)
	}

	h := cloneHeader(header)
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/json")
	}

	return Request{
		Key:    key,
		Method: http.MethodPost,
		URL:    withQuery(rawURL, query),
		Header: h,
		Body:   body,
	}, nil
}

// PostForm builds a POST request with an application/x-www-form-urlencoded body.
func PostForm(key, rawURL string, form url.Values, header http.Header) Request {
	h := cloneHeader(header)
	h.Set("Content-Type", "application/x-www-form-urlencoded")

	return Request{
		Key:    key,
		Method: http.MethodPost,
		URL:    rawURL,
		Header: h,
		Body:   []byte(form.Encode()),
	}
}

// Validate reports whether the request can be dispatched.
// A failing request is a programmer error and never reaches the network.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Key) == "" {
		return fmt.Errorf("%w: empty correlation key", ErrInvalidRequest)
	}

	if !allowedMethods[r.Method] {
		return fmt.Errorf("%w: key %q: unsupported method %q", ErrInvalidRequest, r.Key, r.Method)
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("%w: key %q: parse url: %v", ErrInvalidRequest, r.Key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: key %q: url scheme must be http or https (got %q)", ErrInvalidRequest, r.Key, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: key %q: url has no host", ErrInvalidRequest, r.Key)
	}

	return nil
}

// NewHTTPRequest builds a fresh *http.Request bound to ctx.
func (r Request) NewHTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request %q: %w", r.Key, err)
	}
	if r.Header != nil {
		req.Header = r.Header.Clone()
	}

	return req, nil
}

// Host returns the host portion of the request URL, or "" if it does not parse.
func (r Request) Host() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return u.Host
}

// Keys returns the correlation keys of requests in input order.
func Keys(requests []Request) []string {
	keys := make([]string, len(requests))
	for i, r := range requests {
		keys[i] = r.Key
	}
	return keys
}

// validateBatch checks every request and rejects duplicate keys.
func validateBatch(requests []Request) error {
	seen := make(map[string]int, len(requests))
	for i, r := range requests {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("request %d: %w", i, err)
		}
		if prev, dup := seen[r.Key]; dup {
			return fmt.Errorf("request %d: %w: duplicate key %q (first at %d)", i, ErrInvalidRequest, r.Key, prev)
		}
		seen[r.Key] = i
	}
	return nil
}

func withQuery(rawURL string, query url.Values) string {
	if len(query) == 0 {
		return rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		// Left for Validate to report.
		return rawURL
	}

	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return make(http.Header)
	}
	return h.Clone()
}
