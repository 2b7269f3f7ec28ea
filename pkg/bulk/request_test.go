package bulk

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"testing"
)

func TestGet_MergesQuery(t *testing.T) {
	req := Get("k", "https://example.com/search?a=1", url.Values{"b": {"2"}}, nil)

	u, err := url.Parse(req.URL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Query().Get("a") != "1" || u.Query().Get("b") != "2" {
		t.Errorf("query = %q, want a=1 and b=2", u.RawQuery)
	}
	if req.Method != http.MethodGet {
		t.Errorf("Method = %s, want GET", req.Method)
	}
}

func TestPostJSON(t *testing.T) {
	req, err := PostJSON("k", "https://example.com/api", nil, http.Header{"X-Test": {"1"}}, map[string]any{"term": "60014"})
	if err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}

	if string(req.Body) != `{"term":"60014"}` {
		t.Errorf("Body = %s", req.Body)
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", req.Header.Get("Content-Type"))
	}
	if req.Header.Get("X-Test") != "1" {
		t.Errorf("caller header lost")
	}
}

func TestPostJSON_MarshalError(t *testing.T) {
	if _, err := PostJSON("k", "https://example.com", nil, nil, make(chan int)); err == nil {
		t.Error("PostJSON() with unmarshalable payload should fail")
	}
}

func TestPostForm(t *testing.T) {
	req := PostForm("k", "https://example.com/query", url.Values{"text": {"60014"}, "f": {"geojson"}}, nil)

	if req.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", req.Header.Get("Content-Type"))
	}
	if string(req.Body) != "f=geojson&text=60014" {
		t.Errorf("Body = %s", req.Body)
	}
}

func TestNewHTTPRequest_ClonesHeaderAndBody(t *testing.T) {
	header := http.Header{"Accept": {"application/json"}}
	req := Request{Key: "k", Method: http.MethodPost, URL: "https://example.com", Header: header, Body: []byte("payload")}

	for i := 0; i < 2; i++ {
		httpReq, err := req.NewHTTPRequest(context.Background())
		if err != nil {
			t.Fatalf("NewHTTPRequest() error = %v", err)
		}
		httpReq.Header.Set("Accept", "changed")

		body, _ := io.ReadAll(httpReq.Body)
		if string(body) != "payload" {
			t.Errorf("attempt %d: body = %q", i, body)
		}
	}

	if header.Get("Accept") != "application/json" {
		t.Errorf("source header mutated: %v", header)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code     int
		expected StatusClass
	}{
		{200, StatusClassOK},
		{204, StatusClassOK},
		{301, StatusClassOther},
		{400, StatusClassInvalid},
		{401, StatusClassAuth},
		{403, StatusClassAuth},
		{404, StatusClassInvalid},
		{429, StatusClassRateLimit},
		{500, StatusClassOther},
		{503, StatusClassOther},
	}

	for _, tt := range tests {
		if got := ClassifyStatus(tt.code); got != tt.expected {
			t.Errorf("ClassifyStatus(%d) = %s, want %s", tt.code, got, tt.expected)
		}
	}
}

func TestSortByKeys(t *testing.T) {
	results := []Result{{Key: "c"}, {Key: "a"}, {Key: "b"}, {Key: "stray"}}

	sorted := SortByKeys(results, []string{"a", "b", "c", "missing"})

	if len(sorted) != 3 {
		t.Fatalf("len = %d, want 3", len(sorted))
	}
	for i, want := range []string{"a", "b", "c"} {
		if sorted[i].Key != want {
			t.Errorf("sorted[%d] = %s, want %s", i, sorted[i].Key, want)
		}
	}
}
