package zillow

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"sync"
	"testing"

	"github.com/Sternrassler/domus-client/pkg/geo"
)

var austin = []geo.Polygon{{
	{Lat: 30.3, Lon: -97.8},
	{Lat: 30.3, Lon: -97.6},
	{Lat: 30.1, Lon: -97.7},
}}

func TestRequests_PolygonSearch(t *testing.T) {
	tests := []struct {
		name      string
		filters   Filters
		wantPage  int
		wantSize  int
		wantBeds  intRange
		wantPrice intRange
		wantBaths bool
	}{
		{
			name:      "defaults",
			wantPage:  1,
			wantSize:  DefaultPageSize,
			wantBeds:  intRange{Min: DefaultMinBeds, Max: DefaultMaxBeds},
			wantPrice: intRange{Min: 0, Max: DefaultMaxPrice},
		},
		{
			name:      "filtered",
			filters:   Filters{MinPrice: 300000, MaxPrice: 750000, MinBeds: 2, MaxBeds: 4, MinBaths: 1.5, Page: 3, PageSize: 40},
			wantPage:  3,
			wantSize:  40,
			wantBeds:  intRange{Min: 2, Max: 4},
			wantPrice: intRange{Min: 300000, Max: 750000},
			wantBaths: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Requests{MobileBaseURL: "https://zm.zillow.test"}.PolygonSearch(austin, tt.filters)
			if err != nil {
				t.Fatalf("PolygonSearch() error = %v", err)
			}
			if req.Method != http.MethodPost || req.Key != "polygon-search" {
				t.Errorf("Method/Key = %q/%q", req.Method, req.Key)
			}
			if req.URL != "https://zm.zillow.test/api/public/v2/mobile-search/homes/search" {
				t.Errorf("URL = %q", req.URL)
			}

			var payload searchPayload
			if err := json.Unmarshal(req.Body, &payload); err != nil {
				t.Fatalf("payload: %v", err)
			}
			if payload.Paging.PageNumber != tt.wantPage || payload.Paging.PageSize != tt.wantSize {
				t.Errorf("paging = %+v", payload.Paging)
			}
			if payload.BedroomsRange != tt.wantBeds || payload.PriceRange != tt.wantPrice {
				t.Errorf("beds/price = %+v/%+v", payload.BedroomsRange, payload.PriceRange)
			}
			if (payload.BathroomsRange != nil) != tt.wantBaths {
				t.Errorf("BathroomsRange = %+v", payload.BathroomsRange)
			}

			region := payload.Region
			if region.RegionType != "customPolygon" || region.ClipPolygon != geo.FormatClipPolygon(austin) {
				t.Errorf("region = %+v", region)
			}
			want := boundaries{North: 30.4, South: 30.0, East: -97.5, West: -97.9}
			for name, pair := range map[string][2]float64{
				"north": {region.Boundaries.North, want.North},
				"south": {region.Boundaries.South, want.South},
				"east":  {region.Boundaries.East, want.East},
				"west":  {region.Boundaries.West, want.West},
			} {
				if math.Abs(pair[0]-pair[1]) > 1e-9 {
					t.Errorf("%s = %v, want %v", name, pair[0], pair[1])
				}
			}
		})
	}
}

func TestRequests_PolygonSearch_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		polygons []geo.Polygon
	}{
		{"none", nil},
		{"two points", []geo.Polygon{{{Lat: 30, Lon: -97}, {Lat: 31, Lon: -97}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (Requests{}).PolygonSearch(tt.polygons, Filters{}); !errors.Is(err, ErrInvalidPolygon) {
				t.Errorf("PolygonSearch() error = %v, want ErrInvalidPolygon", err)
			}
		})
	}
}

func TestClient_PolygonSearch(t *testing.T) {
	client, mock := newTestClient(t)
	var (
		mu    sync.Mutex
		clips []string
	)
	mock.SetHandler("/api/public/v2/mobile-search/homes/search", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload searchPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		clips = append(clips, payload.Region.ClipPolygon)
		mu.Unlock()
		w.Write([]byte(`{"searchResults":{"totalResultCount":1}}`))
	})

	ctx := context.Background()
	got, err := client.PolygonSearch(ctx, austin, Filters{})
	if err != nil {
		t.Fatalf("PolygonSearch() error = %v", err)
	}
	if string(got) != `{"searchResults":{"totalResultCount":1}}` {
		t.Errorf("PolygonSearch() = %s", got)
	}

	clip := "clipPolygon=30.3,-97.8|30.3,-97.6|30.1,-97.7|:"
	if _, err := client.ClipPolygonSearch(ctx, clip, Filters{}); err != nil {
		t.Fatalf("ClipPolygonSearch() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(clips) != 2 || clips[0] != clips[1] || clips[1] != clip {
		t.Errorf("clipPolygon sent = %q", clips)
	}

	if _, err := client.ClipPolygonSearch(ctx, "clipPolygon=30.3|:", Filters{}); !errors.Is(err, ErrInvalidPolygon) {
		t.Errorf("malformed clipPolygon error = %v, want ErrInvalidPolygon", err)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("RequestCount() = %d, want 2", mock.RequestCount())
	}
}
