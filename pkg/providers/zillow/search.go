package zillow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Sternrassler/domus-client/pkg/bulk"
	"github.com/Sternrassler/domus-client/pkg/geo"
	"github.com/Sternrassler/domus-client/pkg/providers"
)

const searchPath = "/api/public/v2/mobile-search/homes/search"

// Search defaults, applied to zero Filters fields.
const (
	DefaultPageSize = 100
	DefaultMinBeds  = 1
	DefaultMaxBeds  = 5
	DefaultMaxPrice = 500_000_000
)

// boundaryMargin widens the polygon's bounding box in degrees.
const boundaryMargin = 0.1

// ErrInvalidPolygon is returned for an empty polygon list or a polygon
// with fewer than three points.
var ErrInvalidPolygon = errors.New("invalid search polygon")

// Filters narrow a polygon search.
type Filters struct {
	MinPrice int
	MaxPrice int
	MinBeds  int
	MaxBeds  int
	// MinBaths of 0 leaves baths unfiltered.
	MinBaths float64

	// Page is 1-based.
	Page     int
	PageSize int
}

type searchPayload struct {
	Paging struct {
		PageNumber int `json:"pageNumber"`
		PageSize   int `json:"pageSize"`
	} `json:"paging"`
	BedroomsRange  intRange        `json:"bedroomsRange"`
	PriceRange     intRange        `json:"priceRange"`
	BathroomsRange *bathsRange     `json:"bathroomsRange,omitempty"`
	Region         regionParameter `json:"regionParameters"`
}

type intRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type bathsRange struct {
	Min float64 `json:"min"`
}

type regionParameter struct {
	RegionType  string     `json:"regionType"`
	ClipPolygon string     `json:"clipPolygon"`
	Boundaries  boundaries `json:"boundaries"`
}

type boundaries struct {
	North float64 `json:"northLatitude"`
	South float64 `json:"southLatitude"`
	East  float64 `json:"eastLongitude"`
	West  float64 `json:"westLongitude"`
}

// PolygonSearch builds the mobile search POST for homes inside polygons.
func (r Requests) PolygonSearch(polygons []geo.Polygon, f Filters) (bulk.Request, error) {
	if len(polygons) == 0 {
		return bulk.Request{}, fmt.Errorf("%w: no polygons", ErrInvalidPolygon)
	}

	var points []geo.Coordinate
	for i, polygon := range polygons {
		if len(polygon) < 3 {
			return bulk.Request{}, fmt.Errorf("%w: polygon %d has %d points", ErrInvalidPolygon, i, len(polygon))
		}
		points = append(points, polygon...)
	}
	box, _ := geo.BoundingBox(points)

	var payload searchPayload
	payload.Paging.PageNumber = max(f.Page, 1)
	payload.Paging.PageSize = orDefault(f.PageSize, DefaultPageSize)
	payload.BedroomsRange = intRange{Min: orDefault(f.MinBeds, DefaultMinBeds), Max: orDefault(f.MaxBeds, DefaultMaxBeds)}
	payload.PriceRange = intRange{Min: max(f.MinPrice, 0), Max: orDefault(f.MaxPrice, DefaultMaxPrice)}
	if f.MinBaths > 0 {
		payload.BathroomsRange = &bathsRange{Min: f.MinBaths}
	}
	payload.Region = regionParameter{
		RegionType:  "customPolygon",
		ClipPolygon: geo.FormatClipPolygon(polygons),
		Boundaries: boundaries{
			North: box.North + boundaryMargin,
			South: box.South - boundaryMargin,
			East:  box.East + boundaryMargin,
			West:  box.West - boundaryMargin,
		},
	}

	h := http.Header{}
	h.Set("User-Agent", mobileUserAgent)
	h.Set("Accept", "*/*")
	h.Set("X-Client", clientHeader)

	return bulk.PostJSON("polygon-search", r.MobileBaseURL+searchPath, nil, h, payload)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// PolygonSearch returns the mobile search payload for homes inside polygons.
func (c *Client) PolygonSearch(ctx context.Context, polygons []geo.Polygon, f Filters) (json.RawMessage, error) {
	req, err := c.requests.PolygonSearch(polygons, f)
	if err != nil {
		return nil, err
	}

	var payload json.RawMessage
	if err := providers.SendJSON(ctx, c.sender, req, &payload); err != nil {
		return nil, err
	}
	c.logger.Debug().Int("polygons", len(polygons)).Int("page", max(f.Page, 1)).Msg("Polygon search complete")
	return payload, nil
}

// ClipPolygonSearch is PolygonSearch for a "clipPolygon=lat,lon|...|:"
// string as found in zillow search URLs.
func (c *Client) ClipPolygonSearch(ctx context.Context, clipPolygon string, f Filters) (json.RawMessage, error) {
	polygons, err := geo.ParseClipPolygon(clipPolygon)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolygon, err)
	}
	return c.PolygonSearch(ctx, polygons, f)
}
