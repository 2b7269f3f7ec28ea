package realtor

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Sternrassler/domus-client/pkg/bulk"
	"github.com/Sternrassler/domus-client/pkg/geo"
	"github.com/Sternrassler/domus-client/pkg/providers"
)

//go:embed consumer_search.graphql
var consumerSearchQuery string

const searchClientID = "rdc-search-for-sale-search"

// Search defaults.
const (
	DefaultSearchLimit = 50
	DefaultSearchSort  = "relevant"
	DefaultRadiusMiles = 5.0
)

// searchPanel labels GraphQLErrors raised by listing searches.
const searchPanel Panel = "search"

var (
	// ErrEmptyQuery is returned by QuerySearch without a location.
	ErrEmptyQuery = errors.New("empty search location")

	// ErrInvalidArea is returned for a map search outside WGS84 ranges or
	// a polygon with fewer than three points.
	ErrInvalidArea = errors.New("invalid search area")
)

// Filters narrow a listing search. Zero values leave a filter out.
// Active listings are always included.
type Filters struct {
	Pending    bool
	Contingent bool

	MinPrice int
	MaxPrice int
	MinBeds  int
	MaxBeds  int
	MinBaths float64

	// Limit defaults to DefaultSearchLimit, Sort to DefaultSearchSort.
	Limit  int
	Offset int
	Sort   string
}

// MapSearch selects listings in the box RadiusMiles around Center.
type MapSearch struct {
	Center geo.Coordinate
	// RadiusMiles defaults to DefaultRadiusMiles.
	RadiusMiles float64

	Filters
}

// SearchResult is one page of listings.
type SearchResult struct {
	Count          int               `json:"count"`
	Total          int               `json:"total"`
	MortgageParams json.RawMessage   `json:"mortgage_params,omitempty"`
	Properties     []json.RawMessage `json:"properties"`
}

type searchPayload struct {
	OperationName string          `json:"operationName"`
	Query         string          `json:"query"`
	Variables     searchVariables `json:"variables"`
}

type searchVariables struct {
	Query            searchCriteria `json:"query"`
	Limit            int            `json:"limit"`
	Offset           int            `json:"offset"`
	SortType         string         `json:"sort_type"`
	GeoSupportedSlug string         `json:"geoSupportedSlug,omitempty"`
}

type searchCriteria struct {
	Status     []string `json:"status"`
	Primary    bool     `json:"primary"`
	Pending    bool     `json:"pending"`
	Contingent bool     `json:"contingent"`

	SearchLocation *searchLocation `json:"search_location,omitempty"`
	Boundary       *boundary       `json:"boundary,omitempty"`

	ListPrice *numberRange `json:"list_price,omitempty"`
	Beds      *numberRange `json:"beds,omitempty"`
	Baths     *numberRange `json:"baths,omitempty"`
}

type searchLocation struct {
	Location string `json:"location"`
}

// boundary is a GeoJSON geometry with [lon, lat] positions.
type boundary struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

type numberRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func newRange(lo, hi float64) *numberRange {
	if lo <= 0 && hi <= 0 {
		return nil
	}
	r := &numberRange{}
	if lo > 0 {
		r.Min = &lo
	}
	if hi > 0 {
		r.Max = &hi
	}
	return r
}

func (f Filters) variables(criteria searchCriteria) searchVariables {
	criteria.Status = []string{"for_sale", "ready_to_build"}
	criteria.Primary = true
	criteria.Pending = f.Pending
	criteria.Contingent = f.Contingent
	criteria.ListPrice = newRange(float64(f.MinPrice), float64(f.MaxPrice))
	criteria.Beds = newRange(float64(f.MinBeds), float64(f.MaxBeds))
	criteria.Baths = newRange(f.MinBaths, 0)

	v := searchVariables{
		Query:    criteria,
		Limit:    f.Limit,
		Offset:   max(f.Offset, 0),
		SortType: strings.ToLower(f.Sort),
	}
	if v.Limit <= 0 {
		v.Limit = DefaultSearchLimit
	}
	if v.SortType == "" {
		v.SortType = DefaultSearchSort
	}
	return v
}

// search builds the ConsumerSearchQuery POST.
func (r Requests) search(key string, v searchVariables) (bulk.Request, error) {
	query := url.Values{}
	query.Set("client_id", searchClientID)
	query.Set("schema", "vesta")

	payload := searchPayload{
		OperationName: "ConsumerSearchQuery",
		Query:         consumerSearchQuery,
		Variables:     v,
	}
	return bulk.PostJSON(key, r.BaseURL+searchPath, query, header(), payload)
}

// QuerySearch searches listings by free-text location such as a city,
// "Austin, TX", or a zip code.
func (r Requests) QuerySearch(location string, f Filters) (bulk.Request, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return bulk.Request{}, ErrEmptyQuery
	}

	v := f.variables(searchCriteria{SearchLocation: &searchLocation{Location: location}})
	v.GeoSupportedSlug = location
	return r.search("query-search", v)
}

// MapSearch searches listings in the box around s.Center.
func (r Requests) MapSearch(s MapSearch) (bulk.Request, error) {
	if s.RadiusMiles < 0 || !s.Center.Valid() {
		return bulk.Request{}, fmt.Errorf("%w: center %s, radius %v", ErrInvalidArea, s.Center, s.RadiusMiles)
	}
	if s.RadiusMiles == 0 {
		s.RadiusMiles = DefaultRadiusMiles
	}

	box := geo.BoundingBoxAround(s.Center, s.RadiusMiles)
	ring := [][2]float64{
		{box.West, box.North},
		{box.East, box.North},
		{box.East, box.South},
		{box.West, box.South},
		{box.West, box.North},
	}

	v := s.Filters.variables(searchCriteria{
		Boundary: &boundary{Type: "Polygon", Coordinates: [][][2]float64{ring}},
	})
	return r.search("map-search", v)
}

// PolygonSearch searches listings inside polygons. Open rings are closed.
func (r Requests) PolygonSearch(polygons []geo.Polygon, f Filters) (bulk.Request, error) {
	if len(polygons) == 0 {
		return bulk.Request{}, fmt.Errorf("%w: no polygons", ErrInvalidArea)
	}

	coordinates := make([][][][2]float64, 0, len(polygons))
	for i, polygon := range polygons {
		if len(polygon) < 3 {
			return bulk.Request{}, fmt.Errorf("%w: polygon %d has %d points", ErrInvalidArea, i, len(polygon))
		}
		ring := make([][2]float64, 0, len(polygon)+1)
		for _, c := range polygon {
			ring = append(ring, [2]float64{c.Lon, c.Lat})
		}
		if polygon[0] != polygon[len(polygon)-1] {
			ring = append(ring, ring[0])
		}
		coordinates = append(coordinates, [][][2]float64{ring})
	}

	v := f.variables(searchCriteria{
		Boundary: &boundary{Type: "MultiPolygon", Coordinates: coordinates},
	})
	return r.search("polygon-search", v)
}

// QuerySearch returns listings for a free-text location.
func (c *Client) QuerySearch(ctx context.Context, location string, f Filters) (*SearchResult, error) {
	req, err := c.requests.QuerySearch(location, f)
	if err != nil {
		return nil, err
	}
	return c.searchResult(ctx, req)
}

// MapSearch returns listings around a point.
func (c *Client) MapSearch(ctx context.Context, s MapSearch) (*SearchResult, error) {
	req, err := c.requests.MapSearch(s)
	if err != nil {
		return nil, err
	}
	return c.searchResult(ctx, req)
}

// PolygonSearch returns listings inside polygons.
func (c *Client) PolygonSearch(ctx context.Context, polygons []geo.Polygon, f Filters) (*SearchResult, error) {
	req, err := c.requests.PolygonSearch(polygons, f)
	if err != nil {
		return nil, err
	}
	return c.searchResult(ctx, req)
}

func (c *Client) searchResult(ctx context.Context, req bulk.Request) (*SearchResult, error) {
	result, err := c.sender.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data struct {
			HomeSearch *SearchResult `json:"home_search"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := providers.Decode(result, &envelope); err != nil {
		return nil, err
	}

	if envelope.Data.HomeSearch == nil {
		gqlErr := &GraphQLError{Panel: searchPanel}
		for _, e := range envelope.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		if len(gqlErr.Messages) == 0 {
			gqlErr.Messages = []string{"no home_search in response"}
		}
		return nil, gqlErr
	}

	found := envelope.Data.HomeSearch
	if found.Properties == nil {
		found.Properties = []json.RawMessage{}
	}
	c.logger.Debug().
		Str("search", req.Key).
		Int("count", found.Count).
		Int("total", found.Total).
		Msg("Listing search complete")
	return found, nil
}
