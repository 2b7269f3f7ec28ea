package redfin

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/domus-client/pkg/bulk"
	"github.com/Sternrassler/domus-client/pkg/geo"
	"github.com/Sternrassler/domus-client/pkg/providers"
)

// Filters narrow a gis listing search. Zero values leave the filter out.
type Filters struct {
	HomeTypes  []HomeType
	MinBeds    int
	MaxBeds    int
	MinBaths   float64
	NumHomes   int
	ExcludeAR  bool
	ExcludeSS  bool
	RedfinOnly bool

	// TimeOnMarket is a redfin range such as "-7" or "30-".
	TimeOnMarket string
	Financing    string
	Pool         string
	Sort         string
}

// RegionSearch lists homes in one region.
type RegionSearch struct {
	RegionID string
	// RegionType is a name ("city", "zipcode", "county", "neighborhood")
	// or a numeric code.
	RegionType string

	Filters
}

// MapSearch lists homes in the box RadiusMiles around Center.
type MapSearch struct {
	Center geo.Coordinate
	// RadiusMiles defaults to DefaultRadiusMiles.
	RadiusMiles float64

	Filters
}

// PolygonSearch lists homes inside a user drawn polygon.
type PolygonSearch struct {
	Polygon geo.Polygon

	Filters
}

// Requests builds redfin requests against BaseURL.
type Requests struct {
	BaseURL string
}

// DefaultRequests targets the public site.
func DefaultRequests() Requests {
	return Requests{BaseURL: BaseURL}
}

// QueryLocation resolves free text to regions.
func (r Requests) QueryLocation(location string) bulk.Request {
	q := url.Values{}
	q.Set("al", "1")
	q.Set("location", strings.TrimSpace(location))
	q.Set("v", "1")

	return bulk.Get("query-location", r.BaseURL+queryLocationPath, q, header())
}

// RegionSearch lists homes in a region. Unknown lookup values are an error.
func (r Requests) RegionSearch(s RegionSearch) (bulk.Request, error) {
	q, err := s.Filters.values()
	if err != nil {
		return bulk.Request{}, err
	}
	q.Set("region_id", s.RegionID)
	q.Set("region_type", RegionTypeCode(s.RegionType))

	return bulk.Get("region-search", r.BaseURL+gisPath, q, header()), nil
}

// MapSearch lists homes around a point. The box is sent as a closed
// "lon lat" ring starting at the north west corner.
func (r Requests) MapSearch(s MapSearch) (bulk.Request, error) {
	if s.RadiusMiles < 0 || !s.Center.Valid() {
		return bulk.Request{}, fmt.Errorf("%w: center %s, radius %v", ErrInvalidArea, s.Center, s.RadiusMiles)
	}
	if s.RadiusMiles == 0 {
		s.RadiusMiles = DefaultRadiusMiles
	}

	q, err := s.Filters.values()
	if err != nil {
		return bulk.Request{}, err
	}

	box := geo.BoundingBoxAround(s.Center, s.RadiusMiles)
	q.Set("poly", formatRing([]geo.Coordinate{
		{Lat: box.North, Lon: box.West},
		{Lat: box.North, Lon: box.East},
		{Lat: box.South, Lon: box.East},
		{Lat: box.South, Lon: box.West},
		{Lat: box.North, Lon: box.West},
	}))

	return bulk.Get("map-search", r.BaseURL+gisPath, q, header()), nil
}

// PolygonSearch lists homes inside s.Polygon, sent as user_poly.
func (r Requests) PolygonSearch(s PolygonSearch) (bulk.Request, error) {
	if len(s.Polygon) < 3 {
		return bulk.Request{}, fmt.Errorf("%w: polygon needs at least 3 points, got %d", ErrInvalidArea, len(s.Polygon))
	}

	q, err := s.Filters.values()
	if err != nil {
		return bulk.Request{}, err
	}
	q.Set("user_poly", formatRing(s.Polygon))

	return bulk.Get("polygon-search", r.BaseURL+gisPath, q, header()), nil
}

// values renders the filters shared by every gis search.
func (f Filters) values() (url.Values, error) {
	uipt := []string{"1"}
	if len(f.HomeTypes) > 0 {
		uipt = uipt[:0]
		for _, t := range f.HomeTypes {
			code, err := UIPT(t)
			if err != nil {
				return nil, err
			}
			uipt = append(uipt, code)
		}
	}

	if f.NumHomes <= 0 {
		f.NumHomes = DefaultNumHomes
	}
	if f.Sort == "" {
		f.Sort = defaultSort
	}

	q := url.Values{}
	q.Set("al", "1")
	q.Set("include_nearby_homes", "true")
	q.Set("mpt", "99")
	q.Set("num_homes", strconv.Itoa(f.NumHomes))
	q.Set("ord", f.Sort)
	q.Set("page_number", "1")
	q.Set("sf", allListingTypes)
	q.Set("start", "0")
	q.Set("status", "9")
	q.Set("uipt", strings.Join(uipt, ","))
	q.Set("v", "8")
	q.Set("excl_ar", strconv.FormatBool(f.ExcludeAR))
	q.Set("excl_ss", strconv.FormatBool(f.ExcludeSS))
	q.Set("rdfn_lst", strconv.FormatBool(f.RedfinOnly))

	if f.MinBeds > 0 {
		q.Set("num_beds", strconv.Itoa(f.MinBeds))
	}
	if f.MaxBeds > 0 {
		q.Set("max_num_beds", strconv.Itoa(f.MaxBeds))
	}
	if f.MinBaths > 0 {
		q.Set("num_baths", strconv.FormatFloat(f.MinBaths, 'f', -1, 64))
	}
	if f.TimeOnMarket != "" {
		q.Set("time_on_market_range", f.TimeOnMarket)
	}
	if f.Financing != "" {
		code, err := FinancingCode(f.Financing)
		if err != nil {
			return nil, err
		}
		q.Set("financing_type", code)
	}
	if f.Pool != "" {
		code, err := PoolCode(f.Pool)
		if err != nil {
			return nil, err
		}
		q.Set("pool_types", code)
	}

	return q, nil
}

// formatRing renders points as "lon lat,lon lat,...".
func formatRing(points []geo.Coordinate) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = strconv.FormatFloat(p.Lon, 'f', -1, 64) + " " + strconv.FormatFloat(p.Lat, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func header() http.Header {
	h := http.Header{}
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "en-GB,en;q=0.5")
	h.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	h.Set("User-Agent", providers.BrowserUserAgent)
	return h
}
