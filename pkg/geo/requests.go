package geo

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/domus-client/pkg/bulk"
)

// Service endpoints.
const (
	NominatimSearchURL = "https://nominatim.openstreetmap.org/search"
	TigerWebZCTAURL    = "https://tigerweb.geo.census.gov/arcgis/rest/services/TIGERweb/PUMA_TAD_TAZ_UGA_ZCTA/MapServer/1/query"
	OSRMRouteURL       = "https://router.project-osrm.org/route/v1/driving"
)

// Endpoints holds the service base URLs. Tests point them at a fake.
type Endpoints struct {
	NominatimSearch string
	TigerWebZCTA    string
	OSRMRoute       string
}

// DefaultEndpoints returns the public service URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		NominatimSearch: NominatimSearchURL,
		TigerWebZCTA:    TigerWebZCTAURL,
		OSRMRoute:       OSRMRouteURL,
	}
}

// UserAgent identifies us to Nominatim, whose usage policy requires one.
const UserAgent = "My-Simple-RealEstate-App"

// Default search limits.
const (
	DefaultFormat = "jsonv2"
	DefaultLimit  = 10
)

// SearchParams selects a Nominatim search. Query, when set, is a free-text
// search and the structured fields are ignored.
type SearchParams struct {
	Query string

	Street     string
	City       string
	County     string
	State      string
	Country    string
	PostalCode string

	// Format defaults to jsonv2, Limit to 10.
	Format string
	Limit  int
}

func defaultHeader() http.Header {
	return http.Header{"User-Agent": []string{UserAgent}}
}

// setIf adds key only when value is non-empty.
func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

// SearchRequest builds a Nominatim search.
func SearchRequest(p SearchParams) bulk.Request {
	return DefaultEndpoints().SearchRequest(p)
}

// CityPolygonRequest asks Nominatim for a US city outline as GeoJSON.
func CityPolygonRequest(city, state, county string) bulk.Request {
	return DefaultEndpoints().CityPolygonRequest(city, state, county)
}

// ZipcodePolygonRequest asks TIGERweb for a ZIP code tabulation area outline.
func ZipcodePolygonRequest(zcta string) bulk.Request {
	return DefaultEndpoints().ZipcodePolygonRequest(zcta)
}

// DirectionsRequest builds an OSRM driving route between two points.
func DirectionsRequest(start, end Coordinate, steps bool) bulk.Request {
	return DefaultEndpoints().DirectionsRequest(start, end, steps)
}

func (e Endpoints) SearchRequest(p SearchParams) bulk.Request {
	if p.Format == "" {
		p.Format = DefaultFormat
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}

	q := url.Values{}
	if p.Query != "" {
		q.Set("q", p.Query)
	} else {
		setIf(q, "street", p.Street)
		setIf(q, "city", p.City)
		setIf(q, "county", p.County)
		setIf(q, "state", p.State)
		setIf(q, "country", p.Country)
		setIf(q, "postalcode", p.PostalCode)
	}
	q.Set("format", p.Format)
	q.Set("limit", strconv.Itoa(p.Limit))

	return bulk.Get("search", e.NominatimSearch, q, defaultHeader())
}

func (e Endpoints) CityPolygonRequest(city, state, county string) bulk.Request {
	q := url.Values{}
	q.Set("city", city)
	setIf(q, "county", county)
	setIf(q, "state", state)
	q.Set("country", "usa")
	q.Set("format", DefaultFormat)
	q.Set("polygon_geojson", "1")

	return bulk.Get("city-polygon", e.NominatimSearch, q, defaultHeader())
}

func (e Endpoints) ZipcodePolygonRequest(zcta string) bulk.Request {
	form := url.Values{}
	for k, v := range map[string]string{
		"where":                "",
		"text":                 zcta,
		"objectIds":            "",
		"timeRelation":         "esriTimeRelationOverlaps",
		"geometry":             "",
		"geometryType":         "esriGeometryPolygon",
		"spatialRel":           "esriSpatialRelIntersects",
		"distance":             "",
		"units":                "esriSRUnit_Foot",
		"outFields":            "",
		"returnGeometry":       "true",
		"returnTrueCurves":     "false",
		"geometryPrecision":    "",
		"returnIdsOnly":        "false",
		"returnCountOnly":      "false",
		"outStatistics":        "",
		"returnZ":              "false",
		"returnM":              "false",
		"gdbVersion":           "",
		"historicMoment":       "",
		"returnDistinctValues": "false",
		"returnExtentOnly":     "false",
		"featureEncoding":      "esriDefault",
		"f":                    "geojson",
	} {
		form.Set(k, v)
	}

	return bulk.PostForm("zipcode-polygon", e.TigerWebZCTA, form, defaultHeader())
}

func (e Endpoints) DirectionsRequest(start, end Coordinate, steps bool) bulk.Request {
	q := url.Values{}
	q.Set("language", "en")
	q.Set("overview", "false")
	q.Set("steps", strconv.FormatBool(steps))

	return bulk.Get("directions", e.routeURL(start, end, ""), q, nil)
}

// CommuteRequest builds the route request for the n-th (1-based) destination.
func (e Endpoints) CommuteRequest(start Coordinate, n int, dest Destination) bulk.Request {
	return bulk.Get(CommuteKey(n), e.routeURL(start, dest.Coords, ".json"), nil, nil)
}

// CommuteKey is the correlation key of the n-th (1-based) destination.
func CommuteKey(n int) string {
	return "dest-" + strconv.Itoa(n)
}

// routeURL formats start and end in OSRM's lon,lat order.
func (e Endpoints) routeURL(start, end Coordinate, suffix string) string {
	return fmt.Sprintf("%s/%s,%s;%s,%s%s",
		e.OSRMRoute,
		formatFloat(start.Lon), formatFloat(start.Lat),
		formatFloat(end.Lon), formatFloat(end.Lat),
		suffix,
	)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
