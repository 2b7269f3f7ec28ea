// Package geo wraps the free geocoding and routing services used alongside
// the listing providers: Nominatim search and city outlines, TIGERweb ZIP
// code outlines, and OSRM driving routes and commutes.
package geo

import (
	"fmt"
	"strconv"
	"strings"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// String formats c as "lat,lon".
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// Valid reports whether c lies within the WGS84 ranges.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// ParseCoordinate parses "lat,lon".
func ParseCoordinate(s string) (Coordinate, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return Coordinate{}, fmt.Errorf("coordinate %q: want lat,lon", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("coordinate %q: latitude: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("coordinate %q: longitude: %w", s, err)
	}

	c := Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("coordinate %q: out of range", s)
	}
	return c, nil
}

// Destination is a named commute target.
type Destination struct {
	Name   string     `json:"name"`
	Coords Coordinate `json:"coords"`
}

// Commute is the driving route from the start to one destination.
type Commute struct {
	DestName        string  `json:"dest_name"`
	RouteName       string  `json:"route_name"`
	DistanceMeters  float64 `json:"distance"`
	DurationSeconds float64 `json:"duration"`
	DistanceMiles   float64 `json:"distance_mi"`
	DurationMinutes float64 `json:"duration_min"`
}

// Place is one Nominatim search hit.
type Place struct {
	PlaceID     int64    `json:"place_id"`
	OSMType     string   `json:"osm_type"`
	OSMID       int64    `json:"osm_id"`
	DisplayName string   `json:"display_name"`
	Category    string   `json:"category"`
	Type        string   `json:"type"`
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	Importance  float64  `json:"importance"`
	BoundingBox []string `json:"boundingbox"`
}

// Coordinate parses the place's string coordinates.
func (p Place) Coordinate() (Coordinate, error) {
	return ParseCoordinate(p.Lat + "," + p.Lon)
}

// Route is the part of an OSRM route used here.
type Route struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Weight   float64 `json:"weight"`
}

// RouteResponse is an OSRM route service answer.
type RouteResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message,omitempty"`
	Routes  []Route `json:"routes"`
}
