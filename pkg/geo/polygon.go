package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ClipPolygonPrefix starts the polygon search parameter used by Zillow.
const ClipPolygonPrefix = "clipPolygon="

// Polygon is an ordered ring of points.
type Polygon []Coordinate

// ParseClipPolygon decodes "clipPolygon=a,b|c,d|:e,f|...|:" into polygons.
// The prefix is optional and empty groups and points are skipped.
func ParseClipPolygon(s string) ([]Polygon, error) {
	s = strings.TrimPrefix(s, ClipPolygonPrefix)

	var polygons []Polygon
	for _, group := range strings.Split(s, ":") {
		if group == "" {
			continue
		}

		var polygon Polygon
		for _, point := range strings.Split(group, "|") {
			if point == "" {
				continue
			}
			c, err := parsePoint(point)
			if err != nil {
				return nil, err
			}
			polygon = append(polygon, c)
		}
		polygons = append(polygons, polygon)
	}

	return polygons, nil
}

func parsePoint(point string) (Coordinate, error) {
	parts := strings.Split(point, ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("polygon point %q: want two values", point)
	}
	a, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("polygon point %q: %w", point, err)
	}
	b, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("polygon point %q: %w", point, err)
	}
	return Coordinate{Lat: a, Lon: b}, nil
}

// FormatClipPolygon encodes polygons in the clipPolygon form. Every polygon
// is terminated by "|:".
func FormatClipPolygon(polygons []Polygon) string {
	var b strings.Builder
	b.WriteString(ClipPolygonPrefix)

	for _, polygon := range polygons {
		for i, c := range polygon {
			if i > 0 {
				b.WriteByte('|')
			}
			b.WriteString(formatFloat(c.Lat))
			b.WriteByte(',')
			b.WriteString(formatFloat(c.Lon))
		}
		b.WriteString("|:")
	}

	return b.String()
}

// Box is a north/south/east/west bounding box in degrees.
type Box struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Contains reports whether c lies inside the box.
func (b Box) Contains(c Coordinate) bool {
	return c.Lat <= b.North && c.Lat >= b.South && c.Lon <= b.East && c.Lon >= b.West
}

// BoundingBox returns the smallest box around points. ok is false for no points.
func BoundingBox(points []Coordinate) (box Box, ok bool) {
	if len(points) == 0 {
		return Box{}, false
	}

	box = Box{North: points[0].Lat, South: points[0].Lat, East: points[0].Lon, West: points[0].Lon}
	for _, p := range points[1:] {
		box.North = math.Max(box.North, p.Lat)
		box.South = math.Min(box.South, p.Lat)
		box.East = math.Max(box.East, p.Lon)
		box.West = math.Min(box.West, p.Lon)
	}
	return box, true
}

// earthRadiusMiles is the mean Earth radius (6371.0088 km).
const earthRadiusMiles = 3958.7613

// BoundingBoxAround returns the box whose edges lie radiusMiles north,
// south, east and west of center along great circles.
func BoundingBoxAround(center Coordinate, radiusMiles float64) Box {
	north, _ := destinationPoint(center, radiusMiles, 0)
	south, _ := destinationPoint(center, radiusMiles, math.Pi)
	_, east := destinationPoint(center, radiusMiles, math.Pi/2)
	_, west := destinationPoint(center, radiusMiles, 3*math.Pi/2)

	return Box{North: north, South: south, East: east, West: west}
}

// destinationPoint walks distance miles from c on the given bearing (radians).
func destinationPoint(c Coordinate, distanceMiles, bearing float64) (lat, lon float64) {
	delta := distanceMiles / earthRadiusMiles
	phi1 := c.Lat * math.Pi / 180
	lambda1 := c.Lon * math.Pi / 180

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(bearing))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(bearing)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	return phi2 * 180 / math.Pi, lambda2 * 180 / math.Pi
}
