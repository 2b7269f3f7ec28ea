package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Sternrassler/domus-client/pkg/bulk"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const metersToMiles = 0.000621371

// Service runs geo lookups. Single lookups go through the Sender, commute
// fan-out through the BatchFetcher.
type Service struct {
	sender    bulk.Sender
	fetcher   bulk.BatchFetcher
	endpoints Endpoints
	logger    zerolog.Logger
}

// NewService creates a geo service. sender may be nil, in which case the
// fetcher serves single lookups as batches of one.
func NewService(fetcher *bulk.Fetcher, sender bulk.Sender) *Service {
	if sender == nil {
		sender = fetcher
	}
	return &Service{
		sender:    sender,
		fetcher:   fetcher,
		endpoints: DefaultEndpoints(),
		logger:    log.With().Str("component", "geo").Logger(),
	}
}

// WithEndpoints returns a copy of s using e.
func (s *Service) WithEndpoints(e Endpoints) *Service {
	c := *s
	c.endpoints = e
	return &c
}

// Search geocodes through Nominatim.
func (s *Service) Search(ctx context.Context, params SearchParams) ([]Place, error) {
	var places []Place
	if err := s.sendJSON(ctx, s.endpoints.SearchRequest(params), &places); err != nil {
		return nil, err
	}
	return places, nil
}

// CityPolygon returns the GeoJSON outline of a US city, or nil when
// Nominatim knows none.
func (s *Service) CityPolygon(ctx context.Context, city, state, county string) (json.RawMessage, error) {
	var hits []struct {
		GeoJSON json.RawMessage `json:"geojson"`
	}
	if err := s.sendJSON(ctx, s.endpoints.CityPolygonRequest(city, state, county), &hits); err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}
	return hits[0].GeoJSON, nil
}

// ZipcodePolygon returns the GeoJSON geometry of a ZIP code tabulation
// area, or nil when TIGERweb has none.
func (s *Service) ZipcodePolygon(ctx context.Context, zcta string) (json.RawMessage, error) {
	var collection struct {
		Features []struct {
			Geometry json.RawMessage `json:"geometry"`
		} `json:"features"`
	}
	if err := s.sendJSON(ctx, s.endpoints.ZipcodePolygonRequest(zcta), &collection); err != nil {
		return nil, err
	}
	if len(collection.Features) == 0 {
		return nil, nil
	}
	return collection.Features[0].Geometry, nil
}

// Directions asks OSRM for a driving route.
func (s *Service) Directions(ctx context.Context, start, end Coordinate, steps bool) (*RouteResponse, error) {
	var route RouteResponse
	if err := s.sendJSON(ctx, s.endpoints.DirectionsRequest(start, end, steps), &route); err != nil {
		return nil, err
	}
	return &route, nil
}

// Commutes fetches the driving route from start to every destination
// concurrently. Commutes come back in destination order; destinations
// whose lookup failed or that have no route are left out.
func (s *Service) Commutes(ctx context.Context, start Coordinate, startName string, destinations []Destination) ([]Commute, error) {
	if len(destinations) == 0 {
		return []Commute{}, nil
	}

	requests := make([]bulk.Request, len(destinations))
	for i, dest := range destinations {
		requests[i] = s.endpoints.CommuteRequest(start, i+1, dest)
	}

	results, err := s.fetcher.Fetch(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("fetch commutes: %w", err)
	}
	results = bulk.SortByKeys(results, bulk.Keys(requests))

	names := make(map[string]string, len(destinations))
	for i, dest := range destinations {
		names[CommuteKey(i+1)] = dest.Name
	}

	commutes := make([]Commute, 0, len(results))
	for _, result := range results {
		if err := result.AsError(); err != nil {
			s.logger.Debug().Err(err).Str("key", result.Key).Msg("Skipping failed commute")
			continue
		}

		var route RouteResponse
		if err := json.Unmarshal(result.Body, &route); err != nil {
			s.logger.Warn().Err(err).Str("key", result.Key).Msg("Skipping undecodable commute")
			continue
		}
		if len(route.Routes) == 0 {
			continue
		}

		commutes = append(commutes, newCommute(startName, names[result.Key], route.Routes[0]))
	}

	return commutes, nil
}

func newCommute(startName, destName string, r Route) Commute {
	return Commute{
		DestName:        destName,
		RouteName:       fmt.Sprintf("%s to %s", startName, destName),
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
		DistanceMiles:   round1(r.Distance * metersToMiles),
		DurationMinutes: round1(r.Duration / 60),
	}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// sendJSON performs one request and decodes a 2xx body into v.
func (s *Service) sendJSON(ctx context.Context, request bulk.Request, v any) error {
	result, err := s.sender.Send(ctx, request)
	if err != nil {
		return err
	}
	if err := result.AsError(); err != nil {
		return err
	}
	if err := json.Unmarshal(result.Body, v); err != nil {
		return fmt.Errorf("decode %s response: %w", request.Key, err)
	}
	return nil
}
