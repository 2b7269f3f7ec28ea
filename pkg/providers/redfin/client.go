package redfin

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/Sternrassler/domus-client/pkg/bulk"
	"github.com/Sternrassler/domus-client/pkg/providers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUnknownValue is returned for a filter value without a lookup entry.
	ErrUnknownValue = errors.New("unknown redfin filter value")

	// ErrEmptyRegion is returned by RegionSearch without a region id.
	ErrEmptyRegion = errors.New("empty region id")

	// ErrInvalidArea is returned for a map search outside WGS84 ranges or
	// a polygon with fewer than three points.
	ErrInvalidArea = errors.New("invalid search area")
)

// Region is one query-location match.
type Region struct {
	Name           string `json:"name"`
	CleanedName    string `json:"cleaned_name"`
	Market         string `json:"market"`
	MarketDisplay  string `json:"market_display"`
	RegionID       int64  `json:"region_id"`
	RegionType     int    `json:"region_type"`
	RegionTypeName string `json:"region_type_name"`
	URL            string `json:"url"`
	URLType        string `json:"url_type,omitempty"`
	URLID          string `json:"url_id,omitempty"`
	StateAbbrev    string `json:"state_abbrev,omitempty"`
	Polygon        string `json:"polygon,omitempty"`
}

type rawRegion struct {
	Name        string `json:"name"`
	CleanedName string `json:"cleanedName"`
	ID          struct {
		TableID int64 `json:"tableId"`
		Type    int   `json:"type"`
	} `json:"id"`
	Market        string `json:"market"`
	MarketDisplay string `json:"market_display_name"`
	URL           string `json:"url"`
	Polygon       string `json:"polygon"`
}

// queryLocationResponse covers both the flat and the payload-wrapped form.
type queryLocationResponse struct {
	Regions []rawRegion `json:"regions"`
	Payload struct {
		Regions []rawRegion `json:"regions"`
	} `json:"payload"`
}

func (r queryLocationResponse) regions() []rawRegion {
	if len(r.Regions) > 0 {
		return r.Regions
	}
	return r.Payload.Regions
}

func newRegion(raw rawRegion) Region {
	region := Region{
		Name:           raw.Name,
		CleanedName:    raw.CleanedName,
		Market:         raw.Market,
		MarketDisplay:  raw.MarketDisplay,
		RegionID:       raw.ID.TableID,
		RegionType:     raw.ID.Type,
		RegionTypeName: RegionTypeName(strconv.Itoa(raw.ID.Type)),
		URL:            raw.URL,
		Polygon:        raw.Polygon,
	}

	// /city/30818/TX/Austin, /neighborhood/..., /school/...
	parts := strings.Split(strings.TrimPrefix(raw.URL, "/"), "/")
	switch parts[0] {
	case "city", "neighborhood", "school":
		if len(parts) >= 3 {
			region.URLType = parts[0]
			region.URLID = parts[1]
			region.StateAbbrev = parts[2]
		}
	}

	return region
}

// Client queries redfin.
type Client struct {
	sender   bulk.Sender
	requests Requests
	logger   zerolog.Logger
}

// NewClient creates a redfin client.
func NewClient(sender bulk.Sender) *Client {
	return &Client{
		sender:   sender,
		requests: DefaultRequests(),
		logger:   log.With().Str("component", "redfin").Logger(),
	}
}

// WithRequests returns a copy of c building requests with r.
func (c *Client) WithRequests(r Requests) *Client {
	cp := *c
	cp.requests = r
	return &cp
}

// QueryLocation resolves free text to regions, best match first.
func (c *Client) QueryLocation(ctx context.Context, location string) ([]Region, error) {
	var resp queryLocationResponse
	if err := providers.SendJSON(ctx, c.sender, c.requests.QueryLocation(location), &resp); err != nil {
		return nil, err
	}

	raw := resp.regions()
	regions := make([]Region, 0, len(raw))
	for _, r := range raw {
		regions = append(regions, newRegion(r))
	}

	c.logger.Debug().Str("location", location).Int("regions", len(regions)).Msg("Location resolved")
	return regions, nil
}

// RegionSearch returns the raw gis payload for a region search.
func (c *Client) RegionSearch(ctx context.Context, s RegionSearch) (json.RawMessage, error) {
	if s.RegionID == "" {
		return nil, ErrEmptyRegion
	}
	req, err := c.requests.RegionSearch(s)
	if err != nil {
		return nil, err
	}
	return c.gis(ctx, req)
}

// MapSearch returns the raw gis payload for homes around a point.
func (c *Client) MapSearch(ctx context.Context, s MapSearch) (json.RawMessage, error) {
	req, err := c.requests.MapSearch(s)
	if err != nil {
		return nil, err
	}
	return c.gis(ctx, req)
}

// PolygonSearch returns the raw gis payload for homes inside a polygon.
func (c *Client) PolygonSearch(ctx context.Context, s PolygonSearch) (json.RawMessage, error) {
	req, err := c.requests.PolygonSearch(s)
	if err != nil {
		return nil, err
	}
	return c.gis(ctx, req)
}

func (c *Client) gis(ctx context.Context, req bulk.Request) (json.RawMessage, error) {
	var payload json.RawMessage
	if err := providers.SendJSON(ctx, c.sender, req, &payload); err != nil {
		return nil, err
	}
	c.logger.Debug().Str("search", req.Key).Int("bytes", len(payload)).Msg("Listing search complete")
	return payload, nil
}
