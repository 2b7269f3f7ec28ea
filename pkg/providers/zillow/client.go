package zillow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sternrassler/domus-client/pkg/bulk"
	"github.com/Sternrassler/domus-client/pkg/providers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNoZPIDs is returned by PropertyDetailsBatch for an empty list.
var ErrNoZPIDs = errors.New("no zpids given")

// Suggestion is one autocomplete hit.
type Suggestion struct {
	ID       string `json:"id"`
	RegionID int64  `json:"region_id,omitempty"`
	ZPID     int64  `json:"zpid,omitempty"`
	// Type is "Region" or "Address".
	Type    string `json:"type"`
	SubType string `json:"sub_type"`
}

type autocompleteResponse struct {
	Data struct {
		SearchAssistanceResult struct {
			Results []struct {
				TypeName       string `json:"__typename"`
				ID             string `json:"id"`
				RegionID       int64  `json:"regionId"`
				SubType        string `json:"subType"`
				ZPID           int64  `json:"zpid"`
				AddressSubType string `json:"addressSubType"`
			} `json:"results"`
		} `json:"searchAssistanceResult"`
	} `json:"data"`
}

// Batch holds per-zpid outcomes of PropertyDetailsBatch. Every zpid lands
// in exactly one map.
type Batch struct {
	Details  map[int64]json.RawMessage
	Failures map[int64]error
}

// Client queries zillow.
type Client struct {
	sender   bulk.Sender
	fetcher  bulk.BatchFetcher
	requests Requests
	logger   zerolog.Logger
}

// NewClient creates a zillow client. A nil sender falls back to fetcher.
func NewClient(fetcher *bulk.Fetcher, sender bulk.Sender) *Client {
	if sender == nil {
		sender = fetcher
	}
	return &Client{
		sender:   sender,
		fetcher:  fetcher,
		requests: DefaultRequests(),
		logger:   log.With().Str("component", "zillow").Logger(),
	}
}

// WithRequests returns a copy of c building requests with r.
func (c *Client) WithRequests(r Requests) *Client {
	cp := *c
	cp.requests = r
	return &cp
}

// Autocomplete returns region and address suggestions for query.
// Results of other kinds are skipped.
func (c *Client) Autocomplete(ctx context.Context, query string) ([]Suggestion, error) {
	req, err := c.requests.Autocomplete(query)
	if err != nil {
		return nil, err
	}

	var resp autocompleteResponse
	if err := providers.SendJSON(ctx, c.sender, req, &resp); err != nil {
		return nil, err
	}

	results := resp.Data.SearchAssistanceResult.Results
	suggestions := make([]Suggestion, 0, len(results))
	for _, r := range results {
		switch r.TypeName {
		case "SearchAssistanceRegionResult":
			suggestions = append(suggestions, Suggestion{ID: r.ID, RegionID: r.RegionID, Type: "Region", SubType: r.SubType})
		case "SearchAssistanceAddressResult":
			suggestions = append(suggestions, Suggestion{ID: r.ID, ZPID: r.ZPID, Type: "Address", SubType: "ADDRESS"})
		}
	}
	return suggestions, nil
}

// PropertyDetails returns the mobile lookup payload for one home.
func (c *Client) PropertyDetails(ctx context.Context, zpid int64) (json.RawMessage, error) {
	req, err := c.requests.PropertyDetails(zpid)
	if err != nil {
		return nil, err
	}

	var payload json.RawMessage
	if err := providers.SendJSON(ctx, c.sender, req, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// PropertyDetailsBatch looks up many homes concurrently. Duplicate zpids
// are fetched once.
func (c *Client) PropertyDetailsBatch(ctx context.Context, zpids []int64) (*Batch, error) {
	if len(zpids) == 0 {
		return nil, ErrNoZPIDs
	}

	byKey := make(map[string]int64, len(zpids))
	requests := make([]bulk.Request, 0, len(zpids))
	for _, zpid := range zpids {
		req, err := c.requests.PropertyDetails(zpid)
		if err != nil {
			return nil, err
		}
		if _, dup := byKey[req.Key]; dup {
			continue
		}
		byKey[req.Key] = zpid
		requests = append(requests, req)
	}

	results, err := c.fetcher.Fetch(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("fetch property details: %w", err)
	}

	batch := &Batch{
		Details:  make(map[int64]json.RawMessage, len(results)),
		Failures: make(map[int64]error),
	}
	for _, result := range results {
		zpid, ok := byKey[result.Key]
		if !ok {
			c.logger.Warn().Str("key", result.Key).Msg("Dropping result with unknown key")
			continue
		}

		var payload json.RawMessage
		if err := providers.Decode(result, &payload); err != nil {
			batch.Failures[zpid] = err
			continue
		}
		batch.Details[zpid] = payload
	}

	c.logger.Debug().
		Int("requested", len(requests)).
		Int("failed", len(batch.Failures)).
		Msg("Property details batch complete")

	return batch, nil
}
