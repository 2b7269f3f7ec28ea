package homes

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Sternrassler/domus-client/pkg/bulk"
	"github.com/Sternrassler/domus-client/pkg/providers"
)

var (
	// ErrLocationNotFound is returned by FindLocation when nothing matches.
	ErrLocationNotFound = errors.New("homes location not found")

	// ErrUnknownShapeKind is returned for a shape family other than city or postalcode.
	ErrUnknownShapeKind = errors.New("unknown homes shape kind")

	// ErrNoListingKeys is returned by Placards for an empty key list.
	ErrNoListingKeys = errors.New("no listing keys given")
)

type autocompleteResponse struct {
	Suggestions struct {
		Places []Place `json:"places"`
	} `json:"suggestions"`
}

// Client queries homes.com.
type Client struct {
	sender   bulk.Sender
	requests Requests
}

// NewClient creates a homes client.
func NewClient(sender bulk.Sender) *Client {
	return &Client{sender: sender, requests: DefaultRequests()}
}

// WithRequests returns a copy of c building requests with r.
func (c *Client) WithRequests(r Requests) *Client {
	cp := *c
	cp.requests = r
	return &cp
}

// FindLocation returns the first suggested place for query, or the first
// of the given kind.
func (c *Client) FindLocation(ctx context.Context, query string, kind LocationKind) (*Place, error) {
	req, err := c.requests.Autocomplete(query)
	if err != nil {
		return nil, err
	}

	var resp autocompleteResponse
	if err := providers.SendJSON(ctx, c.sender, req, &resp); err != nil {
		return nil, err
	}

	label := kind.label()
	for i := range resp.Suggestions.Places {
		if label == "" || resp.Suggestions.Places[i].Type == label {
			return &resp.Suggestions.Places[i], nil
		}
	}
	return nil, ErrLocationNotFound
}

// Placards returns the listing cards for the given keys.
func (c *Client) Placards(ctx context.Context, listingKeys []string) ([]json.RawMessage, error) {
	if len(listingKeys) == 0 {
		return nil, ErrNoListingKeys
	}

	req, err := c.requests.Placards(listingKeys)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Placards []json.RawMessage `json:"placards"`
	}
	if err := providers.SendJSON(ctx, c.sender, req, &resp); err != nil {
		return nil, err
	}
	return resp.Placards, nil
}

// PropertyDetails returns the detail payload for a property key.
func (c *Client) PropertyDetails(ctx context.Context, propertyKey string) (json.RawMessage, error) {
	var payload json.RawMessage
	if err := providers.SendJSON(ctx, c.sender, c.requests.PropertyDetails(propertyKey), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Shape returns the GeoJSON boundary of a city or postal code.
func (c *Client) Shape(ctx context.Context, id int, kind ShapeKind) (json.RawMessage, error) {
	req, err := c.requests.Shape(id, kind)
	if err != nil {
		return nil, err
	}

	var shape json.RawMessage
	if err := providers.SendJSON(ctx, c.sender, req, &shape); err != nil {
		return nil, err
	}
	return shape, nil
}
