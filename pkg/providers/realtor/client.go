package realtor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/domus-client/pkg/bulk"
	"github.com/Sternrassler/domus-client/pkg/jsonp"
	"github.com/Sternrassler/domus-client/pkg/providers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUnknownPanel is returned for a panel name outside AllPanels.
	ErrUnknownPanel = errors.New("unknown realtor panel")

	// ErrEmptyPropertyID is returned when no property id is given.
	ErrEmptyPropertyID = errors.New("empty property id")
)

// GraphQLError is a 2xx answer whose body reports errors and no data.
type GraphQLError struct {
	Panel    Panel
	Messages []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("realtor %s: graphql: %s", e.Panel, strings.Join(e.Messages, "; "))
}

// Bundle is a property page assembled from several panels. Every requested
// panel lands in exactly one of Panels or Failures.
type Bundle struct {
	PropertyID string                     `json:"property_id"`
	Panels     map[string]json.RawMessage `json:"panels"`
	Failures   map[string]error           `json:"-"`
}

// FailureMessages renders Failures for JSON output.
func (b *Bundle) FailureMessages() map[string]string {
	out := make(map[string]string, len(b.Failures))
	for k, err := range b.Failures {
		out[k] = err.Error()
	}
	return out
}

// Client fetches realtor.com property data.
type Client struct {
	sender   bulk.Sender
	fetcher  bulk.BatchFetcher
	requests Requests
	logger   zerolog.Logger
}

// NewClient creates a realtor client. A nil sender falls back to fetcher.
func NewClient(fetcher *bulk.Fetcher, sender bulk.Sender) *Client {
	if sender == nil {
		sender = fetcher
	}
	return &Client{
		sender:   sender,
		fetcher:  fetcher,
		requests: DefaultRequests(),
		logger:   log.With().Str("component", "realtor").Logger(),
	}
}

// WithRequests returns a copy of c building requests with r.
func (c *Client) WithRequests(r Requests) *Client {
	cp := *c
	cp.requests = r
	return &cp
}

// PropertyDetails returns the FullPropertyDetails payload.
func (c *Client) PropertyDetails(ctx context.Context, propertyID string) (json.RawMessage, error) {
	if propertyID == "" {
		return nil, ErrEmptyPropertyID
	}

	result, err := c.sender.Send(ctx, c.requests.PropertyDetails(propertyID))
	if err != nil {
		return nil, err
	}
	return panelBody(PanelDetails, result)
}

// PropertyBundle fetches the given panels (all of them when none are named)
// concurrently. A panel that fails is recorded in Failures; the error return
// is reserved for bad arguments.
func (c *Client) PropertyBundle(ctx context.Context, propertyID string, panels ...Panel) (*Bundle, error) {
	if propertyID == "" {
		return nil, ErrEmptyPropertyID
	}
	if len(panels) == 0 {
		panels = AllPanels()
	}

	seen := make(map[Panel]bool, len(panels))
	requests := make([]bulk.Request, 0, len(panels))
	for _, p := range panels {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPanel, p)
		}
		if seen[p] {
			continue
		}
		seen[p] = true

		req, err := c.requests.Panel(p, propertyID)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	results, err := c.fetcher.Fetch(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("fetch property bundle: %w", err)
	}

	bundle := &Bundle{
		PropertyID: propertyID,
		Panels:     make(map[string]json.RawMessage, len(results)),
		Failures:   make(map[string]error),
	}
	for _, result := range results {
		body, err := panelBody(Panel(result.Key), result)
		if err != nil {
			bundle.Failures[result.Key] = err
			continue
		}
		bundle.Panels[result.Key] = body
	}

	c.logger.Debug().
		Str("property_id", propertyID).
		Int("panels", len(bundle.Panels)).
		Int("failures", len(bundle.Failures)).
		Msg("Property bundle assembled")

	return bundle, nil
}

// panelBody returns the body of a 2xx, error-free GraphQL answer.
func panelBody(panel Panel, result bulk.Result) (json.RawMessage, error) {
	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := providers.Decode(result, &envelope); err != nil {
		return nil, err
	}

	if len(envelope.Errors) > 0 && (len(envelope.Data) == 0 || string(envelope.Data) == "null") {
		gqlErr := &GraphQLError{Panel: panel}
		for _, e := range envelope.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return nil, gqlErr
	}

	return json.RawMessage(jsonp.Strip(result.Body)), nil
}
