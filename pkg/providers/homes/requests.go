package homes

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/domus-client/pkg/bulk"
)

// Requests builds homes.com requests.
type Requests struct {
	BaseURL       string
	ShapesBaseURL string
}

// DefaultRequests targets the public hosts.
func DefaultRequests() Requests {
	return Requests{BaseURL: BaseURL, ShapesBaseURL: ShapesBaseURL}
}

func webHeader() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Content-Type", "application/json-patch+json")
	h.Set("User-Agent", webUserAgent)
	h.Set("Referer", BaseURL+"/")
	return h
}

type autocompletePayload struct {
	Term            string `json:"term"`
	TransactionType int    `json:"transactionType"`
	LimitResult     bool   `json:"limitResult"`
	IncludeAgent    bool   `json:"includeAgent"`
	IncludeSchools  bool   `json:"includeSchools"`
	PlaceOnlySearch bool   `json:"placeOnlySearch"`
}

// Autocomplete builds the location suggestion POST for term.
func (r Requests) Autocomplete(term string) (bulk.Request, error) {
	payload := autocompletePayload{
		Term:            strings.TrimSpace(term),
		TransactionType: 1,
		IncludeSchools:  true,
	}
	return bulk.PostJSON("autocomplete", r.BaseURL+autocompletePath, nil, webHeader(), payload)
}

type listingKey struct {
	Key string `json:"key"`
}

type placardsPayload struct {
	ListingKeys   []listingKey `json:"listingKeys"`
	ListingAction int          `json:"listingAction"`
}

// Placards builds the placard lookup for listing keys.
func (r Requests) Placards(listingKeys []string) (bulk.Request, error) {
	payload := placardsPayload{ListingKeys: make([]listingKey, len(listingKeys))}
	for i, k := range listingKeys {
		payload.ListingKeys[i] = listingKey{Key: k}
	}
	return bulk.PostJSON("placards", r.BaseURL+placardsPath, nil, webHeader(), payload)
}

// PropertyDetails builds the native app detail GET, keyed by the property key.
func (r Requests) PropertyDetails(propertyKey string) bulk.Request {
	h := http.Header{}
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("User-Agent", nativeUserAgent)
	h.Set("Referer", BaseURL+"/")

	return bulk.Get(propertyKey, r.BaseURL+detailPath+url.PathEscape(propertyKey), nil, h)
}

// Shape builds the high resolution boundary GET for a city or postal code id.
func (r Requests) Shape(id int, kind ShapeKind) (bulk.Request, error) {
	if !kind.valid() {
		return bulk.Request{}, fmt.Errorf("%w: %q", ErrUnknownShapeKind, kind)
	}

	h := http.Header{}
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("User-Agent", desktopAgent)
	h.Set("Referer", BaseURL+"/")

	u := fmt.Sprintf("%s/shapes/%s/%s/high", r.ShapesBaseURL, kind, strconv.Itoa(id))
	return bulk.Get("shape", u, nil, h), nil
}
