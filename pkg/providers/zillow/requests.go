package zillow

import (
	_ "embed"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/domus-client/pkg/bulk"
)

//go:embed autocomplete.graphql
var autocompleteQuery string

// autocompleteResultTypes are the suggestion kinds requested.
var autocompleteResultTypes = []string{"REGIONS", "FORSALE", "RENTALS", "SOLD", "BUILDER_COMMUNITIES"}

// Requests builds zillow requests.
type Requests struct {
	WebBaseURL    string
	MobileBaseURL string
}

// DefaultRequests targets the public hosts.
func DefaultRequests() Requests {
	return Requests{WebBaseURL: WebBaseURL, MobileBaseURL: MobileBaseURL}
}

type autocompletePayload struct {
	OperationName string         `json:"operationName"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
}

// Autocomplete builds the getAutocompleteResults POST.
func (r Requests) Autocomplete(query string) (bulk.Request, error) {
	query = strings.TrimSpace(query)

	params := url.Values{}
	params.Set("query", query)
	params.Set("queryOptions", "")
	params["resultType"] = autocompleteResultTypes
	params.Set("operationName", "getAutocompleteResults")

	payload := autocompletePayload{
		OperationName: "getAutocompleteResults",
		Query:         autocompleteQuery,
		Variables: map[string]any{
			"query":      query,
			"resultType": autocompleteResultTypes,
		},
	}

	h := http.Header{}
	h.Set("User-Agent", desktopUserAgent)
	h.Set("Accept", "*/*")
	h.Set("X-Client", clientHeader)

	return bulk.PostJSON("autocomplete", r.WebBaseURL+autocompletePath, params, h, payload)
}

type lookupPayload struct {
	HomeDetailsURIParameters struct {
		GoogleMaps           bool   `json:"googleMaps"`
		StreetView           bool   `json:"streetView"`
		Platform             string `json:"platform"`
		ShowFactsAndFeatures bool   `json:"showFactsAndFeatures"`
	} `json:"homeDetailsUriParameters"`
	SortOrder               string  `json:"sortOrder"`
	ListingCategoryFilter   string  `json:"listingCategoryFilter"`
	PropertyIDs             []int64 `json:"propertyIds"`
	ShowAllFirstPartyPhotos bool    `json:"showAllFirstPartyPhotos"`
	Buildings               []any   `json:"buildings"`
	SortAscending           bool    `json:"sortAscending"`
}

// PropertyDetails builds the mobile home lookup for one zpid, keyed by the zpid.
func (r Requests) PropertyDetails(zpid int64) (bulk.Request, error) {
	var payload lookupPayload
	payload.HomeDetailsURIParameters.Platform = "iphone"
	payload.HomeDetailsURIParameters.ShowFactsAndFeatures = true
	payload.SortOrder = "recentlyChanged"
	payload.ListingCategoryFilter = "all"
	payload.PropertyIDs = []int64{zpid}
	payload.Buildings = []any{}
	payload.SortAscending = true

	h := http.Header{}
	h.Set("User-Agent", mobileUserAgent)
	h.Set("Accept", "*/*")
	h.Set("X-Client", clientHeader)

	return bulk.PostJSON(strconv.FormatInt(zpid, 10), r.MobileBaseURL+lookupPath, nil, h, payload)
}
