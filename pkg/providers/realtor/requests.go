package realtor

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Sternrassler/domus-client/pkg/bulk"
	"github.com/Sternrassler/domus-client/pkg/providers"
)

//go:embed tax_history.graphql
var taxHistoryQuery string

// Estimate window defaults.
const (
	DefaultHistoryYears   = 3
	DefaultForecastMonths = 3
)

// EstimatesWindow bounds the estimates panel. Dates are YYYY-MM-01.
type EstimatesWindow struct {
	HistoryMin  string
	HistoryMax  string
	ForecastMax string
}

// NewEstimatesWindow covers historyYears back from today's month through
// forecastMonths ahead. Non-positive arguments take the defaults.
func NewEstimatesWindow(today time.Time, historyYears, forecastMonths int) EstimatesWindow {
	if historyYears <= 0 {
		historyYears = DefaultHistoryYears
	}
	if forecastMonths <= 0 {
		forecastMonths = DefaultForecastMonths
	}

	month := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	const layout = "2006-01-02"

	return EstimatesWindow{
		HistoryMin:  month.AddDate(-historyYears, 0, 0).Format(layout),
		HistoryMax:  month.Format(layout),
		ForecastMax: month.AddDate(0, forecastMonths, 0).Format(layout),
	}
}

// Requests builds realtor.com requests against BaseURL.
type Requests struct {
	BaseURL string
	// Now dates the estimates window. Defaults to time.Now.
	Now func() time.Time
}

// DefaultRequests targets the public site.
func DefaultRequests() Requests {
	return Requests{BaseURL: BaseURL, Now: time.Now}
}

func (r Requests) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Panel builds the request for one panel, keyed by the panel name.
func (r Requests) Panel(panel Panel, propertyID string) (bulk.Request, error) {
	switch panel {
	case PanelTaxHistory:
		return r.TaxHistory(propertyID)
	case PanelEstimates:
		return r.Estimates(propertyID, NewEstimatesWindow(r.now(), 0, 0))
	}

	q, ok := persistedQueries[panel]
	if !ok {
		return bulk.Request{}, fmt.Errorf("%w: %q", ErrUnknownPanel, panel)
	}
	return r.persisted(panel, q, map[string]string{q.idVariable: propertyID})
}

// PropertyDetails builds the FullPropertyDetails query.
func (r Requests) PropertyDetails(propertyID string) bulk.Request {
	req, _ := r.Panel(PanelDetails, propertyID)
	return req
}

// Estimates builds the DPPropertyEstimates query for window.
func (r Requests) Estimates(propertyID string, window EstimatesWindow) (bulk.Request, error) {
	q := persistedQueries[PanelEstimates]
	return r.persisted(PanelEstimates, q, map[string]string{
		q.idVariable:          propertyID,
		"historicalYearsMin":  window.HistoryMin,
		"historicalYearsMax":  window.HistoryMax,
		"forecastedMonthsMax": window.ForecastMax,
	})
}

// TaxHistory builds the PropertyAndTaxHistory POST. It is served by the
// search API rather than the persisted query endpoint.
func (r Requests) TaxHistory(propertyID string) (bulk.Request, error) {
	query := url.Values{}
	query.Set("client_id", clientName)
	query.Set("schema", "vesta")

	payload := graphqlPayload{
		OperationName: "PropertyAndTaxHistory",
		Query:         taxHistoryQuery,
		Variables:     map[string]string{"propertyId": propertyID},
	}

	return bulk.PostJSON(string(PanelTaxHistory), r.BaseURL+searchPath, query, header(), payload)
}

type graphqlPayload struct {
	OperationName string            `json:"operationName"`
	Query         string            `json:"query"`
	Variables     map[string]string `json:"variables"`
}

// persisted builds a GET on the persisted query endpoint.
func (r Requests) persisted(panel Panel, q persistedQuery, variables map[string]string) (bulk.Request, error) {
	vars, err := json.Marshal(variables)
	if err != nil {
		return bulk.Request{}, fmt.Errorf("marshal %s variables: %w", q.operation, err)
	}
	ext, err := json.Marshal(map[string]any{
		"persistedQuery": map[string]any{"version": 1, "sha256Hash": q.hash},
	})
	if err != nil {
		return bulk.Request{}, fmt.Errorf("marshal %s extensions: %w", q.operation, err)
	}

	query := url.Values{}
	query.Set("operationName", q.operation)
	query.Set("variables", string(vars))
	query.Set("extensions", string(ext))

	return bulk.Get(string(panel), r.BaseURL+graphqlPath, query, header()), nil
}

func header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", providers.BrowserUserAgent)
	h.Set("Accept", "*/*")
	h.Set("Content-Type", "application/json")
	h.Set("Rdc-Client-Name", clientName)
	h.Set("Rdc-Client-Version", clientVersion)
	return h
}
