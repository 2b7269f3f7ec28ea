// Package zillow talks to zillow.com: the web autocomplete GraphQL endpoint
// and the mobile app's home lookup.
package zillow

import (
	"fmt"
	"strings"
)

// Origins.
const (
	WebBaseURL    = "https://www.zillow.com"
	MobileBaseURL = "https://zm.zillow.com"
)

const (
	autocompletePath = "/zg-graph"
	lookupPath       = "/api/public/v3/mobile-search/homes/lookup"

	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:129.0) Gecko/20100101 Firefox/129.0"
	mobileUserAgent  = "Zillow/16.95.0.1 CFNetwork/1568.100.1 Darwin/24.0.0"
	clientHeader     = "com.zillow.ZillowMap"
)

var regionTypeCodes = map[string]int{
	"state":        2,
	"county":       4,
	"city":         6,
	"zipcode":      7,
	"neighborhood": 17,
}

// RegionTypeCode returns the numeric region type for a name. Case is ignored.
func RegionTypeCode(name string) (int, error) {
	code, ok := regionTypeCodes[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown zillow region type %q", name)
	}
	return code, nil
}
