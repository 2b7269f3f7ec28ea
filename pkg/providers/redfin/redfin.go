// Package redfin talks to the redfin.com stingray API. Its answers carry
// the "{}&&" anti-hijacking prefix.
package redfin

import (
	"fmt"
	"strings"
)

// BaseURL is the redfin.com origin.
const BaseURL = "https://www.redfin.com"

const (
	queryLocationPath = "/stingray/do/query-location"
	gisPath           = "/stingray/api/gis"
)

// DefaultNumHomes caps a listing search.
const DefaultNumHomes = 350

// DefaultRadiusMiles sizes a map search without a radius.
const DefaultRadiusMiles = 5.0

// allListingTypes is the sf filter covering every sale type.
const allListingTypes = "1,2,3,4,5,6,7"

// defaultSort orders listing search results.
const defaultSort = "redfin-recommended-asc"

// HomeType is a property kind accepted by the listing searches.
type HomeType string

const (
	HomeTypeHouse       HomeType = "home"
	HomeTypeCondo       HomeType = "condo"
	HomeTypeTownhouse   HomeType = "townhouse"
	HomeTypeMultiFamily HomeType = "multi-family"
	HomeTypeLand        HomeType = "land"
	HomeTypeOther       HomeType = "other"
	HomeTypeMobile      HomeType = "mobile"
	HomeTypeCoop        HomeType = "co-op"
)

// uiptCodes maps home types to redfin's uipt values.
var uiptCodes = map[HomeType]string{
	HomeTypeHouse:       "1",
	HomeTypeCondo:       "2",
	HomeTypeTownhouse:   "3",
	HomeTypeMultiFamily: "4",
	HomeTypeLand:        "5",
	HomeTypeOther:       "6",
	HomeTypeMobile:      "7",
	HomeTypeCoop:        "8",
}

var financingCodes = map[string]string{
	"FHA": "1",
	"VA":  "2",
}

var poolCodes = map[string]string{
	"private":              "1",
	"community":            "2",
	"private_or_community": "3",
	"no_private_pool":      "4",
}

var regionTypeCodes = map[string]string{
	"neighborhood": "1",
	"zipcode":      "2",
	"county":       "5",
	"city":         "6",
}

var regionTypeNames = map[string]string{
	"1": "neighborhood",
	"2": "zipcode",
	"5": "county",
	"6": "city",
}

// UIPT returns the uipt code of a home type.
func UIPT(t HomeType) (string, error) {
	code, ok := uiptCodes[t]
	if !ok {
		return "", fmt.Errorf("%w: home type %q", ErrUnknownValue, t)
	}
	return code, nil
}

// FinancingCode returns the code of a financing type ("FHA", "VA"); case is ignored.
func FinancingCode(name string) (string, error) {
	code, ok := financingCodes[strings.ToUpper(name)]
	if !ok {
		return "", fmt.Errorf("%w: financing type %q", ErrUnknownValue, name)
	}
	return code, nil
}

// PoolCode returns the code of a pool filter.
func PoolCode(name string) (string, error) {
	code, ok := poolCodes[name]
	if !ok {
		return "", fmt.Errorf("%w: pool type %q", ErrUnknownValue, name)
	}
	return code, nil
}

// RegionTypeCode returns the numeric code of a region type name. Names it
// does not know are passed through, so numeric codes are accepted as is.
func RegionTypeCode(name string) string {
	if code, ok := regionTypeCodes[name]; ok {
		return code
	}
	return name
}

// RegionTypeName returns the name of a numeric region type, or "".
func RegionTypeName(code string) string {
	return regionTypeNames[code]
}
