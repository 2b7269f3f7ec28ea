// Package homes talks to homes.com: location autocomplete, listing
// placards, property detail and boundary shapes.
package homes

import (
	"encoding/json"
	"fmt"
)

// Origins.
const (
	BaseURL       = "https://www.homes.com"
	ShapesBaseURL = "https://shapes.homes.com"
)

const (
	autocompletePath = "/routes/res/consumer/property/autocomplete/"
	placardsPath     = "/routes/res/native/v20/property/getplacardsbylisting"
	detailPath       = "/routes/res/native/v20/property/detail/"

	webUserAgent    = "Mozilla/5.0 (iPhone; CPU iPhone OS 18_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.0 Mobile/15E148 Safari/604.1"
	nativeUserAgent = "Homes/native/iOS/Phone/15.2.1 (18.0-iPhone14,2-20240809.2)"
	desktopAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:130.0) Gecko/20100101 Firefox/130.0"
)

// LocationKind narrows FindLocation.
type LocationKind string

const (
	KindAny     LocationKind = ""
	KindCity    LocationKind = "city"
	KindZipcode LocationKind = "zipcode"
)

// label is the place type homes.com reports for k.
func (k LocationKind) label() string {
	switch k {
	case KindCity:
		return "City"
	case KindZipcode:
		return "Zip Code"
	}
	return ""
}

// ShapeKind selects a boundary family.
type ShapeKind string

const (
	ShapeCity       ShapeKind = "city"
	ShapePostalCode ShapeKind = "postalcode"
)

func (k ShapeKind) valid() bool {
	return k == ShapeCity || k == ShapePostalCode
}

// Place is one autocomplete suggestion. Type and Geography are decoded;
// the full suggestion is kept in Raw.
type Place struct {
	// Type is the display type, e.g. "City" or "Zip Code".
	Type string `json:"s"`
	// Geography is the opaque location blob the search endpoints take.
	Geography json.RawMessage `json:"g"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes a suggestion and keeps its raw form.
func (p *Place) UnmarshalJSON(b []byte) error {
	type fields Place
	var f fields
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("decode place: %w", err)
	}
	*p = Place(f)
	p.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// MarshalJSON writes the raw suggestion.
func (p Place) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type fields Place
	return json.Marshal(fields(p))
}
