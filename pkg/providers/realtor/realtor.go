// Package realtor talks to realtor.com. Property pages are assembled from
// several panels, each a separate GraphQL call; PropertyBundle fetches them
// concurrently.
package realtor

import (
	"net/url"
	"path"
	"strconv"
	"strings"
)

// BaseURL is the realtor.com origin.
const BaseURL = "https://www.realtor.com"

const (
	graphqlPath = "/frontdoor/graphql"
	searchPath  = "/api/v1/rdc_search_srp"
	detailPath  = "/realestateandhomes-detail"

	clientName    = "RDC_WEB_DETAILS_PAGE"
	clientVersion = "2.0.1241"
)

// Panel names one section of a property page. It doubles as the
// correlation key of the panel's request.
type Panel string

const (
	PanelDetails    Panel = "details"
	PanelTaxHistory Panel = "tax_history"
	PanelSchools    Panel = "schools"
	PanelEstimates  Panel = "estimates"
	PanelSaves      Panel = "saves"
	PanelGallery    Panel = "gallery"
)

// AllPanels lists every panel in page order.
func AllPanels() []Panel {
	return []Panel{PanelDetails, PanelTaxHistory, PanelSchools, PanelEstimates, PanelSaves, PanelGallery}
}

// Valid reports whether p is a known panel.
func (p Panel) Valid() bool {
	switch p {
	case PanelDetails, PanelTaxHistory, PanelSchools, PanelEstimates, PanelSaves, PanelGallery:
		return true
	}
	return false
}

// persistedQuery identifies a GraphQL operation stored server side.
type persistedQuery struct {
	operation string
	hash      string
	// idVariable is the variable carrying the property id.
	idVariable string
}

var persistedQueries = map[Panel]persistedQuery{
	PanelDetails: {
		operation:  "FullPropertyDetails",
		hash:       "f092e858153fb66a74362fd819a7587b0cb445975107fe13bcff8fcdb500caae",
		idVariable: "propertyId",
	},
	PanelSchools: {
		operation:  "GetSchoolData",
		hash:       "ee4267d9cd64801da16099587142fc163d2e04fc6525f2b67924440a90b5f638",
		idVariable: "propertyId",
	},
	PanelEstimates: {
		operation:  "DPPropertyEstimates",
		hash:       "98965d7e46d5550c2caca6656326be533a548fde2b41d9e1a4dda47c7db9de38",
		idVariable: "propertyId",
	},
	PanelSaves: {
		operation:  "GetHomeSaves",
		hash:       "00e9ea1931736764388f7794703d0fb9da5aa1dbb9cff211cb809c4aae5728cf",
		idVariable: "propertyId",
	},
	PanelGallery: {
		operation:  "GetAugmentedGallery",
		hash:       "f31fc9dfe469d31d25c4e893223c06e40f9c307e4411a0e4afd060b99ed1db20",
		idVariable: "property_id",
	},
}

// PropertyLink returns the public listing page for a permalink.
func PropertyLink(permalink string) string {
	return BaseURL + detailPath + "/" + strings.TrimPrefix(permalink, "/")
}

// DefaultPhotoWidth is used by PhotoLink when width is zero.
const DefaultPhotoWidth = 960

// PhotoLink rewrites a listing photo URL to the resized rendition of the
// given width: ".../abc-m123s.jpg" becomes "https://host/abc-m123rd-w960.jpg".
// URLs it cannot rewrite are returned unchanged.
func PhotoLink(photoURL string, width int) string {
	if width <= 0 {
		width = DefaultPhotoWidth
	}

	u, err := url.Parse(photoURL)
	if err != nil || u.Host == "" {
		return photoURL
	}

	name := path.Base(u.Path)
	ext := path.Ext(name)
	if ext == "" {
		return photoURL
	}

	name = strings.ReplaceAll(name, "s"+ext, "rd-w"+strconv.Itoa(width)+ext)
	return u.Scheme + "://" + u.Host + "/" + name
}
