package geocode

import (
	"context"
	"net/url"
	"strings"
)

const (
	censusOneLineURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	censusBenchmark  = "Public_AR_Current"
)

// censusOneLineResponse is the JSON response from the Census single-address API.
type censusOneLineResponse struct {
	Result struct {
		AddressMatches []censusAddressMatch `json:"addressMatches"`
	} `json:"result"`
}

type censusAddressMatch struct {
	Coordinates struct {
		X float64 `json:"x"` // longitude
		Y float64 `json:"y"` // latitude
	} `json:"coordinates"`
	AddressComponents struct {
		PreDirection    string `json:"preDirection"`
		PreType         string `json:"preType"`
		StreetName      string `json:"streetName"`
		SuffixType      string `json:"suffixType"`
		SuffixDirection string `json:"suffixDirection"`
		City            string `json:"city"`
		State           string `json:"state"`
		Zip             string `json:"zip"`
	} `json:"addressComponents"`
	MatchedAddress string `json:"matchedAddress"`
}

// Census geocodes US addresses with the Census Bureau one-line API.
type Census struct {
	endpoint
}

// NewCensus creates a Census provider.
func NewCensus(opts ...Option) *Census {
	return &Census{endpoint: newEndpoint("census", opts)}
}

// Name implements Provider.
func (c *Census) Name() string { return "census" }

// Geocode implements Client.
func (c *Census) Geocode(ctx context.Context, query string) (*Address, error) {
	params := url.Values{
		"address":   {query},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}

	var resp censusOneLineResponse
	if err := c.getJSON(ctx, censusOneLineURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Result.AddressMatches) == 0 {
		return nil, ErrNotFound
	}

	m := resp.Result.AddressMatches[0]
	ac := m.AddressComponents
	return &Address{
		HouseNumber: leadingNumber(m.MatchedAddress),
		Road:        joinNonEmpty(ac.PreDirection, ac.PreType, ac.StreetName, ac.SuffixType, ac.SuffixDirection),
		City:        ac.City,
		State:       ac.State,
		Postcode:    ac.Zip,
		Country:     "US",
		DisplayName: m.MatchedAddress,
		Latitude:    m.Coordinates.Y,
		Longitude:   m.Coordinates.X,
		Source:      "census",
	}, nil
}

// leadingNumber returns the first token of a matched address when it starts
// with a digit ("1600 PENNSYLVANIA AVE NW, ..." gives "1600").
func leadingNumber(s string) string {
	tok, _, _ := strings.Cut(strings.TrimSpace(s), " ")
	if tok == "" || tok[0] < '0' || tok[0] > '9' {
		return ""
	}
	return strings.TrimSuffix(tok, ",")
}

func joinNonEmpty(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}
