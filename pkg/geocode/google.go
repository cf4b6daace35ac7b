package geocode

import (
	"context"
	"net/url"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/servicearea/internal/resilience"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

func (r *googleGeocodeResponse) check() error {
	switch r.Status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return resilience.NewTransientError(eris.Errorf("google status %s", r.Status), 0)
	default:
		return eris.Errorf("google status %s: %s", r.Status, r.ErrorMessage)
	}
}

type googleResult struct {
	AddressComponents []googleComponent `json:"address_components"`
	Geometry          struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

type googleComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// component returns the long name of the first component carrying any of
// the types, in preference order.
func (r googleResult) component(types ...string) string {
	for _, t := range types {
		for _, c := range r.AddressComponents {
			if slices.Contains(c.Types, t) {
				return c.LongName
			}
		}
	}
	return ""
}

// Google geocodes with the Google Geocoding API.
type Google struct {
	endpoint
	apiKey string
}

// NewGoogle creates a Google provider.
func NewGoogle(apiKey string, opts ...Option) *Google {
	return &Google{endpoint: newEndpoint("google", opts), apiKey: apiKey}
}

// Name implements Provider.
func (g *Google) Name() string { return "google" }

// Geocode implements Client.
func (g *Google) Geocode(ctx context.Context, query string) (*Address, error) {
	if g.apiKey == "" {
		return nil, eris.New("geocode: google api key not configured")
	}

	params := url.Values{
		"address": {query},
		"key":     {g.apiKey},
	}

	var resp googleGeocodeResponse
	if err := g.getJSON(ctx, googleGeocodeURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	if resp.Status == "ZERO_RESULTS" || len(resp.Results) == 0 {
		return nil, ErrNotFound
	}

	r := resp.Results[0]
	return &Address{
		HouseNumber: r.component("street_number"),
		Road:        r.component("route"),
		City:        r.component("locality", "postal_town", "sublocality"),
		State:       r.component("administrative_area_level_1"),
		Postcode:    r.component("postal_code"),
		Country:     r.component("country"),
		DisplayName: r.FormattedAddress,
		Latitude:    r.Geometry.Location.Lat,
		Longitude:   r.Geometry.Location.Lng,
		Source:      "google",
	}, nil
}
