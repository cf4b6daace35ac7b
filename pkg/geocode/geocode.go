// Package geocode resolves free-text addresses into structured components
// via Nominatim, the Census Geocoder, Google and (optionally) libpostal.
package geocode

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when a provider answers but has no result for the
// query.
var ErrNotFound = eris.New("geocode: address not found")

// Address is a geocoded address split into components.
type Address struct {
	HouseNumber string  `json:"house_number,omitempty" yaml:"house_number,omitempty"`
	Road        string  `json:"road" yaml:"road"`
	City        string  `json:"city" yaml:"city"`
	State       string  `json:"state" yaml:"state"`
	Postcode    string  `json:"postcode,omitempty" yaml:"postcode,omitempty"`
	Country     string  `json:"country,omitempty" yaml:"country,omitempty"`
	DisplayName string  `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Latitude    float64 `json:"lat,omitempty" yaml:"lat,omitempty"`
	Longitude   float64 `json:"lon,omitempty" yaml:"lon,omitempty"`
	Source      string  `json:"source" yaml:"source"`
}

// Client geocodes a one-line address query.
type Client interface {
	// Geocode returns the best address for query, or ErrNotFound.
	Geocode(ctx context.Context, query string) (*Address, error)
}

// Provider is a single geocoding backend.
type Provider interface {
	Client
	Name() string
}

// ProviderConfig carries provider-specific settings for Providers.
type ProviderConfig struct {
	NominatimURL string
	CountryCodes string
	GoogleKey    string
}

// ProviderNames lists the names Providers accepts.
func ProviderNames() []string {
	return []string{"nominatim", "census", "google", "libpostal"}
}

// Providers builds the named providers in order.
func Providers(names []string, pc ProviderConfig, opts ...Option) ([]Provider, error) {
	if len(names) == 0 {
		return nil, eris.New("geocode: no providers configured")
	}
	out := make([]Provider, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "nominatim":
			out = append(out, NewNominatim(pc.NominatimURL, pc.CountryCodes, opts...))
		case "census":
			out = append(out, NewCensus(opts...))
		case "google":
			if pc.GoogleKey == "" {
				return nil, eris.New("geocode: google provider requires an api key")
			}
			out = append(out, NewGoogle(pc.GoogleKey, opts...))
		case "libpostal":
			p, err := NewLibpostal()
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		default:
			return nil, eris.Errorf("geocode: unknown provider %q", name)
		}
	}
	return out, nil
}
