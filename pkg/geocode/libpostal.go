//go:build libpostal

package geocode

import (
	"context"

	postal "github.com/openvenues/gopostal/parser"
)

// Libpostal parses addresses offline with libpostal. It yields components
// only, no coordinates.
type Libpostal struct{}

// NewLibpostal creates a Libpostal provider.
func NewLibpostal() (Provider, error) {
	return &Libpostal{}, nil
}

// Name implements Provider.
func (l *Libpostal) Name() string { return "libpostal" }

// Geocode implements Client. Queries without a road are not found.
func (l *Libpostal) Geocode(_ context.Context, query string) (*Address, error) {
	addr := &Address{DisplayName: query, Source: "libpostal"}
	for _, c := range postal.ParseAddress(query) {
		switch c.Label {
		case "house_number":
			addr.HouseNumber = c.Value
		case "road":
			addr.Road = c.Value
		case "city", "suburb", "city_district":
			if addr.City == "" {
				addr.City = c.Value
			}
		case "state":
			addr.State = c.Value
		case "postcode":
			addr.Postcode = c.Value
		case "country":
			addr.Country = c.Value
		}
	}
	if addr.Road == "" {
		return nil, ErrNotFound
	}
	return addr, nil
}
