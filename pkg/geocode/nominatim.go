package geocode

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DefaultNominatimURL is the public OpenStreetMap Nominatim instance.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

type nominatimAddress struct {
	HouseNumber  string `json:"house_number"`
	Road         string `json:"road"`
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Hamlet       string `json:"hamlet"`
	Municipality string `json:"municipality"`
	State        string `json:"state"`
	Postcode     string `json:"postcode"`
	Country      string `json:"country"`
}

// city picks the first populated settlement field; Nominatim files small
// places under town or village instead of city.
func (a nominatimAddress) city() string {
	for _, c := range []string{a.City, a.Town, a.Village, a.Hamlet, a.Municipality} {
		if c != "" {
			return c
		}
	}
	return ""
}

type nominatimPlace struct {
	DisplayName string            `json:"display_name"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Address     *nominatimAddress `json:"address"`
}

// Nominatim geocodes against an OpenStreetMap Nominatim server.
type Nominatim struct {
	endpoint
	baseURL      string
	countryCodes string
}

// NewNominatim creates a Nominatim provider. An empty baseURL means the
// public instance; countryCodes ("us", "us,ca") restricts results.
func NewNominatim(baseURL, countryCodes string, opts ...Option) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &Nominatim{
		endpoint:     newEndpoint("nominatim", opts),
		baseURL:      strings.TrimRight(baseURL, "/"),
		countryCodes: countryCodes,
	}
}

// Name implements Provider.
func (n *Nominatim) Name() string { return "nominatim" }

// Geocode implements Client.
func (n *Nominatim) Geocode(ctx context.Context, query string) (*Address, error) {
	params := url.Values{
		"q":              {query},
		"format":         {"json"},
		"addressdetails": {"1"},
		"limit":          {"1"},
	}
	if n.countryCodes != "" {
		params.Set("countrycodes", n.countryCodes)
	}

	var places []nominatimPlace
	if err := n.getJSON(ctx, n.baseURL+"/search?"+params.Encode(), &places); err != nil {
		return nil, err
	}
	if len(places) == 0 || places[0].Address == nil {
		return nil, ErrNotFound
	}

	p := places[0]
	addr := &Address{
		HouseNumber: p.Address.HouseNumber,
		Road:        p.Address.Road,
		City:        p.Address.city(),
		State:       p.Address.State,
		Postcode:    p.Address.Postcode,
		Country:     p.Address.Country,
		DisplayName: p.DisplayName,
		Source:      "nominatim",
	}
	var err error
	if addr.Latitude, err = strconv.ParseFloat(p.Lat, 64); err != nil {
		zap.L().Debug("nominatim: unparseable latitude", zap.String("lat", p.Lat))
	}
	if addr.Longitude, err = strconv.ParseFloat(p.Lon, 64); err != nil {
		zap.L().Debug("nominatim: unparseable longitude", zap.String("lon", p.Lon))
	}
	return addr, nil
}
