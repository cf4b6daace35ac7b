package lookup

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/servicearea/internal/policy"
	"github.com/sells-group/servicearea/internal/registry"
	"github.com/sells-group/servicearea/pkg/geocode"
)

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Geocode(ctx context.Context, query string) (*geocode.Address, error) {
	args := m.Called(ctx, query)
	addr, _ := args.Get(0).(*geocode.Address)
	return addr, args.Error(1)
}

func newService(t *testing.T, gc geocode.Client) *Service {
	t.Helper()
	reg, _ := registry.Build([]registry.Row{
		{Street: "Kemp Blvd", ServiceEntity: "CLUB-A", Range: &registry.HouseRange{Start: 100, End: 3000}},
		{Street: "Taft Blvd", ServiceEntity: "CLUB-B"},
	})
	p, err := policy.New(policy.Locality{City: "Wichita Falls", State: "Texas"})
	require.NoError(t, err)
	return NewService(registry.NewHolder(reg), p, gc)
}

func TestCheck_Accepted(t *testing.T) {
	gc := new(mockGeocoder)
	gc.On("Geocode", mock.Anything, "2300 Kemp Blvd, Wichita Falls").Return(&geocode.Address{
		HouseNumber: "2300", Road: "Kemp Boulevard", City: "Wichita Falls", State: "Texas", Source: "nominatim",
	}, nil)

	resp := newService(t, gc).Check(context.Background(), "  2300 Kemp Blvd, Wichita Falls ")
	assert.True(t, resp.Serviced)
	assert.Equal(t, policy.Accepted, resp.Outcome)
	assert.Equal(t, "CLUB-A", resp.ServiceEntity)
	assert.Equal(t, "Kemp Blvd", resp.MatchedStreet)
	assert.Equal(t, 100, resp.ConfidenceScore)
	require.NotNil(t, resp.Address)
	assert.Equal(t, "nominatim", resp.Address.Source)
	gc.AssertExpectations(t)
}

func TestCheck_HouseNumberOutOfRange(t *testing.T) {
	gc := new(mockGeocoder)
	gc.On("Geocode", mock.Anything, mock.Anything).Return(&geocode.Address{
		HouseNumber: "4500A", Road: "Kemp Boulevard", City: "Wichita Falls", State: "TX",
	}, nil)

	resp := newService(t, gc).Check(context.Background(), "4500A Kemp Blvd")
	assert.False(t, resp.Serviced)
	assert.Equal(t, policy.ReasonHouseOutOfRange, resp.ReasonCode)
}

func TestCheck_NotFound(t *testing.T) {
	gc := new(mockGeocoder)
	gc.On("Geocode", mock.Anything, "nowhere").Return(nil, geocode.ErrNotFound)

	resp := newService(t, gc).Check(context.Background(), "nowhere")
	assert.False(t, resp.Serviced)
	assert.Equal(t, policy.ReasonAddressNotFound, resp.ReasonCode)
	assert.Equal(t, "Address not found", resp.Reason)
	assert.NotNil(t, resp.Suggestions)
}

func TestCheck_NilAddressIsNotFound(t *testing.T) {
	gc := new(mockGeocoder)
	gc.On("Geocode", mock.Anything, "x").Return(nil, nil)

	resp := newService(t, gc).Check(context.Background(), "x")
	assert.Equal(t, policy.ReasonAddressNotFound, resp.ReasonCode)
}

func TestCheck_ProviderError(t *testing.T) {
	gc := new(mockGeocoder)
	gc.On("Geocode", mock.Anything, "Kemp").Return(nil, eris.New("geocode: nominatim: unexpected status 503"))

	resp := newService(t, gc).Check(context.Background(), "Kemp")
	assert.False(t, resp.Serviced)
	assert.Equal(t, policy.Rejected, resp.Outcome)
	assert.Equal(t, policy.ReasonGeocoderError, resp.ReasonCode)
}

func TestCheck_MissingRoad(t *testing.T) {
	gc := new(mockGeocoder)
	gc.On("Geocode", mock.Anything, "Wichita Falls").Return(&geocode.Address{City: "Wichita Falls", State: "Texas"}, nil)

	resp := newService(t, gc).Check(context.Background(), "Wichita Falls")
	assert.Equal(t, policy.ReasonNoStreetName, resp.ReasonCode)
	assert.Equal(t, "Could not extract street name", resp.Reason)
}

func TestCheck_OutsideLocality(t *testing.T) {
	gc := new(mockGeocoder)
	gc.On("Geocode", mock.Anything, mock.Anything).Return(&geocode.Address{Road: "Kemp Boulevard", City: "Dallas", State: "Texas"}, nil)

	resp := newService(t, gc).Check(context.Background(), "Kemp Blvd Dallas")
	assert.Equal(t, policy.ReasonOutsideServiceArea, resp.ReasonCode)
}

func TestCheck_EmptyQuerySkipsGeocoder(t *testing.T) {
	gc := new(mockGeocoder)
	resp := newService(t, gc).Check(context.Background(), "   ")
	assert.Equal(t, policy.ReasonNoStreetName, resp.ReasonCode)
	gc.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
}

func TestCheck_NoGeocoder(t *testing.T) {
	resp := newService(t, nil).Check(context.Background(), "2300 Kemp Blvd")
	assert.Equal(t, policy.ReasonGeocoderError, resp.ReasonCode)
}

func TestMatch_Suggestions(t *testing.T) {
	resp := newService(t, nil).Match(policy.Input{Street: "Kempp Blv", City: "Wichita Falls", State: "Texas"})
	assert.False(t, resp.Serviced)
	assert.Equal(t, policy.RejectedWithSuggestions, resp.Outcome)
	require.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, "Kemp Blvd", resp.Suggestions[0].Street)
}

func TestCheckAll_PreservesOrder(t *testing.T) {
	gc := new(mockGeocoder)
	gc.On("Geocode", mock.Anything, "kemp").Return(&geocode.Address{Road: "Kemp Blvd", City: "Wichita Falls", State: "Texas"}, nil)
	gc.On("Geocode", mock.Anything, "taft").Return(&geocode.Address{Road: "Taft Blvd", City: "Wichita Falls", State: "Texas"}, nil)
	gc.On("Geocode", mock.Anything, "gone").Return(nil, geocode.ErrNotFound)

	out := newService(t, gc).CheckAll(context.Background(), []string{"kemp", "gone", "taft", "kemp"}, 2)
	require.Len(t, out, 4)
	assert.Equal(t, "CLUB-A", out[0].ServiceEntity)
	assert.Equal(t, policy.ReasonAddressNotFound, out[1].ReasonCode)
	assert.Equal(t, "CLUB-B", out[2].ServiceEntity)
	assert.Equal(t, "CLUB-A", out[3].ServiceEntity)
}

func TestResponse_JSONShape(t *testing.T) {
	b, err := json.Marshal(FromDecision(policy.Reject(policy.ReasonAddressNotFound)))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, false, m["serviced"])
	assert.Equal(t, "address_not_found", m["reason_code"])
	assert.Equal(t, []any{}, m["suggestions"])
	assert.NotContains(t, m, "service_entity")
}

func TestInputFromAddress(t *testing.T) {
	in := InputFromAddress(&geocode.Address{HouseNumber: "100-104", Road: "Kemp", City: "c", State: "s"})
	require.NotNil(t, in.HouseNumber)
	assert.Equal(t, 100, *in.HouseNumber)

	in = InputFromAddress(&geocode.Address{HouseNumber: "Lot B", Road: "Kemp"})
	assert.Nil(t, in.HouseNumber)
}
