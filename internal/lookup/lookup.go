// Package lookup turns a free-text address into a service decision: geocode
// the query, feed the components to the policy, and shape the response.
package lookup

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/servicearea/internal/address"
	"github.com/sells-group/servicearea/internal/match"
	"github.com/sells-group/servicearea/internal/policy"
	"github.com/sells-group/servicearea/internal/registry"
	"github.com/sells-group/servicearea/pkg/geocode"
)

// Response is the public answer for one address.
type Response struct {
	Serviced        bool               `json:"serviced" yaml:"serviced"`
	Outcome         policy.Outcome     `json:"outcome" yaml:"outcome"`
	ServiceEntity   string             `json:"service_entity,omitempty" yaml:"service_entity,omitempty"`
	MatchedStreet   string             `json:"matched_street,omitempty" yaml:"matched_street,omitempty"`
	ConfidenceScore int                `json:"confidence_score" yaml:"confidence_score"`
	Reason          string             `json:"reason,omitempty" yaml:"reason,omitempty"`
	ReasonCode      policy.ReasonCode  `json:"reason_code,omitempty" yaml:"reason_code,omitempty"`
	Suggestions     []match.Suggestion `json:"suggestions" yaml:"suggestions"`
	Address         *geocode.Address   `json:"address,omitempty" yaml:"address,omitempty"`
}

// FromDecision shapes a policy decision as a Response.
func FromDecision(d policy.Decision) Response {
	r := Response{
		Serviced:        d.Serviced(),
		Outcome:         d.Outcome,
		ServiceEntity:   d.ServiceEntity,
		MatchedStreet:   d.MatchedStreet,
		ConfidenceScore: d.Score,
		Reason:          d.Reason,
		ReasonCode:      d.ReasonCode,
		Suggestions:     d.Suggestions,
	}
	if r.Suggestions == nil {
		r.Suggestions = []match.Suggestion{}
	}
	return r
}

// RegistrySource returns the registry to decide against. *registry.Holder
// satisfies it.
type RegistrySource interface {
	Load() *registry.Registry
}

// Service answers lookups. It is safe for concurrent use.
type Service struct {
	registries RegistrySource
	policy     *policy.Policy
	geocoder   geocode.Client
}

// NewService creates a Service. geocoder may be nil when only Match is used.
func NewService(registries RegistrySource, p *policy.Policy, geocoder geocode.Client) *Service {
	return &Service{registries: registries, policy: p, geocoder: geocoder}
}

// Registry returns the registry currently served.
func (s *Service) Registry() *registry.Registry {
	return s.registries.Load()
}

// Policy returns the decision policy.
func (s *Service) Policy() *policy.Policy {
	return s.policy
}

// Match decides pre-split address components without geocoding.
func (s *Service) Match(in policy.Input) Response {
	return FromDecision(s.policy.Evaluate(in, s.registries.Load()))
}

// Check geocodes query and decides the result. Geocoder failures become
// rejections, never errors.
func (s *Service) Check(ctx context.Context, query string) Response {
	query = strings.TrimSpace(query)
	if query == "" {
		return FromDecision(policy.Reject(policy.ReasonNoStreetName))
	}
	if s.geocoder == nil {
		return FromDecision(policy.Reject(policy.ReasonGeocoderError))
	}

	addr, err := s.geocoder.Geocode(ctx, query)
	switch {
	case errors.Is(err, geocode.ErrNotFound):
		return FromDecision(policy.Reject(policy.ReasonAddressNotFound))
	case err != nil:
		zap.L().Warn("lookup: geocoder failed", zap.String("query", query), zap.Error(err))
		return FromDecision(policy.Reject(policy.ReasonGeocoderError))
	case addr == nil:
		return FromDecision(policy.Reject(policy.ReasonAddressNotFound))
	}

	resp := s.Match(InputFromAddress(addr))
	resp.Address = addr

	zap.L().Debug("lookup: decided",
		zap.String("road", addr.Road),
		zap.String("outcome", string(resp.Outcome)),
		zap.Int("score", resp.ConfidenceScore),
	)
	return resp
}

// CheckAll runs Check over queries with at most concurrency lookups in
// flight. Responses are returned in query order.
func (s *Service) CheckAll(ctx context.Context, queries []string, concurrency int) []Response {
	out := make([]Response, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, concurrency))
	for i, q := range queries {
		g.Go(func() error {
			out[i] = s.Check(gctx, q)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// InputFromAddress maps geocoded components to a policy input. The house
// number is dropped when it has no leading digits.
func InputFromAddress(addr *geocode.Address) policy.Input {
	in := policy.Input{
		Street: addr.Road,
		City:   addr.City,
		State:  addr.State,
	}
	if n, ok := address.ParseHouseNumber(addr.HouseNumber); ok {
		in.HouseNumber = &n
	}
	return in
}
