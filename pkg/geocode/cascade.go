package geocode

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CascadeClient tries providers in order until one finds the address.
type CascadeClient struct {
	providers []Provider
}

// NewCascadeClient creates a CascadeClient over providers.
func NewCascadeClient(providers ...Provider) *CascadeClient {
	return &CascadeClient{providers: providers}
}

// Providers returns the provider names in cascade order.
func (c *CascadeClient) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Geocode implements Client. A provider error moves on to the next provider.
// When no provider finds the address the result is ErrNotFound if any
// provider answered, otherwise the last provider error.
func (c *CascadeClient) Geocode(ctx context.Context, query string) (*Address, error) {
	if len(c.providers) == 0 {
		return nil, eris.New("geocode: no providers configured")
	}

	var lastErr error
	answered := false
	for _, p := range c.providers {
		addr, err := p.Geocode(ctx, query)
		switch {
		case err == nil && addr != nil:
			return addr, nil
		case err == nil, errors.Is(err, ErrNotFound):
			answered = true
			zap.L().Debug("cascade: provider has no match, trying next",
				zap.String("provider", p.Name()),
			)
		default:
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "geocode: cascade")
			}
			lastErr = err
			zap.L().Debug("cascade: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
		}
	}

	if answered {
		return nil, ErrNotFound
	}
	return nil, lastErr
}
