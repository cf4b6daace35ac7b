package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/servicearea/internal/resilience"
)

type settings struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	breakers   *resilience.ServiceBreakers
}

// Option configures the HTTP-backed providers.
type Option func(*settings)

// WithHTTPClient sets the HTTP client used for provider requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) {
		s.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithUserAgent sets the User-Agent header. Nominatim rejects requests
// without one.
func WithUserAgent(ua string) Option {
	return func(s *settings) {
		s.userAgent = ua
	}
}

// WithRateLimit caps requests per second for each provider.
func WithRateLimit(rps float64) Option {
	return func(s *settings) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithLimiter shares one limiter across providers.
func WithLimiter(l *rate.Limiter) Option {
	return func(s *settings) {
		s.limiter = l
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *settings) {
		s.retry = cfg
	}
}

// WithBreakers sets the circuit breakers, one per provider name.
func WithBreakers(b *resilience.ServiceBreakers) Option {
	return func(s *settings) {
		s.breakers = b
	}
}

// endpoint is the HTTP plumbing shared by the web providers: rate limit,
// retry on transient failures, and a circuit breaker per provider.
type endpoint struct {
	name     string
	settings settings
	breaker  *resilience.CircuitBreaker
}

func newEndpoint(name string, opts []Option) endpoint {
	s := settings{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  "servicearea/1.0",
		limiter:    rate.NewLimiter(1, 1),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.retry.OnRetry == nil {
		s.retry.OnRetry = resilience.RetryLogger(name, "geocode")
	}
	if s.breakers == nil {
		s.breakers = resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig())
	}
	return endpoint{name: name, settings: s, breaker: s.breakers.Get(name)}
}

// getJSON fetches reqURL and decodes the JSON body into out.
func (e *endpoint) getJSON(ctx context.Context, reqURL string, out any) error {
	err := e.breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.Do(ctx, e.settings.retry, func(ctx context.Context) error {
			return e.fetch(ctx, reqURL, out)
		})
	})
	if err != nil {
		return eris.Wrapf(err, "geocode: %s", e.name)
	}
	return nil
}

func (e *endpoint) fetch(ctx context.Context, reqURL string, out any) error {
	if e.settings.limiter != nil {
		if err := e.settings.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", e.settings.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := e.settings.httpClient.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resilience.StatusError(e.name, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return eris.Wrap(err, "parse response")
	}
	if c, ok := out.(checker); ok {
		return c.check()
	}
	return nil
}

// checker is implemented by responses that report errors in the body of a
// 200 response. check runs inside the retry loop.
type checker interface {
	check() error
}
