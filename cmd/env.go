package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/servicearea/internal/address"
	"github.com/sells-group/servicearea/internal/config"
	"github.com/sells-group/servicearea/internal/db"
	"github.com/sells-group/servicearea/internal/fetcher"
	"github.com/sells-group/servicearea/internal/lookup"
	"github.com/sells-group/servicearea/internal/match"
	"github.com/sells-group/servicearea/internal/policy"
	"github.com/sells-group/servicearea/internal/registry"
	"github.com/sells-group/servicearea/internal/resilience"
	"github.com/sells-group/servicearea/internal/store"
	"github.com/sells-group/servicearea/pkg/geocode"
)

// lookupEnv holds everything the check, batch and serve commands share.
type lookupEnv struct {
	Holder  *registry.Holder
	Stats   registry.BuildStats
	Service *lookup.Service
	Cache   store.Cache // may be nil

	// Breakers guard the geocoding providers; nil without a geocoder.
	Breakers *resilience.ServiceBreakers
}

// Close releases resources held by the environment.
func (e *lookupEnv) Close() {
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
}

// initLookup validates cfg for mode, loads the registry and builds the
// lookup service. Geocoding is wired only when withGeocoder is set.
func initLookup(ctx context.Context, c *config.Config, mode string, withGeocoder bool) (*lookupEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	buildOpts, err := buildOptions(c.Match)
	if err != nil {
		return nil, err
	}
	reg, stats, err := registry.FromSource(ctx, c.Registry.Source, loadOptions(c), buildOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "load registry")
	}
	zap.L().Info("registry ready",
		zap.String("source", c.Registry.Source),
		zap.Int("streets", stats.Streets),
		zap.Int("keys", stats.Keys),
		zap.Int("skipped", stats.Skipped),
	)

	pol, err := newPolicy(c)
	if err != nil {
		return nil, err
	}

	env := &lookupEnv{Holder: registry.NewHolder(reg), Stats: stats}

	var gc geocode.Client
	if withGeocoder {
		env.Breakers = resilience.NewServiceBreakers(
			resilience.FromCircuitConfig(c.Geocode.BreakerTrips, c.Geocode.BreakerResetS))
		gc, env.Cache, err = newGeocoder(ctx, c, env.Breakers)
		if err != nil {
			return nil, err
		}
	}
	env.Service = lookup.NewService(env.Holder, pol, gc)
	return env, nil
}

func loadOptions(c *config.Config) registry.LoadOptions {
	return registry.LoadOptions{
		Format: c.Registry.Format,
		Columns: registry.Columns{
			Street: c.Registry.StreetColumn,
			Entity: c.Registry.EntityColumn,
			Start:  c.Registry.StartColumn,
			End:    c.Registry.EndColumn,
		},
		Fetch: fetcher.Options{
			HTTP: fetcher.HTTPOptions{UserAgent: c.Geocode.UserAgent},
		},
	}
}

func buildOptions(m config.MatchConfig) ([]registry.BuildOption, error) {
	variants, err := registry.VariantsByName(m.Variants)
	if err != nil {
		return nil, err
	}
	return []registry.BuildOption{
		registry.WithNormalizer(address.NewNormalizer(address.WithSuffixAbbreviation(m.AbbreviateSuffixes))),
		registry.WithVariants(variants),
	}, nil
}

func newPolicy(c *config.Config) (*policy.Policy, error) {
	strategy, err := match.StrategyByName(c.Match.Strategy)
	if err != nil {
		return nil, err
	}
	opts := []policy.Option{
		policy.WithMatcher(match.New(strategy)),
		policy.WithThresholds(policy.Thresholds{
			Accept:  c.Match.AcceptThreshold,
			Suggest: c.Match.SuggestThreshold,
		}),
		policy.WithSuggestionLimit(c.Match.SuggestionLimit),
	}
	if c.Match.StrictTokenOverlap {
		opts = append(opts, policy.WithStrictTokenOverlap(c.Match.StrictThreshold))
	}
	return policy.New(policy.Locality{
		City:        c.Locality.City,
		State:       c.Locality.State,
		CityAliases: c.Locality.CityAliases,
	}, opts...)
}

// newGeocoder builds the provider cascade, wrapped in the configured cache.
func newGeocoder(ctx context.Context, c *config.Config, breakers *resilience.ServiceBreakers) (geocode.Client, store.Cache, error) {
	retry := resilience.FromRetryConfig(c.Geocode.MaxRetries, c.Geocode.BackoffMs, c.Geocode.MaxBackoffMs)
	providers, err := geocode.Providers(c.Geocode.Providers, geocode.ProviderConfig{
		NominatimURL: c.Geocode.NominatimURL,
		CountryCodes: c.Geocode.CountryCodes,
		GoogleKey:    c.Geocode.GoogleKey,
	},
		geocode.WithTimeout(c.Geocode.Timeout()),
		geocode.WithUserAgent(c.Geocode.UserAgent),
		geocode.WithRateLimit(c.Geocode.RateLimit),
		geocode.WithRetry(retry),
		geocode.WithBreakers(breakers),
	)
	if err != nil {
		return nil, nil, err
	}
	var gc geocode.Client = geocode.NewCascadeClient(providers...)

	cache, err := openCache(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	if cache != nil {
		gc = geocode.NewCachedClient(gc, cache)
		zap.L().Info("geocode cache enabled", zap.String("driver", c.Store.Driver))
	}
	return gc, cache, nil
}

func openCache(ctx context.Context, c *config.Config) (store.Cache, error) {
	cache, err := store.Open(ctx, store.Config{
		Driver:      c.Store.Driver,
		DatabaseURL: c.Store.DatabaseURL,
		TTL:         c.Geocode.CacheTTL(),
		Pool:        db.PoolConfig{MaxConns: c.Store.MaxConns},
	})
	if err != nil {
		return nil, eris.Wrap(err, "open geocode cache")
	}
	return cache, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
