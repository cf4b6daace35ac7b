// Package config loads servicearea configuration from config.yaml and
// SERVICEAREA_* environment variables, and initializes logging.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/servicearea/internal/match"
	"github.com/sells-group/servicearea/internal/registry"
	"github.com/sells-group/servicearea/internal/store"
	"github.com/sells-group/servicearea/pkg/geocode"
)

// EnvPrefix prefixes every environment override, e.g. SERVICEAREA_SERVER_PORT.
const EnvPrefix = "SERVICEAREA"

// Config holds the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Locality LocalityConfig `yaml:"locality" mapstructure:"locality"`
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Match    MatchConfig    `yaml:"match" mapstructure:"match"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	APITokens        []string `yaml:"api_tokens" mapstructure:"api_tokens"`
	CORSOrigins      []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ReadTimeoutSecs  int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs int      `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
}

// LocalityConfig is the serviced city and state.
type LocalityConfig struct {
	City        string   `yaml:"city" mapstructure:"city"`
	State       string   `yaml:"state" mapstructure:"state"`
	CityAliases []string `yaml:"city_aliases" mapstructure:"city_aliases"`
}

// RegistryConfig locates and describes the street feed.
type RegistryConfig struct {
	Source       string `yaml:"source" mapstructure:"source"`
	Format       string `yaml:"format" mapstructure:"format"`
	StreetColumn string `yaml:"street_column" mapstructure:"street_column"`
	EntityColumn string `yaml:"entity_column" mapstructure:"entity_column"`
	StartColumn  string `yaml:"start_column" mapstructure:"start_column"`
	EndColumn    string `yaml:"end_column" mapstructure:"end_column"`
	Watch        bool   `yaml:"watch" mapstructure:"watch"`
	PollSecs     int    `yaml:"poll_secs" mapstructure:"poll_secs"`
}

// MatchConfig tunes normalization and scoring.
type MatchConfig struct {
	Strategy           string   `yaml:"strategy" mapstructure:"strategy"`
	AcceptThreshold    int      `yaml:"accept_threshold" mapstructure:"accept_threshold"`
	SuggestThreshold   int      `yaml:"suggest_threshold" mapstructure:"suggest_threshold"`
	SuggestionLimit    int      `yaml:"suggestion_limit" mapstructure:"suggestion_limit"`
	Variants           []string `yaml:"variants" mapstructure:"variants"`
	AbbreviateSuffixes bool     `yaml:"abbreviate_suffixes" mapstructure:"abbreviate_suffixes"`
	StrictTokenOverlap bool     `yaml:"strict_token_overlap" mapstructure:"strict_token_overlap"`
	StrictThreshold    int      `yaml:"strict_threshold" mapstructure:"strict_threshold"`
}

// GeocodeConfig configures the geocoding providers.
type GeocodeConfig struct {
	Providers     []string `yaml:"providers" mapstructure:"providers"`
	NominatimURL  string   `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	UserAgent     string   `yaml:"user_agent" mapstructure:"user_agent"`
	GoogleKey     string   `yaml:"google_key" mapstructure:"google_key"`
	RateLimit     float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs   int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries    int      `yaml:"max_retries" mapstructure:"max_retries"`
	BackoffMs     int      `yaml:"backoff_ms" mapstructure:"backoff_ms"`
	MaxBackoffMs  int      `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	BreakerTrips  int      `yaml:"breaker_trips" mapstructure:"breaker_trips"`
	BreakerResetS int      `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	CountryCodes  string   `yaml:"country_codes" mapstructure:"country_codes"`
	CacheTTLHours int      `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// Timeout returns the per-request provider timeout.
func (g GeocodeConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// CacheTTL returns how long cached geocodes stay valid.
func (g GeocodeConfig) CacheTTL() time.Duration {
	return time.Duration(g.CacheTTLHours) * time.Hour
}

// StoreConfig selects the geocode cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// BatchConfig configures the batch command.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key needs one so AutomaticEnv can override it.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.api_tokens", []string{})
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("server.write_timeout_secs", 15)
	v.SetDefault("locality.city", "Wichita Falls")
	v.SetDefault("locality.state", "Texas")
	v.SetDefault("locality.city_aliases", []string{})
	v.SetDefault("registry.source", "rotary_streets.csv")
	v.SetDefault("registry.format", "")
	v.SetDefault("registry.street_column", "Street")
	v.SetDefault("registry.entity_column", "RotaryClub")
	v.SetDefault("registry.start_column", "start_address")
	v.SetDefault("registry.end_column", "end_address")
	v.SetDefault("registry.watch", false)
	v.SetDefault("registry.poll_secs", 300)
	v.SetDefault("match.strategy", "ratio")
	v.SetDefault("match.accept_threshold", 80)
	v.SetDefault("match.suggest_threshold", 60)
	v.SetDefault("match.suggestion_limit", match.MaxSuggestions)
	v.SetDefault("match.variants", registry.VariantNames())
	v.SetDefault("match.abbreviate_suffixes", true)
	v.SetDefault("match.strict_token_overlap", false)
	v.SetDefault("match.strict_threshold", 90)
	v.SetDefault("geocode.providers", []string{"nominatim"})
	v.SetDefault("geocode.nominatim_url", geocode.DefaultNominatimURL)
	v.SetDefault("geocode.user_agent", "RotaryClubLookup")
	v.SetDefault("geocode.google_key", "")
	v.SetDefault("geocode.rate_limit", 1.0)
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.max_retries", 3)
	v.SetDefault("geocode.backoff_ms", 500)
	v.SetDefault("geocode.max_backoff_ms", 5000)
	v.SetDefault("geocode.breaker_trips", 5)
	v.SetDefault("geocode.breaker_reset_secs", 30)
	v.SetDefault("geocode.country_codes", "us")
	v.SetDefault("geocode.cache_ttl_hours", 168)
	v.SetDefault("store.driver", store.DriverNone)
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validation modes, one per command family.
const (
	ModeServe    = "serve"
	ModeCheck    = "check"
	ModeBatch    = "batch"
	ModeRegistry = "registry"
	ModeCache    = "cache"
)

// Validate checks the settings mode needs and reports every problem at once.
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch mode {
	case ModeServe:
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			add("server.port must be > 0 and <= 65535, got %d", c.Server.Port)
		}
		c.validateMatch(add)
		c.validateGeocode(add)
	case ModeCheck:
		c.validateMatch(add)
		c.validateGeocode(add)
	case ModeBatch:
		c.validateMatch(add)
		c.validateGeocode(add)
		if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
			add("batch.concurrency must be between 1 and 64, got %d", c.Batch.Concurrency)
		}
	case ModeRegistry:
		c.validateMatch(add)
	case ModeCache:
		if c.Store.Driver == "" || c.Store.Driver == store.DriverNone {
			add("store.driver must name a cache backend")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if !slices.Contains(store.Drivers(), strings.ToLower(c.Store.Driver)) && c.Store.Driver != "" {
		add("store.driver must be one of %s, got %q", strings.Join(store.Drivers(), ", "), c.Store.Driver)
	}
	if strings.EqualFold(c.Store.Driver, store.DriverPostgres) && c.Store.DatabaseURL == "" {
		add("store.database_url is required for the postgres driver")
	}
	if c.Registry.Source == "" {
		add("registry.source is required")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateMatch(add func(string, ...any)) {
	m := c.Match
	if m.SuggestThreshold < 0 || m.AcceptThreshold > 100 || m.SuggestThreshold >= m.AcceptThreshold {
		add("match thresholds must satisfy 0 <= suggest_threshold < accept_threshold <= 100, got %d and %d",
			m.SuggestThreshold, m.AcceptThreshold)
	}
	if _, err := match.StrategyByName(m.Strategy); err != nil {
		add("match.strategy must be one of %s, got %q", strings.Join(match.StrategyNames(), ", "), m.Strategy)
	}
	if _, err := registry.VariantsByName(m.Variants); err != nil {
		add("match.variants must be drawn from %s", strings.Join(registry.VariantNames(), ", "))
	}
	if m.SuggestionLimit < 1 || m.SuggestionLimit > match.MaxSuggestions {
		add("match.suggestion_limit must be between 1 and %d, got %d", match.MaxSuggestions, m.SuggestionLimit)
	}
	if m.StrictTokenOverlap && (m.StrictThreshold < m.AcceptThreshold || m.StrictThreshold > 100) {
		add("match.strict_threshold must be between accept_threshold and 100, got %d", m.StrictThreshold)
	}
}

func (c *Config) validateGeocode(add func(string, ...any)) {
	g := c.Geocode
	if len(g.Providers) == 0 {
		add("geocode.providers must not be empty")
	}
	for _, p := range g.Providers {
		name := strings.ToLower(strings.TrimSpace(p))
		if !slices.Contains(geocode.ProviderNames(), name) {
			add("geocode.providers: unknown provider %q", p)
		}
		if name == "google" && g.GoogleKey == "" {
			add("geocode.google_key is required for the google provider")
		}
	}
	if g.RateLimit < 0 {
		add("geocode.rate_limit must be >= 0")
	}
	if g.TimeoutSecs <= 0 {
		add("geocode.timeout_secs must be > 0")
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
