package policy

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/servicearea/internal/match"
	"github.com/sells-group/servicearea/internal/registry"
)

// Thresholds classify match scores.
type Thresholds struct {
	Accept  int `mapstructure:"accept_threshold" yaml:"accept_threshold"`
	Suggest int `mapstructure:"suggest_threshold" yaml:"suggest_threshold"`
}

// DefaultThresholds returns accept 80, suggest 60.
func DefaultThresholds() Thresholds {
	return Thresholds{Accept: 80, Suggest: 60}
}

// Validate checks 0 <= suggest < accept <= 100.
func (t Thresholds) Validate() error {
	if t.Suggest < 0 || t.Accept > 100 || t.Suggest >= t.Accept {
		return eris.Errorf("policy: thresholds must satisfy 0 <= suggest (%d) < accept (%d) <= 100", t.Suggest, t.Accept)
	}
	return nil
}

// Policy evaluates inputs against a registry. It holds no mutable state and
// is safe for concurrent use.
type Policy struct {
	locality        Locality
	thresholds      Thresholds
	matcher         *match.Matcher
	suggestionLimit int
	strict          bool
	strictThreshold int
}

// Option configures a Policy.
type Option func(*Policy)

// WithThresholds sets the accept and suggest thresholds.
func WithThresholds(t Thresholds) Option {
	return func(p *Policy) {
		p.thresholds = t
	}
}

// WithMatcher sets the matcher used for scoring.
func WithMatcher(m *match.Matcher) Option {
	return func(p *Policy) {
		p.matcher = m
	}
}

// WithSuggestionLimit caps suggestion lists.
func WithSuggestionLimit(n int) Option {
	return func(p *Policy) {
		p.suggestionLimit = n
	}
}

// WithStrictTokenOverlap requires accepted matches scoring below threshold to
// share at least one token with the input.
func WithStrictTokenOverlap(threshold int) Option {
	return func(p *Policy) {
		p.strict = true
		p.strictThreshold = threshold
	}
}

// New creates a Policy for the locality.
func New(loc Locality, opts ...Option) (*Policy, error) {
	p := &Policy{
		locality:        loc,
		thresholds:      DefaultThresholds(),
		suggestionLimit: match.MaxSuggestions,
		strictThreshold: 90,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.matcher == nil {
		p.matcher = match.New(match.Ratio)
	}
	if err := p.thresholds.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Thresholds returns the policy's thresholds.
func (p *Policy) Thresholds() Thresholds {
	return p.thresholds
}

// Locality returns the configured service area.
func (p *Policy) Locality() Locality {
	return p.locality
}

// Evaluate decides in against reg. Every input yields a decision.
func (p *Policy) Evaluate(in Input, reg *registry.Registry) Decision {
	if !p.locality.Contains(in.City, in.State) {
		return Reject(ReasonOutsideServiceArea)
	}

	key := reg.Normalize(in.Street)
	if key == "" {
		return Reject(ReasonNoStreetName)
	}

	best, ok := p.matcher.BestMatch(key, reg)
	if !ok {
		return p.notServiced(in, 0, nil)
	}

	switch {
	case best.Score >= p.thresholds.Accept:
		if p.strict && best.Score < p.strictThreshold && !shareToken(key, best.Key) {
			zap.L().Debug("policy: accept-level match shares no token with input",
				zap.String("key", key),
				zap.String("matched_key", best.Key),
				zap.Int("score", best.Score),
			)
			d := p.notServiced(in, best.Score, p.matcher.Suggest(key, reg, p.thresholds.Suggest, p.suggestionLimit))
			d.ReasonCode = ReasonWeakTokenOverlap
			return d
		}
		return p.accept(in, best)

	case best.Score >= p.thresholds.Suggest:
		return p.notServiced(in, best.Score, p.matcher.Suggest(key, reg, p.thresholds.Suggest, p.suggestionLimit))

	default:
		return p.notServiced(in, best.Score, nil)
	}
}

func (p *Policy) accept(in Input, best match.Result) Decision {
	seg, ok := ValidateRange(best.Entry.Street.Segments(), in.HouseNumber)
	if !ok {
		d := Reject(ReasonHouseOutOfRange)
		d.MatchedStreet = best.Entry.Street.DisplayName()
		d.Score = best.Score
		return d
	}
	return Decision{
		Outcome:       Accepted,
		ServiceEntity: seg.ServiceEntity,
		MatchedStreet: best.Entry.Street.DisplayName(),
		Score:         best.Score,
		Suggestions:   []match.Suggestion{},
	}
}

// notServiced builds the rejection for a street that matched nothing
// confidently. A non-empty suggestion list makes it REJECTED_WITH_SUGGESTIONS.
func (p *Policy) notServiced(in Input, score int, suggestions []match.Suggestion) Decision {
	d := Decision{
		Outcome:     Rejected,
		ReasonCode:  ReasonNotServiced,
		Reason:      fmt.Sprintf("%s is not in our service area.", titleCase(in.Street)),
		Score:       score,
		Suggestions: []match.Suggestion{},
	}
	if len(suggestions) > 0 {
		d.Outcome = RejectedWithSuggestions
		d.Suggestions = suggestions
	}
	return d
}

func shareToken(a, b string) bool {
	tokens := strings.Fields(a)
	for _, t := range strings.Fields(b) {
		for _, u := range tokens {
			if t == u {
				return true
			}
		}
	}
	return false
}

// titleCase formats a street for messages. Casers are stateful, so one is
// built per call.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.Join(strings.Fields(s), " "))
}
