// Package address canonicalizes street names into comparable keys.
package address

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// streetSuffixes maps whole-word street types to their abbreviation.
// No abbreviation may appear as a key, otherwise a second pass would
// rewrite it again.
var streetSuffixes = map[string]string{
	"street":     "st",
	"avenue":     "ave",
	"drive":      "dr",
	"lane":       "ln",
	"court":      "ct",
	"road":       "rd",
	"boulevard":  "blvd",
	"place":      "pl",
	"parkway":    "pkwy",
	"circle":     "cir",
	"highway":    "hwy",
	"terrace":    "ter",
	"trail":      "trl",
	"square":     "sq",
	"expressway": "expy",
	"freeway":    "fwy",
	"heights":    "hts",
}

// suffixTokens is the set of tokens Base treats as a street type, both the
// long and the abbreviated forms.
var suffixTokens = func() map[string]bool {
	m := make(map[string]bool, len(streetSuffixes)*2)
	for long, short := range streetSuffixes {
		m[long] = true
		m[short] = true
	}
	return m
}()

// Normalizer turns raw street text into a normalized key.
// The zero value is not usable; use NewNormalizer.
type Normalizer struct {
	abbreviate bool
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithSuffixAbbreviation enables or disables street-type abbreviation.
func WithSuffixAbbreviation(enabled bool) Option {
	return func(n *Normalizer) {
		n.abbreviate = enabled
	}
}

// NewNormalizer creates a Normalizer. Suffix abbreviation is on by default.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{abbreviate: true}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = NewNormalizer()

// Normalize canonicalizes raw with the default Normalizer.
func Normalize(raw string) string {
	return defaultNormalizer.Normalize(raw)
}

// Normalize returns the spaced key for raw: lowercased, accent-folded,
// letters/digits/spaces only, single-spaced, with street types abbreviated.
// Empty or punctuation-only input yields "".
func (n *Normalizer) Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	s := foldAccents(strings.ToLower(raw))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	if n.abbreviate {
		for i, tok := range tokens {
			if short, ok := streetSuffixes[tok]; ok {
				tokens[i] = short
			}
		}
	}
	return strings.Join(tokens, " ")
}

// Compact removes every whitespace rune from key.
func Compact(key string) string {
	if key == "" {
		return ""
	}
	return strings.Join(strings.Fields(key), "")
}

// Base strips a trailing street-type token from key. It returns "" when the
// key has no such token or when nothing would remain.
func Base(key string) string {
	tokens := strings.Fields(key)
	if len(tokens) < 2 {
		return ""
	}
	if !suffixTokens[tokens[len(tokens)-1]] {
		return ""
	}
	return strings.Join(tokens[:len(tokens)-1], " ")
}

// IsSuffix reports whether tok is a recognized street type.
func IsSuffix(tok string) bool {
	return suffixTokens[tok]
}

// foldAccents removes combining marks so "é" compares equal to "e".
// A fresh transformer is built per call; transform chains are stateful.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
