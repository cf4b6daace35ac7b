package policy

import (
	"strings"
)

// abbrToState maps lowercase state abbreviations to lowercase full names.
var abbrToState = map[string]string{
	"al": "alabama", "ak": "alaska", "az": "arizona", "ar": "arkansas",
	"ca": "california", "co": "colorado", "ct": "connecticut", "de": "delaware",
	"fl": "florida", "ga": "georgia", "hi": "hawaii", "id": "idaho",
	"il": "illinois", "in": "indiana", "ia": "iowa", "ks": "kansas",
	"ky": "kentucky", "la": "louisiana", "me": "maine", "md": "maryland",
	"ma": "massachusetts", "mi": "michigan", "mn": "minnesota", "ms": "mississippi",
	"mo": "missouri", "mt": "montana", "ne": "nebraska", "nv": "nevada",
	"nh": "new hampshire", "nj": "new jersey", "nm": "new mexico", "ny": "new york",
	"nc": "north carolina", "nd": "north dakota", "oh": "ohio", "ok": "oklahoma",
	"or": "oregon", "pa": "pennsylvania", "ri": "rhode island", "sc": "south carolina",
	"sd": "south dakota", "tn": "tennessee", "tx": "texas", "ut": "utah",
	"vt": "vermont", "va": "virginia", "wa": "washington", "wv": "west virginia",
	"wi": "wisconsin", "wy": "wyoming", "dc": "district of columbia",
	"pr": "puerto rico",
}

// canonicalState folds case, spacing and abbreviations: "TX", " texas " and
// "Texas" all become "texas".
func canonicalState(state string) string {
	s := fold(state)
	if full, ok := abbrToState[s]; ok {
		return full
	}
	return s
}

func fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Locality is the configured service area. An empty City or State matches
// any input value for that field.
type Locality struct {
	City        string   `mapstructure:"city" yaml:"city"`
	State       string   `mapstructure:"state" yaml:"state"`
	CityAliases []string `mapstructure:"city_aliases" yaml:"city_aliases"`
}

// Contains reports whether city and state fall within the locality,
// comparing case-insensitively.
func (l Locality) Contains(city, state string) bool {
	if l.State != "" && canonicalState(state) != canonicalState(l.State) {
		return false
	}
	if l.City == "" {
		return true
	}
	c := fold(city)
	if c == fold(l.City) {
		return true
	}
	for _, alias := range l.CityAliases {
		if c == fold(alias) {
			return true
		}
	}
	return false
}
