// Package policy decides whether an address is serviced: locality gate,
// score classification, suggestions and house-number ranges.
package policy

import (
	"github.com/sells-group/servicearea/internal/match"
)

// Outcome is the terminal state of a decision.
type Outcome string

// Outcomes.
const (
	Accepted                Outcome = "ACCEPTED"
	RejectedWithSuggestions Outcome = "REJECTED_WITH_SUGGESTIONS"
	Rejected                Outcome = "REJECTED"
)

// ReasonCode identifies why an address was rejected.
type ReasonCode string

// Reason codes.
const (
	ReasonOutsideServiceArea ReasonCode = "outside_service_area"
	ReasonNoStreetName       ReasonCode = "no_street_name"
	ReasonNotServiced        ReasonCode = "not_in_service_area"
	ReasonWeakTokenOverlap   ReasonCode = "weak_token_overlap"
	ReasonHouseOutOfRange    ReasonCode = "house_number_out_of_range"
	ReasonAddressNotFound    ReasonCode = "address_not_found"
	ReasonGeocoderError      ReasonCode = "geocoder_error"
)

var reasonText = map[ReasonCode]string{
	ReasonOutsideServiceArea: "Address is outside the service area",
	ReasonNoStreetName:       "Could not extract street name",
	ReasonHouseOutOfRange:    "House number is outside the serviced segment",
	ReasonAddressNotFound:    "Address not found",
	ReasonGeocoderError:      "Geocoding provider error",
}

// Input is one address to decide, already split into components.
type Input struct {
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	HouseNumber *int   `json:"house_number,omitempty"`
}

// Decision is the result of evaluating an Input. Score is the best match
// score, zero when matching did not run.
type Decision struct {
	Outcome       Outcome            `json:"outcome" yaml:"outcome"`
	ReasonCode    ReasonCode         `json:"reason_code,omitempty" yaml:"reason_code,omitempty"`
	Reason        string             `json:"reason,omitempty" yaml:"reason,omitempty"`
	ServiceEntity string             `json:"service_entity,omitempty" yaml:"service_entity,omitempty"`
	MatchedStreet string             `json:"matched_street,omitempty" yaml:"matched_street,omitempty"`
	Score         int                `json:"score" yaml:"score"`
	Suggestions   []match.Suggestion `json:"suggestions" yaml:"suggestions"`
}

// Serviced reports whether the decision accepted the address.
func (d Decision) Serviced() bool {
	return d.Outcome == Accepted
}

// Reject returns a REJECTED decision with the standard text for code.
func Reject(code ReasonCode) Decision {
	return Decision{
		Outcome:     Rejected,
		ReasonCode:  code,
		Reason:      reasonText[code],
		Suggestions: []match.Suggestion{},
	}
}
