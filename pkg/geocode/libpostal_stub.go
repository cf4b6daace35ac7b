//go:build !libpostal

package geocode

import "github.com/rotisserie/eris"

// ErrLibpostalUnavailable is returned when the binary was built without the
// libpostal tag.
var ErrLibpostalUnavailable = eris.New("geocode: built without libpostal (rebuild with -tags libpostal)")

// NewLibpostal reports ErrLibpostalUnavailable in builds without libpostal.
func NewLibpostal() (Provider, error) {
	return nil, ErrLibpostalUnavailable
}
