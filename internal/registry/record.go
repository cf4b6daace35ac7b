package registry

import "slices"

// HouseRange is an inclusive house-number range. Start <= End always holds.
type HouseRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// NewHouseRange returns the range spanning a and b in either order.
func NewHouseRange(a, b int) HouseRange {
	if a > b {
		a, b = b, a
	}
	return HouseRange{Start: a, End: b}
}

// Contains reports whether n lies within the range.
func (r HouseRange) Contains(n int) bool {
	return n >= r.Start && n <= r.End
}

// Row is one feed row before indexing.
type Row struct {
	Street        string
	ServiceEntity string
	Range         *HouseRange
	Line          int
}

// Record is one serviced segment of a street.
type Record struct {
	DisplayName   string
	ServiceEntity string
	Range         *HouseRange
	Line          int
}

// Street groups the records of every feed row sharing one spaced key.
type Street struct {
	key         string
	displayName string
	segments    []Record
}

// Key returns the spaced normalized key of the street.
func (s *Street) Key() string { return s.key }

// DisplayName returns the street name as first written in the feed.
func (s *Street) DisplayName() string { return s.displayName }

// Segments returns a copy of the street's records in feed order.
func (s *Street) Segments() []Record { return slices.Clone(s.segments) }

// Ranged reports whether any segment carries a house-number range.
func (s *Street) Ranged() bool {
	for _, seg := range s.segments {
		if seg.Range != nil {
			return true
		}
	}
	return false
}

// Entry is one indexed key.
type Entry struct {
	Key     string
	Variant string
	Street  *Street
}
