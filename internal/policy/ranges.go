package policy

import (
	"github.com/sells-group/servicearea/internal/registry"
)

// ValidateRange picks the segment that services house. Without a house
// number, or when no segment carries a range, the first segment is used.
// Otherwise a segment whose range contains the number wins, and failing
// that the first unranged segment. It reports false when nothing qualifies.
func ValidateRange(segments []registry.Record, house *int) (registry.Record, bool) {
	if len(segments) == 0 {
		return registry.Record{}, false
	}
	if house == nil {
		return segments[0], true
	}

	catchAll := -1
	ranged := false
	for i, seg := range segments {
		if seg.Range == nil {
			if catchAll < 0 {
				catchAll = i
			}
			continue
		}
		ranged = true
		if seg.Range.Contains(*house) {
			return seg, true
		}
	}

	if !ranged {
		return segments[0], true
	}
	if catchAll >= 0 {
		return segments[catchAll], true
	}
	return registry.Record{}, false
}
