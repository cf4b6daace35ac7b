package address

import (
	"strconv"
	"strings"
)

// ParseHouseNumber extracts the leading digit run of a geocoder house number.
// "12A" yields 12 and "100-104" yields 100. It reports false when s does not
// start with a digit.
func ParseHouseNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseBound parses a feed range bound. Non-numeric values are absent.
func ParseBound(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	}
	return n, true
}
