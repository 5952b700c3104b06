// Package temporal resolves temporal predicates (AS OF, BETWEEN,
// FROM..TO, VERSIONS) against branch and document commit history, plus
// bi-temporal (_valid_from/_valid_to) filtering.
package temporal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InvalidTimestamp is raised when a timestamp string matches none of the
// accepted formats.
type InvalidTimestamp struct {
	Input string
}

func (e *InvalidTimestamp) Error() string {
	return fmt.Sprintf("invalid timestamp %q", e.Input)
}

// unixMsThreshold disambiguates unix seconds from unix milliseconds: a
// value at or below this magnitude is treated as seconds (seconds since
// epoch don't reach 10^10 until the year 2286), above it as milliseconds.
const unixMsThreshold = 10_000_000_000

// ParseTimestamp accepts ISO-8601 (with or without a zone offset),
// date-only (YYYY-MM-DD, midnight UTC), and unix epoch seconds or
// milliseconds (disambiguated by magnitude).
func ParseTimestamp(input string) (time.Time, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, &InvalidTimestamp{Input: input}
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return time.Time{}, &InvalidTimestamp{Input: input}
		}
		if n > unixMsThreshold {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, &InvalidTimestamp{Input: input}
}
