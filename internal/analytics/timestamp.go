package analytics

import (
	"fmt"
	"strings"
	"time"
)

// TimestampPolicy decides what happens to a row whose timestamp does not parse.
type TimestampPolicy string

const (
	TimestampFail TimestampPolicy = "fail"
	TimestampSkip TimestampPolicy = "skip"
)

func ParseTimestampPolicy(s string) (TimestampPolicy, error) {
	switch p := TimestampPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case TimestampFail, TimestampSkip:
		return p, nil
	case "":
		return TimestampFail, nil
	default:
		return "", fmt.Errorf("unknown timestamp policy %q", s)
	}
}

// Layouts without a zone are read as UTC. Fractional seconds are accepted by every
// layout that has a seconds field.
var timestampLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp reads an ISO-8601 style value and returns it as a UTC instant.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimSuffix(value, " UTC")

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
}
