package types

import "fmt"

// Granularity is the bucket width of resampled output
type Granularity string

const (
	GranularityMinute Granularity = "1min"
	GranularityHour   Granularity = "1h"
	GranularityDay    Granularity = "1d"
)

// IsValid checks if the granularity is supported
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityMinute, GranularityHour, GranularityDay:
		return true
	default:
		return false
	}
}

// Intraday reports whether the granularity needs per-day intraday detail
func (g Granularity) Intraday() bool {
	return g == GranularityMinute || g == GranularityHour
}

// String returns the string representation of the granularity
func (g Granularity) String() string {
	return string(g)
}

// ParseGranularity parses a string into a Granularity
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(s)
	if !g.IsValid() {
		return "", fmt.Errorf("invalid granularity: %s", s)
	}
	return g, nil
}
