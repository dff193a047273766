package types

import "fmt"

// Metric identifies an upstream time series
type Metric string

const (
	MetricSteps     Metric = "steps"
	MetricHeartRate Metric = "heartrate"
	MetricSleep     Metric = "sleep"
)

// AllMetrics returns all supported metrics in sync order
func AllMetrics() []Metric {
	return []Metric{
		MetricSteps,
		MetricHeartRate,
		MetricSleep,
	}
}

// IsValid checks if the metric is supported
func (m Metric) IsValid() bool {
	switch m {
	case MetricSteps, MetricHeartRate, MetricSleep:
		return true
	default:
		return false
	}
}

// String returns the string representation of the metric
func (m Metric) String() string {
	return string(m)
}

// ValueKey is the payload key that carries the measured value downstream
func (m Metric) ValueKey() string {
	if m == MetricSleep {
		return "duration_minutes"
	}
	return string(m)
}

// DailyOnly reports whether the upstream only serves this metric per day
func (m Metric) DailyOnly() bool {
	return m == MetricSleep
}

// ParseMetric parses a string into a Metric
func ParseMetric(s string) (Metric, error) {
	m := Metric(s)
	if !m.IsValid() {
		return "", fmt.Errorf("invalid metric: %s", s)
	}
	return m, nil
}
