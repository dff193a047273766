package model

import (
	"time"

	"github.com/secmon-lab/wearsync/pkg/domain/types"
)

// Point is a single normalized measurement ready for delivery
type Point struct {
	Timestamp time.Time
	Metric    types.Metric
	Value     float64
}

// Data returns the payload carried downstream. Sample time travels here;
// the event envelope gets its own timestamp at forwarding time.
func (p Point) Data() map[string]any {
	data := map[string]any{
		p.Metric.ValueKey(): p.Value,
	}
	if p.Metric.DailyOnly() {
		data["date"] = p.Timestamp.Format(time.DateOnly)
	} else {
		data["time"] = p.Timestamp.Format(time.RFC3339)
	}
	return data
}
