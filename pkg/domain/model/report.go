package model

import "time"

// SyncResult is the outcome of one connection in one run
type SyncResult string

const (
	SyncResultSynced         SyncResult = "synced"
	SyncResultAuthFailed     SyncResult = "auth_failed"
	SyncResultUpstreamFailed SyncResult = "upstream_failed"
	SyncResultStoreFailed    SyncResult = "store_failed"
)

// ConnectionReport summarizes one connection's pass
type ConnectionReport struct {
	UserID           string
	Result           SyncResult
	WindowStart      time.Time
	WindowEnd        time.Time
	PointsForwarded  int
	PointsDropped    int
	DeliveriesFailed int
	Error            error
}

// SyncReport summarizes a run over every stored connection
type SyncReport struct {
	RunID       string
	StartedAt   time.Time
	Connections []*ConnectionReport
}

// Count returns how many connections ended with result
func (r *SyncReport) Count(result SyncResult) int {
	n := 0
	for _, c := range r.Connections {
		if c.Result == result {
			n++
		}
	}
	return n
}
