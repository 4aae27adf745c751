package forgehttp

import "sync/atomic"

// Stats counts request attempts across a client's lifetime. Totals are
// per attempt: a call that needed one retry contributes two to total
// and one to retried.
type Stats struct {
	total      atomic.Int64
	successful atomic.Int64
	retried    atomic.Int64
	failed     atomic.Int64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	TotalCalls      int64 `json:"total_calls"`
	SuccessfulCalls int64 `json:"successful_calls"`
	RetriedCalls    int64 `json:"retried_calls"`
	FailedCalls     int64 `json:"failed_calls"`
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TotalCalls:      s.total.Load(),
		SuccessfulCalls: s.successful.Load(),
		RetriedCalls:    s.retried.Load(),
		FailedCalls:     s.failed.Load(),
	}
}
