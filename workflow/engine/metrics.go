package engine

import (
	"sort"
	"sync"
	"time"
)

// ConnectorStats is a snapshot of per-connector execution counters.
type ConnectorStats struct {
	ConnectorID   string        `json:"connector_id"`
	Executions    int64         `json:"executions"`
	Failures      int64         `json:"failures"`
	TotalDuration time.Duration `json:"total_duration"`
}

// AverageDuration returns the mean execution duration, or zero when the
// connector has never run.
func (s ConnectorStats) AverageDuration() time.Duration {
	if s.Executions == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Executions)
}

type connectorStats struct {
	mu   sync.Mutex
	byID map[string]*ConnectorStats
}

func newConnectorStats() *connectorStats {
	return &connectorStats{byID: make(map[string]*ConnectorStats)}
}

func (s *connectorStats) record(connectorID string, succeeded bool, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := s.byID[connectorID]
	if stats == nil {
		stats = &ConnectorStats{ConnectorID: connectorID}
		s.byID[connectorID] = stats
	}
	stats.Executions++
	if !succeeded {
		stats.Failures++
	}
	stats.TotalDuration += d
}

// Snapshot returns the counters ordered by connector id.
func (s *connectorStats) Snapshot() []ConnectorStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ConnectorStats, 0, len(s.byID))
	for _, stats := range s.byID {
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectorID < out[j].ConnectorID })
	return out
}
