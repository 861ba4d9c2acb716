package state_managers

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

// Counter keys.
const (
	StatCycles          = "cycles"
	StatPublished       = "published"
	StatFixFailures     = "fix_failures"
	StatPublishFailures = "publish_failures"
	StatLastSignal      = "last_signal"
)

// Label keys.
const (
	LabelState = "state"
	LabelAPN   = "apn"
)

// CycleStats is written by the tracking loop and read by the heartbeat.
type CycleStats struct {
	counters cmap.ConcurrentMap[string, int64]
	labels   cmap.ConcurrentMap[string, string]
}

// NewCycleStats creates an empty CycleStats.
func NewCycleStats() *CycleStats {
	return &CycleStats{
		counters: cmap.New[int64](),
		labels:   cmap.New[string](),
	}
}

// Incr adds one to the counter key.
func (s *CycleStats) Incr(key string) {
	s.counters.Upsert(key, 1, func(exists bool, current, delta int64) int64 {
		if exists {
			return current + delta
		}
		return delta
	})
}

// Set stores value under key.
func (s *CycleStats) Set(key string, value int64) {
	s.counters.Set(key, value)
}

// Get returns the counter key, zero when never written.
func (s *CycleStats) Get(key string) int64 {
	v, _ := s.counters.Get(key)
	return v
}

// SetLabel stores a text value under key.
func (s *CycleStats) SetLabel(key, value string) {
	s.labels.Set(key, value)
}

// Label returns the text value of key, empty when never written.
func (s *CycleStats) Label(key string) string {
	v, _ := s.labels.Get(key)
	return v
}

// Snapshot copies all counters.
func (s *CycleStats) Snapshot() map[string]int64 {
	return s.counters.Items()
}
