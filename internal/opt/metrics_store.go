package opt

import (
	"sync"
	"time"
)

// Stats summarises the search progress of the current or last run.
type Stats struct {
	Iterations     int           `json:"iterations"`
	Improvements   int           `json:"improvements"`
	AcceptedWorse  int           `json:"acceptedWorse"`
	BestTravelTime time.Duration `json:"bestTravelTime"`
}

type statsStore struct {
	mu   sync.Mutex
	last Stats
}

func (s *statsStore) record(st Stats) {
	s.mu.Lock()
	s.last = st
	s.mu.Unlock()
}

func (s *statsStore) get() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
