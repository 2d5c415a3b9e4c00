package distance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"liveroute/internal/model"
)

type leg struct{ from, to int64 }

// Matrix holds travel times between every pair of registered locations and
// serves them to the solver by location ID. Unknown pairs cost nothing.
type Matrix struct {
	provider Provider

	mu    sync.RWMutex
	locs  map[int64]model.LatLng
	times map[leg]time.Duration
}

func NewMatrix(p Provider) *Matrix {
	return &Matrix{provider: p, locs: map[int64]model.LatLng{}, times: map[leg]time.Duration{}}
}

// Add registers loc and computes its legs to and from every known location.
// Provider calls run without the lock held.
func (m *Matrix) Add(ctx context.Context, loc model.Location) error {
	m.mu.RLock()
	if _, ok := m.locs[loc.ID]; ok {
		m.mu.RUnlock()
		return nil
	}
	others := make(map[int64]model.LatLng, len(m.locs))
	for id, ll := range m.locs {
		others[id] = ll
	}
	m.mu.RUnlock()

	computed := make(map[leg]time.Duration, 2*len(others))
	for id, ll := range others {
		there, err := m.provider.TravelTime(ctx, loc.LatLng, ll)
		if err != nil {
			return fmt.Errorf("travel time %d->%d: %w", loc.ID, id, err)
		}
		back, err := m.provider.TravelTime(ctx, ll, loc.LatLng)
		if err != nil {
			return fmt.Errorf("travel time %d->%d: %w", id, loc.ID, err)
		}
		computed[leg{loc.ID, id}] = there
		computed[leg{id, loc.ID}] = back
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.locs[loc.ID] = loc.LatLng
	for k, v := range computed {
		m.times[k] = v
	}
	return nil
}

func (m *Matrix) Remove(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locs, id)
	for k := range m.times {
		if k.from == id || k.to == id {
			delete(m.times, k)
		}
	}
}

func (m *Matrix) Clear() {
	m.mu.Lock()
	m.locs = map[int64]model.LatLng{}
	m.times = map[leg]time.Duration{}
	m.mu.Unlock()
}

func (m *Matrix) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.locs)
}

func (m *Matrix) TravelTime(from, to int64) time.Duration {
	if from == to {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.times[leg{from, to}]
}
