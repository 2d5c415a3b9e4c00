package store

import (
	"context"
	"fmt"
	"sync"

	"liveroute/internal/model"
)

// Memory is a simple in-memory store used when no database is configured.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	order  []int64
	byID   map[int64]model.Location
}

func NewMemory() *Memory {
	return &Memory{byID: map[int64]model.Location{}}
}

func (m *Memory) CreateLocation(ctx context.Context, in model.LocationInput) (model.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	loc := model.Location{ID: m.nextID, LatLng: in.LatLng(), Description: in.Description}
	m.byID[loc.ID] = loc
	m.order = append(m.order, loc.ID)
	return loc, nil
}

func (m *Memory) GetLocation(ctx context.Context, id int64) (model.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc, ok := m.byID[id]
	if !ok {
		return model.Location{}, fmt.Errorf("location %d: %w", id, ErrNotFound)
	}
	return loc, nil
}

func (m *Memory) ListLocations(ctx context.Context) ([]model.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Location, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out, nil
}

func (m *Memory) DeleteLocation(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return fmt.Errorf("location %d: %w", id, ErrNotFound)
	}
	delete(m.byID, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	m.byID = map[int64]model.Location{}
	m.order = nil
	m.mu.Unlock()
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
