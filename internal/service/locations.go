package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"liveroute/internal/demo"
	"liveroute/internal/distance"
	"liveroute/internal/model"
	"liveroute/internal/planner"
	"liveroute/internal/store"
)

// LocationService keeps the persisted locations, the travel time matrix and
// the route optimizer in step.
type LocationService struct {
	store     store.Store
	matrix    *distance.Matrix
	optimizer *planner.RouteOptimizer

	mu sync.Mutex
	// removed locations whose matrix rows a running search may still read
	staleRows map[int64]struct{}
}

func NewLocationService(s store.Store, m *distance.Matrix, ro *planner.RouteOptimizer) *LocationService {
	return &LocationService{store: s, matrix: m, optimizer: ro, staleRows: map[int64]struct{}{}}
}

// CreateLocation persists the location, then hands it to the optimizer. A
// location whose travel times cannot be computed is rolled back.
func (s *LocationService) CreateLocation(ctx context.Context, in model.LocationInput) (model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, err := s.store.CreateLocation(ctx, in)
	if err != nil {
		return model.Location{}, err
	}
	if err := s.matrix.Add(ctx, loc); err != nil {
		if derr := s.store.DeleteLocation(ctx, loc.ID); derr != nil {
			log.Printf("service: rollback location=%d err=%v", loc.ID, derr)
		}
		return model.Location{}, fmt.Errorf("add location %d: %w", loc.ID, err)
	}
	s.optimizer.AddLocation(loc, s.matrix)
	return loc, nil
}

// RemoveLocation validates the removal against the optimizer, deletes the
// location from the store and only then removes it from the optimizer, so a
// failed delete changes nothing. A solve failure reported by the stop still
// counts as removed.
func (s *LocationService) RemoveLocation(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, err := s.store.GetLocation(ctx, id)
	if err != nil {
		return err
	}
	if err := s.optimizer.CheckRemove(loc); err != nil {
		return err
	}
	if err := s.store.DeleteLocation(ctx, id); err != nil {
		return err
	}
	solveErr := s.optimizer.RemoveLocation(loc)
	if solveErr != nil && !errors.Is(solveErr, planner.ErrSolveFailure) {
		log.Printf("service: location=%d deleted but kept by optimizer err=%v", id, solveErr)
		return solveErr
	}
	s.dropRows(id)
	return solveErr
}

// dropRows forgets the matrix rows of removed locations once no search is
// running. Until then they are remembered and dropped on a later call.
func (s *LocationService) dropRows(ids ...int64) {
	for _, id := range ids {
		s.staleRows[id] = struct{}{}
	}
	if s.optimizer.IsSolving() {
		return
	}
	for id := range s.staleRows {
		s.matrix.Remove(id)
		delete(s.staleRows, id)
	}
}

// RemoveAll drops every location and publishes an empty route.
func (s *LocationService) RemoveAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var solveErr error
	if s.optimizer.IsSolving() {
		solveErr = s.optimizer.Clear()
	} else if locs := s.optimizer.Locations(); len(locs) > 0 {
		solveErr = s.optimizer.RemoveLocations(locs...)
	}
	s.matrix.Clear()
	clear(s.staleRows)
	if err := s.store.DeleteAll(ctx); err != nil {
		return errors.Join(solveErr, err)
	}
	return solveErr
}

func (s *LocationService) Locations(ctx context.Context) ([]model.Location, error) {
	return s.store.ListLocations(ctx)
}

// Reload replays persisted locations into the optimizer, depot first.
func (s *LocationService) Reload(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	locs, err := s.store.ListLocations(ctx)
	if err != nil {
		return 0, err
	}
	for _, loc := range locs {
		if err := s.matrix.Add(ctx, loc); err != nil {
			return 0, fmt.Errorf("reload location %d: %w", loc.ID, err)
		}
	}
	for _, loc := range locs {
		s.optimizer.AddLocation(loc, s.matrix)
	}
	log.Printf("service: reloaded locations=%d", len(locs))
	return len(locs), nil
}

// LoadDemo adds every location of the named demo data set.
func (s *LocationService) LoadDemo(ctx context.Context, name string) ([]model.Location, error) {
	ds, err := demo.Get(name)
	if err != nil {
		return nil, err
	}
	out := make([]model.Location, 0, len(ds.Locations))
	for _, in := range ds.Locations {
		loc, err := s.CreateLocation(ctx, in)
		if err != nil {
			return out, fmt.Errorf("demo %s: %w", name, err)
		}
		out = append(out, loc)
	}
	log.Printf("service: demo=%s locations=%d", name, len(out))
	return out, nil
}
