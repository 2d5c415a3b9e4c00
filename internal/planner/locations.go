package planner

import (
	"fmt"

	"liveroute/internal/model"
)

// LocationSet is the ordered record of active locations. The first location
// added to an empty set is the depot.
type LocationSet struct {
	items []model.Location
}

func NewLocationSet() *LocationSet { return &LocationSet{} }

func (s *LocationSet) Add(loc model.Location) {
	s.items = append(s.items, loc)
}

// Remove fails with ErrInvalidOperation when loc is unknown or is the depot
// while other locations remain. The set is untouched on failure.
func (s *LocationSet) Remove(loc model.Location) error {
	return s.RemoveAll([]model.Location{loc})
}

// RemoveAll removes a batch atomically. The depot may only be part of a
// batch that empties the set.
func (s *LocationSet) RemoveAll(locs []model.Location) error {
	drop, err := s.checkRemove(locs)
	if err != nil {
		return err
	}
	kept := s.items[:0]
	for _, it := range s.items {
		if !drop[it.ID] {
			kept = append(kept, it)
		}
	}
	s.items = kept
	return nil
}

// CheckRemove reports the error RemoveAll would return, without removing.
func (s *LocationSet) CheckRemove(locs []model.Location) error {
	_, err := s.checkRemove(locs)
	return err
}

func (s *LocationSet) checkRemove(locs []model.Location) (map[int64]bool, error) {
	drop := make(map[int64]bool, len(locs))
	for _, loc := range locs {
		if drop[loc.ID] {
			return nil, fmt.Errorf("%w: location %d listed twice", ErrInvalidOperation, loc.ID)
		}
		if s.indexOf(loc.ID) < 0 {
			return nil, fmt.Errorf("%w: location %d is not active", ErrInvalidOperation, loc.ID)
		}
		drop[loc.ID] = true
	}
	if len(s.items) > 0 && drop[s.items[0].ID] && len(drop) < len(s.items) {
		return nil, fmt.Errorf("%w: cannot remove depot %d while %d other locations exist",
			ErrInvalidOperation, s.items[0].ID, len(s.items)-1)
	}
	return drop, nil
}

func (s *LocationSet) Clear() { s.items = nil }

func (s *LocationSet) Size() int { return len(s.items) }

func (s *LocationSet) IsEmpty() bool { return len(s.items) == 0 }

func (s *LocationSet) Depot() (model.Location, bool) {
	if len(s.items) == 0 {
		return model.Location{}, false
	}
	return s.items[0], true
}

// All returns a copy in insertion order, depot first.
func (s *LocationSet) All() []model.Location {
	return append([]model.Location(nil), s.items...)
}

func (s *LocationSet) indexOf(id int64) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
