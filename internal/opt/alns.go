package opt

import (
	"errors"
	"fmt"
	"time"

	"liveroute/internal/model"
)

// Costs answers travel time between two known locations.
type Costs interface {
	TravelTime(from, to int64) time.Duration
}

type Vehicle struct {
	ID       int64
	Capacity int // visits per route; 0 means unlimited
}

// Problem is the input of a fresh search run.
type Problem struct {
	Depot    model.Location
	Visits   []model.Location
	Vehicles []Vehicle
	Costs    Costs
}

var (
	ErrNoVehicles     = errors.New("problem has no vehicles")
	ErrNoCosts        = errors.New("problem has no travel cost provider")
	ErrAlreadySolving = errors.New("solver is already running")
)

func (p Problem) validate() error {
	if len(p.Vehicles) == 0 {
		return ErrNoVehicles
	}
	if p.Costs == nil {
		return ErrNoCosts
	}
	return nil
}

// Plan is the ordered visit sequence of one vehicle, as indices into
// Solution.Visits.
type Plan struct {
	VehicleID int64
	Order     []int
}

// Solution is an immutable copy of the search state handed to listeners.
type Solution struct {
	Depot      *model.Location
	Vehicles   []Vehicle
	Visits     []model.Location
	Plans      []Plan // one per vehicle, same order as Vehicles
	TravelTime time.Duration
}

type FactChangeKind int

const (
	AddVisit FactChangeKind = iota + 1
	RemoveVisit
)

func (k FactChangeKind) String() string {
	switch k {
	case AddVisit:
		return "add"
	case RemoveVisit:
		return "remove"
	default:
		return fmt.Sprintf("FactChangeKind(%d)", int(k))
	}
}

// FactChange mutates the problem of a running search without restarting it.
type FactChange struct {
	Kind     FactChangeKind
	Location model.Location
}

// BestSolutionEvent reports a new best solution. EveryFactChangeProcessed is
// false when changes submitted before the event were still queued.
type BestSolutionEvent struct {
	Solution                 Solution
	EveryFactChangeProcessed bool
}

type EventListener interface {
	BestSolutionChanged(BestSolutionEvent)
}
