package planner

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"liveroute/internal/metrics"
	"liveroute/internal/model"
	"liveroute/internal/opt"
)

type run struct {
	id     string
	cancel context.CancelFunc
	future Future // set under opMu
}

// RouteOptimizer decides on every location change whether to start, patch
// or stop the background search, and gates the engine's best solutions into
// published snapshots.
type RouteOptimizer struct {
	engine    Engine
	publisher Publisher
	executor  Executor

	// opMu serialises location operations, including the blocking stop.
	opMu      sync.Mutex
	locations *LocationSet
	costs     opt.Costs

	// mu guards run state. It is never held while waiting for a run, so the
	// engine can deliver events during a stop.
	mu       sync.Mutex
	state    SolverRunState
	vehicles []opt.Vehicle
	run      *run
}

func NewRouteOptimizer(engine Engine, publisher Publisher, executor Executor, vehicles []opt.Vehicle) *RouteOptimizer {
	if executor == nil {
		executor = GoExecutor{}
	}
	ro := &RouteOptimizer{
		engine:    engine,
		publisher: publisher,
		executor:  executor,
		locations: NewLocationSet(),
		vehicles:  append([]opt.Vehicle(nil), vehicles...),
	}
	engine.AddEventListener(ro)
	return ro
}

func (ro *RouteOptimizer) State() SolverRunState {
	ro.mu.Lock()
	defer ro.mu.Unlock()
	return ro.state
}

// IsSolving reports whether a run is starting or running.
func (ro *RouteOptimizer) IsSolving() bool {
	st := ro.State()
	return st == Starting || st == Running
}

func (ro *RouteOptimizer) LocationCount() int {
	ro.opMu.Lock()
	defer ro.opMu.Unlock()
	return ro.locations.Size()
}

func (ro *RouteOptimizer) Locations() []model.Location {
	ro.opMu.Lock()
	defer ro.opMu.Unlock()
	return ro.locations.All()
}

// AddLocation registers loc. costs must already know loc; it is used when a
// fresh run has to be built.
func (ro *RouteOptimizer) AddLocation(loc model.Location, costs opt.Costs) {
	ro.opMu.Lock()
	defer ro.opMu.Unlock()
	if costs != nil {
		ro.costs = costs
	}
	ro.locations.Add(loc)
	switch {
	case ro.locations.Size() == 1:
		ro.publish(ro.directSnapshot(), "direct")
	case ro.IsSolving():
		ro.engine.AddFactChange(opt.FactChange{Kind: opt.AddVisit, Location: loc})
		metrics.FactChanges.WithLabelValues(opt.AddVisit.String()).Inc()
		log.Printf("planner: run=%s fact_change=add location=%d", ro.runID(), loc.ID)
	default:
		ro.start()
	}
}

// CheckRemove validates a removal batch against the active locations
// without changing anything.
func (ro *RouteOptimizer) CheckRemove(locs ...model.Location) error {
	ro.opMu.Lock()
	defer ro.opMu.Unlock()
	return ro.locations.CheckRemove(locs)
}

func (ro *RouteOptimizer) RemoveLocation(loc model.Location) error {
	return ro.RemoveLocations(loc)
}

// RemoveLocations removes a batch. While the search keeps running the batch
// reaches the engine as one atomic fact change submission.
func (ro *RouteOptimizer) RemoveLocations(locs ...model.Location) error {
	if len(locs) == 0 {
		return nil
	}
	ro.opMu.Lock()
	defer ro.opMu.Unlock()
	if err := ro.locations.RemoveAll(locs); err != nil {
		return err
	}
	switch {
	case ro.locations.Size() <= 1:
		err := ro.stop()
		ro.publish(ro.directSnapshot(), "direct")
		return err
	case ro.IsSolving():
		batch := make([]opt.FactChange, len(locs))
		for i, loc := range locs {
			batch[i] = opt.FactChange{Kind: opt.RemoveVisit, Location: loc}
		}
		ro.engine.AddFactChanges(batch)
		metrics.FactChanges.WithLabelValues(opt.RemoveVisit.String()).Add(float64(len(batch)))
		log.Printf("planner: run=%s fact_change=remove count=%d", ro.runID(), len(batch))
	default:
		ro.start()
	}
	return nil
}

// Clear drops every location. A running search is stopped and an empty
// snapshot published; otherwise nothing is published.
func (ro *RouteOptimizer) Clear() error {
	ro.opMu.Lock()
	defer ro.opMu.Unlock()
	running := ro.IsSolving()
	ro.locations.Clear()
	if !running {
		return nil
	}
	err := ro.stop()
	ro.publish(emptySnapshot(), "direct")
	return err
}

// BestSolutionChanged is the gate between the engine and the publisher.
func (ro *RouteOptimizer) BestSolutionChanged(evt opt.BestSolutionEvent) {
	if !evt.EveryFactChangeProcessed {
		metrics.StaleSolutions.Inc()
		log.Printf("planner: run=%s discard=stale reason=pending_fact_changes", ro.runID())
		return
	}
	ro.mu.Lock()
	if ro.state == Stopping {
		id := ro.runIDLocked()
		ro.mu.Unlock()
		metrics.StaleSolutions.Inc()
		log.Printf("planner: run=%s discard=stale reason=stopping", id)
		return
	}
	if len(evt.Solution.Vehicles) > 0 {
		ro.vehicles = append([]opt.Vehicle(nil), evt.Solution.Vehicles...)
	}
	ro.mu.Unlock()
	ro.publish(Translate(evt.Solution), "solver")
}

// start must be called with opMu held and no active run.
func (ro *RouteOptimizer) start() {
	all := ro.locations.All()
	ro.mu.Lock()
	problem := opt.Problem{
		Depot:    all[0],
		Visits:   all[1:],
		Vehicles: append([]opt.Vehicle(nil), ro.vehicles...),
		Costs:    ro.costs,
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &run{id: uuid.NewString(), cancel: cancel}
	ro.run = r
	ro.state = Starting
	ro.mu.Unlock()

	metrics.SolverRuns.WithLabelValues("started").Inc()
	log.Printf("planner: run=%s state=starting locations=%d vehicles=%d", r.id, len(all), len(problem.Vehicles))
	r.future = ro.executor.Submit(func() error {
		ro.mu.Lock()
		if ro.state == Starting && ro.run == r {
			ro.state = Running
		}
		ro.mu.Unlock()
		return ro.engine.Solve(ctx, problem)
	})
}

// stop terminates the active run, if any, and blocks until it has finished.
func (ro *RouteOptimizer) stop() error {
	ro.mu.Lock()
	r := ro.run
	if r == nil || (ro.state != Starting && ro.state != Running) {
		ro.mu.Unlock()
		return nil
	}
	ro.state = Stopping
	ro.mu.Unlock()

	ro.engine.TerminateEarly()
	r.cancel()
	var err error
	if r.future != nil {
		err = r.future.Wait()
	}

	ro.mu.Lock()
	ro.state = Idle
	ro.run = nil
	ro.mu.Unlock()

	if err != nil {
		metrics.SolverRuns.WithLabelValues("failed").Inc()
		log.Printf("planner: run=%s state=idle err=%v", r.id, err)
		return &SolveFailure{RunID: r.id, Err: err}
	}
	metrics.SolverRuns.WithLabelValues("stopped").Inc()
	log.Printf("planner: run=%s state=idle", r.id)
	return nil
}

func (ro *RouteOptimizer) runID() string {
	ro.mu.Lock()
	defer ro.mu.Unlock()
	return ro.runIDLocked()
}

func (ro *RouteOptimizer) runIDLocked() string {
	if ro.run == nil {
		return ""
	}
	return ro.run.id
}

// directSnapshot renders the location set without the engine: the depot
// with one idle route per vehicle, or nothing at all.
func (ro *RouteOptimizer) directSnapshot() model.RouteSnapshot {
	depot, ok := ro.locations.Depot()
	if !ok {
		return emptySnapshot()
	}
	ro.mu.Lock()
	n := len(ro.vehicles)
	ro.mu.Unlock()
	routes := make([]model.Route, n)
	for i := range routes {
		routes[i] = model.Route{Depot: depot, Visits: []model.Location{}}
	}
	return model.RouteSnapshot{Depot: &depot, Routes: routes, Distance: FormatDuration(0)}
}

func (ro *RouteOptimizer) publish(s model.RouteSnapshot, source string) {
	metrics.Snapshots.WithLabelValues(source).Inc()
	if ro.publisher != nil {
		ro.publisher.PublishRoute(s)
	}
}

func emptySnapshot() model.RouteSnapshot {
	return model.RouteSnapshot{Routes: []model.Route{}, Distance: FormatDuration(0)}
}
