package planner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"liveroute/internal/model"
	"liveroute/internal/opt"
)

// Engine is the optimization engine driven by the RouteOptimizer.
// *opt.Solver implements it.
type Engine interface {
	Solve(ctx context.Context, p opt.Problem) error
	IsSolving() bool
	TerminateEarly() bool
	AddFactChange(c opt.FactChange)
	AddFactChanges(batch []opt.FactChange)
	AddEventListener(l opt.EventListener)
}

// Publisher receives every snapshot the optimizer accepts.
type Publisher interface {
	PublishRoute(snapshot model.RouteSnapshot)
}

type Future interface {
	Wait() error
}

// Executor runs the background search task.
type Executor interface {
	Submit(task func() error) Future
}

// GoExecutor runs each task on its own goroutine. A panic in the task is
// reported by Wait as an error.
type GoExecutor struct{}

func (GoExecutor) Submit(task func() error) Future {
	g := new(errgroup.Group)
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("solver task panic: %v", r)
			}
		}()
		return task()
	})
	return g
}

// Fleet returns n vehicles with IDs 1..n.
func Fleet(n, capacity int) []opt.Vehicle {
	out := make([]opt.Vehicle, n)
	for i := range out {
		out[i] = opt.Vehicle{ID: int64(i + 1), Capacity: capacity}
	}
	return out
}
