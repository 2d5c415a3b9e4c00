package planner

import (
	"errors"
	"fmt"
)

// SolverRunState is the lifecycle of the background search run.
//
//	Idle → Starting → Running → Stopping → Idle
type SolverRunState int

const (
	Idle SolverRunState = iota
	Starting
	Running
	Stopping
)

func (s SolverRunState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

var (
	// ErrInvalidOperation rejects a location change that breaks the depot rules.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrSolveFailure matches every *SolveFailure.
	ErrSolveFailure = errors.New("solve failure")
)

// SolveFailure is returned by the operation that stopped a run which had
// ended abnormally. The optimizer is already Idle when it is returned.
type SolveFailure struct {
	RunID string
	Err   error
}

func (e *SolveFailure) Error() string {
	return fmt.Sprintf("solver run %s failed: %v", e.RunID, e.Err)
}

func (e *SolveFailure) Unwrap() []error { return []error{ErrSolveFailure, e.Err} }
