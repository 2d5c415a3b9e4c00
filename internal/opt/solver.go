package opt

import (
	"context"
	"sync"
)

type Config struct {
	Seed int64
	// IdleIterations parks the search after that many non-improving
	// iterations until a fact change or termination arrives. 0 never parks.
	IdleIterations int
	InitialTemp    float64
	Cooling        float64
}

func DefaultConfig() Config {
	return Config{IdleIterations: 2000, InitialTemp: 60, Cooling: 0.995}
}

// Solver runs one ALNS search at a time and reports improvements to its
// listeners on the solving goroutine.
type Solver struct {
	cfg Config

	mu        sync.Mutex
	solving   bool
	stop      chan struct{}
	stopped   bool
	pending   [][]FactChange
	listeners []EventListener
	wake      chan struct{}

	stats statsStore
}

func NewSolver(cfg Config) *Solver {
	return &Solver{cfg: cfg, wake: make(chan struct{}, 1)}
}

func (s *Solver) AddEventListener(l EventListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *Solver) IsSolving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.solving
}

// TerminateEarly asks the running search to return. It reports false when
// nothing was solving.
func (s *Solver) TerminateEarly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.solving {
		return false
	}
	if !s.stopped {
		s.stopped = true
		close(s.stop)
	}
	return true
}

func (s *Solver) AddFactChange(c FactChange) {
	s.AddFactChanges([]FactChange{c})
}

// AddFactChanges queues a batch that the search applies as one unit.
// Batches queued before Solve starts are applied at its start.
func (s *Solver) AddFactChanges(batch []FactChange) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	s.pending = append(s.pending, append([]FactChange(nil), batch...))
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stats returns the progress of the current or last run.
func (s *Solver) Stats() Stats { return s.stats.get() }

// Solve blocks until TerminateEarly is called or ctx is done.
func (s *Solver) Solve(ctx context.Context, p Problem) error {
	if err := p.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.solving {
		s.mu.Unlock()
		return ErrAlreadySolving
	}
	s.solving = true
	s.stopped = false
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.solving = false
		s.pending = nil
		s.mu.Unlock()
	}()

	if done(ctx, stop) {
		return nil
	}
	sr := newSearch(p, s.cfg)
	s.drain(sr)
	sr.settle()
	s.emit(sr)

	idle := 0
	for {
		if done(ctx, stop) {
			s.stats.record(sr.stats)
			return nil
		}
		if s.drain(sr) {
			sr.settle()
			s.emit(sr)
			idle = 0
			continue
		}
		if sr.iterate() {
			s.emit(sr)
			idle = 0
			continue
		}
		idle++
		if s.cfg.IdleIterations > 0 && idle >= s.cfg.IdleIterations {
			s.stats.record(sr.stats)
			select {
			case <-ctx.Done():
			case <-stop:
			case <-s.wake:
			}
			idle = 0
		}
	}
}

// drain applies every queued batch and reports whether any was applied.
func (s *Solver) drain(sr *search) bool {
	s.mu.Lock()
	batches := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, batch := range batches {
		for _, c := range batch {
			sr.apply(c)
		}
	}
	return len(batches) > 0
}

func (s *Solver) emit(sr *search) {
	sol := sr.solution()
	s.stats.record(sr.stats)
	s.mu.Lock()
	processed := len(s.pending) == 0
	listeners := append([]EventListener(nil), s.listeners...)
	s.mu.Unlock()
	evt := BestSolutionEvent{Solution: sol, EveryFactChangeProcessed: processed}
	for _, l := range listeners {
		l.BestSolutionChanged(evt)
	}
}

func done(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	default:
		return false
	}
}
