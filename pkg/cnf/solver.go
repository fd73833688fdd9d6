package cnf

import (
	"context"
	"fmt"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"

	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
	"github.com/m8pple/fpga-perfect-hash/pkg/metrics"
)

// Solver finds a model of a problem. It returns failure.Unsatisfiable when
// there is none, and failure.ResourceExhausted when it gave up.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (Assignment, error)
}

type giniSolver struct {
	timeout time.Duration
	poll    time.Duration
	tracer  Tracer
}

const (
	satisfiable   = 1
	unsatisfiable = -1
)

// Solve hands the clauses to a fresh gini instance and waits for it,
// stopping it when ctx is done or the timeout passes.
func (s *giniSolver) Solve(ctx context.Context, p *Problem) (a Assignment, err error) {
	start := time.Now()
	stats := Stats{Vars: p.NumVars(), Clauses: len(p.clauses)}
	defer func() {
		stats.Duration = time.Since(start)
		switch {
		case err == nil:
			stats.Outcome = metrics.Solved
		case failure.IsUnsatisfiable(err):
			stats.Outcome = metrics.Unsatisfied
		default:
			stats.Outcome = metrics.Failed
		}
		metrics.EmitSATCall(stats.Outcome)
		s.tracer.Trace(stats)
	}()
	// Only panics raised while loading clauses land here. gini searches on
	// its own goroutine, and a panic there still ends the process.
	defer func() {
		if r := recover(); r != nil {
			a = nil
			err = failure.ResourceExhausted(fmt.Errorf("%v", r), "sat engine failed")
		}
	}()

	if p.conflict != "" {
		return nil, failure.Unsatisfiable(p.conflict)
	}

	g := gini.NewVc(p.NumVars(), len(p.clauses))
	for _, cl := range p.clauses {
		for _, m := range cl {
			g.Add(m)
		}
		g.Add(z.LitNull)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	solve := g.GoSolve()
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			solve.Stop()
			return nil, failure.ResourceExhausted(ctx.Err(), "sat solve stopped")
		case <-ticker.C:
		}
		res, done := solve.Test()
		if !done {
			continue
		}
		switch res {
		case satisfiable:
			return s.model(g, p), nil
		case unsatisfiable:
			return nil, failure.Unsatisfiable("no binding of the open entries separates the keys")
		default:
			return nil, failure.ResourceExhausted(nil, "sat solve ended without an answer")
		}
	}
}

// model reads the value of every variable that occurs in a clause.
func (s *giniSolver) model(g *gini.Gini, p *Problem) Assignment {
	a := make(Assignment, p.NumVars()+1)
	for _, cl := range p.clauses {
		for _, m := range cl {
			v := m.Var()
			if a[v] != Unconstrained {
				continue
			}
			if g.Value(v.Pos()) {
				a[v] = True
			} else {
				a[v] = False
			}
		}
	}
	return a
}

// NewGiniSolver returns the default Solver.
func NewGiniSolver(options ...Option) (Solver, error) {
	s := giniSolver{}
	for _, option := range append(options, defaults...) {
		if err := option(&s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

type Option func(s *giniSolver) error

// WithTimeout bounds the wall time of each Solve call.
func WithTimeout(d time.Duration) Option {
	return func(s *giniSolver) error {
		if d < 0 {
			return failure.Constraintf("negative timeout %s", d)
		}
		s.timeout = d
		return nil
	}
}

// WithPollInterval sets how often a running solve checks for completion and
// cancellation.
func WithPollInterval(d time.Duration) Option {
	return func(s *giniSolver) error {
		if d <= 0 {
			return failure.Constraintf("poll interval must be positive, got %s", d)
		}
		s.poll = d
		return nil
	}
}

func WithTracer(t Tracer) Option {
	return func(s *giniSolver) error {
		s.tracer = t
		return nil
	}
}

var defaults = []Option{
	func(s *giniSolver) error {
		if s.poll == 0 {
			s.poll = time.Millisecond
		}
		return nil
	},
	func(s *giniSolver) error {
		if s.tracer == nil {
			s.tracer = DefaultTracer{}
		}
		return nil
	},
}
