// Package search holds the local search strategies over an incremental
// evaluator: greedy k-bit descent, simulated annealing, randomized greedy
// hill climbing, path relinking and GRASP.
package search

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/m8pple/fpga-perfect-hash/pkg/bithash"
	"github.com/m8pple/fpga-perfect-hash/pkg/evaluator"
	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/limits"
	"github.com/m8pple/fpga-perfect-hash/pkg/metrics"
	"github.com/m8pple/fpga-perfect-hash/pkg/taps"
)

// Params tunes the strategies. Zero budgets mean unbounded.
type Params struct {
	GroupSize  int
	MaxTries   int
	MaxTime    time.Duration
	CheckEvery int

	StartTemperature float64
	TriesPerLevel    int
	Cooling          float64
	MinTemperature   float64

	EliteSize int
	MaxStall  int
	MaxK      int
}

// DefaultParams returns the tuning used by the command line tools.
func DefaultParams() Params {
	return Params{
		GroupSize:        1,
		MaxTries:         100000,
		MaxTime:          300 * time.Second,
		CheckEvery:       100,
		StartTemperature: 8,
		TriesPerLevel:    10000,
		Cooling:          0.9,
		MinTemperature:   1e-6,
		EliteSize:        20,
		MaxStall:         1000,
		MaxK:             2,
	}
}

// Validate rejects parameters the strategies cannot run with.
func (p Params) Validate() error {
	switch {
	case p.GroupSize < 1:
		return failure.Constraintf("group size must be at least 1, got %d", p.GroupSize)
	case p.MaxTries < 0 || p.MaxTime < 0:
		return failure.Constraintf("budgets must not be negative")
	case p.CheckEvery < 1:
		return failure.Constraintf("check interval must be at least 1, got %d", p.CheckEvery)
	case p.StartTemperature <= 0 || p.MinTemperature <= 0:
		return failure.Constraintf("temperatures must be positive")
	case p.TriesPerLevel < 1:
		return failure.Constraintf("tries per level must be at least 1, got %d", p.TriesPerLevel)
	case p.Cooling <= 0 || p.Cooling >= 1:
		return failure.Constraintf("cooling factor must be in (0,1), got %v", p.Cooling)
	case p.EliteSize < 1:
		return failure.Constraintf("elite size must be at least 1, got %d", p.EliteSize)
	case p.MaxStall < 0:
		return failure.Constraintf("stall limit must not be negative")
	case p.MaxK < 1 || p.MaxK > MaxGreedyK:
		return failure.Constraintf("greedy depth must be in [1,%d], got %d", MaxGreedyK, p.MaxK)
	}
	return nil
}

// Session carries everything a strategy needs besides its evaluator. A
// Session is used by one strategy at a time.
type Session struct {
	Params Params
	Rand   *rand.Rand
	Log    logrus.FieldLogger

	ctx      context.Context
	clock    limits.Clock
	method   string
	tries    int
	reported int
	progress rate.Sometimes
}

type Option func(s *Session) error

// WithParams replaces the default tuning.
func WithParams(p Params) Option {
	return func(s *Session) error {
		if err := p.Validate(); err != nil {
			return err
		}
		s.Params = p
		return nil
	}
}

// WithSeed seeds the session's random source.
func WithSeed(seed int64) Option {
	return func(s *Session) error {
		s.Rand = rand.New(rand.NewSource(seed))
		return nil
	}
}

// WithRand uses rng as the session's random source.
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) error {
		s.Rand = rng
		return nil
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Session) error {
		s.Log = log
		return nil
	}
}

// WithClock measures the time budget with c instead of process CPU time.
func WithClock(c limits.Clock) Option {
	return func(s *Session) error {
		s.clock = c
		return nil
	}
}

// WithContext stops strategies when ctx is done. It is polled with the
// time budget.
func WithContext(ctx context.Context) Option {
	return func(s *Session) error {
		s.ctx = ctx
		return nil
	}
}

var defaults = []Option{
	func(s *Session) error {
		if s.Params == (Params{}) {
			s.Params = DefaultParams()
		}
		return nil
	},
	func(s *Session) error {
		if s.Rand == nil {
			s.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		return nil
	},
	func(s *Session) error {
		if s.Log == nil {
			log := logrus.New()
			log.SetLevel(logrus.WarnLevel)
			s.Log = log
		}
		return nil
	},
	func(s *Session) error {
		if s.clock == nil {
			s.clock = limits.Since()
		}
		if s.ctx == nil {
			s.ctx = context.Background()
		}
		return nil
	},
}

func NewSession(options ...Option) (*Session, error) {
	s := &Session{progress: rate.Sometimes{Interval: 2 * time.Second}}
	for _, option := range append(options, defaults...) {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Tries is the number of tries used so far.
func (s *Session) Tries() int {
	return s.tries
}

// Start builds a random, fully bound structure for keys with the given tap
// method and returns its evaluator.
func (s *Session) Start(keys *keyset.Set, method taps.Method, wO, wI, wA int) (*evaluator.Evaluator, error) {
	h := bithash.Build(s.Rand, method, keys, wO, wI, wA)
	h.Randomize(s.Rand)
	return evaluator.New(h, keys)
}

func (s *Session) begin(method string) {
	s.method = method
	s.Log = s.Log.WithField("method", method)
}

// step counts one try and reports whether the budget is spent.
func (s *Session) step() bool {
	s.tries++
	if s.Params.MaxTries > 0 && s.tries >= s.Params.MaxTries {
		return true
	}
	if s.tries%s.Params.CheckEvery != 0 {
		return false
	}
	metrics.AddTries(s.method, s.tries-s.reported)
	s.reported = s.tries
	if s.ctx.Err() != nil {
		s.Log.Info("search interrupted")
		return true
	}
	if s.Params.MaxTime > 0 && s.clock() > s.Params.MaxTime {
		s.Log.WithField("cpu", s.clock()).Info("time budget spent")
		return true
	}
	return false
}

func (s *Session) improved(score int) {
	metrics.SetBestScore(s.method, score)
	s.Log.WithFields(logrus.Fields{"tries": s.tries, "score": score}).Debug("new best")
}

func (s *Session) report(fields logrus.Fields) {
	s.progress.Do(func() {
		s.Log.WithFields(fields).WithField("tries", s.tries).Info("progress")
	})
}

func (s *Session) restart() {
	metrics.EmitRestart(s.method)
	s.Log.WithField("tries", s.tries).Debug("restart")
}
