package cnf

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/m8pple/fpga-perfect-hash/pkg/bithash"
	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/limits"
	"github.com/m8pple/fpga-perfect-hash/pkg/metrics"
	"github.com/m8pple/fpga-perfect-hash/pkg/search"
	"github.com/m8pple/fpga-perfect-hash/pkg/taps"
)

// Solve encodes the open entries of h, solves, and returns a fully bound
// copy of h that is verified to be a solution. h is not modified.
func Solve(ctx context.Context, s Solver, h *bithash.Hash, keys *keyset.Set, options ...EncodeOption) (*bithash.Hash, error) {
	e := encoding{groupSize: 1}
	for _, option := range options {
		option(&e)
	}
	p, err := Encode(h, keys, options...)
	if err != nil {
		return nil, err
	}
	p.Simplify()
	a, err := s.Solve(ctx, p)
	if err != nil {
		return nil, err
	}
	res, err := Substitute(p, a)
	if err != nil {
		return nil, errors.Wrap(err, "internal error")
	}
	ok, err := res.IsSolution(keys, e.groupSize)
	if err != nil {
		return nil, errors.Wrap(err, "internal error: verifying sat model")
	}
	if !ok {
		return nil, errors.New("internal error: sat model is not a solution")
	}
	if e.hasMaxHash {
		m, err := res.MaxHash(keys)
		if err != nil {
			return nil, errors.Wrap(err, "internal error: verifying sat model")
		}
		if m > e.maxHash {
			return nil, errors.Errorf("internal error: sat model hashes up to %d, above %d", m, e.maxHash)
		}
	}
	return res, nil
}

// Params describes an exact construction.
type Params struct {
	WO, WI, WA int
	Taps       taps.Method
	MaxTries   int
	MaxTime    time.Duration
	Encode     []EncodeOption
}

// Construct draws fresh taps and solves for the LUT contents until a
// solution is found, MaxTries tap selections were unsatisfiable, or the
// time budget measured by clock is spent. A spent budget is reported as
// failure.BudgetExhausted.
func Construct(ctx context.Context, rng *rand.Rand, log logrus.FieldLogger, s Solver, keys *keyset.Set, params Params, clock limits.Clock) (*search.Result, error) {
	const method = "cnf"
	tries := 0
	defer func() {
		metrics.AddTries(method, tries)
	}()
	e := encoding{groupSize: 1}
	for _, option := range params.Encode {
		option(&e)
	}
	if params.WO < 32 && keys.Len() > e.groupSize<<uint(params.WO) {
		return nil, failure.Unsatisfiable("more key groups than buckets")
	}
	spent := func() bool {
		return params.MaxTime > 0 && clock() >= params.MaxTime
	}
	for tries < params.MaxTries || params.MaxTries == 0 {
		if spent() {
			return nil, &failure.BudgetExhausted{BestScore: failure.NoScore, Tries: tries}
		}
		tries++
		h := bithash.Build(rng, params.Taps, keys, params.WO, params.WI, params.WA)
		log := log.WithField("try", tries)

		res, err := attempt(ctx, s, h, keys, params, clock)
		switch {
		case err == nil:
			log.Info("solved")
			return &search.Result{Hash: res, Score: 0, Tries: tries, Solved: true}, nil
		case failure.IsUnsatisfiable(err):
			log.WithError(err).Debug("taps unsatisfiable")
			continue
		case failure.IsResourceExhausted(err) && ctx.Err() == nil && spent():
			log.WithError(err).Debug("time budget ran out during solve")
			return nil, &failure.BudgetExhausted{BestScore: failure.NoScore, Tries: tries}
		default:
			return nil, err
		}
	}
	return nil, errors.Wrapf(failure.Unsatisfiable("no tap selection admits a solution"), "after %d tries", tries)
}

// attempt solves one tap selection, giving the solver whatever remains of
// the time budget.
func attempt(ctx context.Context, s Solver, h *bithash.Hash, keys *keyset.Set, params Params, clock limits.Clock) (*bithash.Hash, error) {
	if params.MaxTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.MaxTime-clock())
		defer cancel()
	}
	return Solve(ctx, s, h, keys, params.Encode...)
}
