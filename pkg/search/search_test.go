package search

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m8pple/fpga-perfect-hash/pkg/bitvector"
	"github.com/m8pple/fpga-perfect-hash/pkg/evaluator"
	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
	"github.com/m8pple/fpga-perfect-hash/pkg/taps"
)

func frozen() time.Duration { return 0 }

func session(t *testing.T, seed int64, tweak func(p *Params)) *Session {
	p := DefaultParams()
	p.MaxTries = 5000
	p.TriesPerLevel = 200
	if tweak != nil {
		tweak(&p)
	}
	s, err := NewSession(WithParams(p), WithSeed(seed), WithClock(frozen))
	require.NoError(t, err)
	return s
}

func keys(t *testing.T, ks ...string) *keyset.Set {
	var vs []bitvector.Vector
	for _, k := range ks {
		vs = append(vs, bitvector.MustParse(k))
	}
	s, err := keyset.FromKeys(vs...)
	require.NoError(t, err)
	return s
}

func TestStrategiesSolveTwoBitKeys(t *testing.T) {
	ks := keys(t, "0b0000", "0b0001", "0b0010", "0b0011")
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s := session(t, 42, nil)
			ev, err := s.Start(ks, taps.MethodUniform, 2, 4, 2)
			require.NoError(t, err)

			st, err := Lookup(name)
			require.NoError(t, err)
			r, err := st(s, ev)
			require.NoError(t, err)
			assert.True(t, r.Solved)
			assert.Equal(t, 0, r.Score)

			ok, err := r.Hash.IsSolution(ks, 1)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestStrategiesReportExhaustedBudget(t *testing.T) {
	ks := keys(t, "0b00", "0b01", "0b10", "0b11")
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s := session(t, 1, func(p *Params) {
				p.MaxTries = 50
				p.MaxStall = 5
			})
			ev, err := s.Start(ks, taps.MethodUniform, 1, 2, 2)
			require.NoError(t, err)

			st, err := Lookup(name)
			require.NoError(t, err)
			r, err := st(s, ev)
			require.Error(t, err)
			assert.ErrorIs(t, err, failure.ErrBudgetExhausted)

			var be *failure.BudgetExhausted
			require.True(t, errors.As(err, &be))
			assert.Equal(t, r.Score, be.BestScore)
			assert.Equal(t, 50, r.Tries)
			assert.False(t, r.Solved)
			// Four keys in two buckets leave two collisions at best.
			assert.GreaterOrEqual(t, r.Score, 2)
		})
	}
}

func TestCancelledContextStopsSearch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := DefaultParams()
	p.MaxTries = 0
	p.CheckEvery = 10
	s, err := NewSession(WithParams(p), WithSeed(3), WithClock(frozen), WithContext(ctx))
	require.NoError(t, err)

	ev, err := s.Start(keys(t, "0b00", "0b01", "0b10", "0b11"), taps.MethodUniform, 1, 2, 2)
	require.NoError(t, err)
	r, err := Anneal(s, ev)
	assert.ErrorIs(t, err, failure.ErrBudgetExhausted)
	assert.Equal(t, 10, r.Tries)
}

func TestTimeBudget(t *testing.T) {
	elapsed := time.Duration(0)
	p := DefaultParams()
	p.MaxTries = 0
	p.MaxTime = time.Second
	p.CheckEvery = 1
	s, err := NewSession(WithParams(p), WithSeed(3), WithClock(func() time.Duration {
		elapsed += 100 * time.Millisecond
		return elapsed
	}))
	require.NoError(t, err)

	ev, err := s.Start(keys(t, "0b00", "0b01", "0b10", "0b11"), taps.MethodUniform, 1, 2, 2)
	require.NoError(t, err)
	r, err := Anneal(s, ev)
	assert.ErrorIs(t, err, failure.ErrBudgetExhausted)
	// The clock passes the budget on the eleventh check.
	assert.Equal(t, 11, r.Tries)
}

// bestByBruteForce scores every set of k bits with a from-scratch
// evaluation.
func bestByBruteForce(t *testing.T, ev *evaluator.Evaluator, k, g int) int {
	h := ev.Hash().Clone()
	best, err := evaluator.EvalFull(h, ev.Keys(), g)
	require.NoError(t, err)
	n := ev.BitCount()
	var visit func(from, left int)
	visit = func(from, left int) {
		if left == 0 {
			score, err := evaluator.EvalFull(h, ev.Keys(), g)
			require.NoError(t, err)
			if score < best {
				best = score
			}
			return
		}
		for i := from; i < n; i++ {
			tb, a := ev.EntryOf(i)
			h.FlipEntry(tb, a)
			visit(i+1, left-1)
			h.FlipEntry(tb, a)
		}
	}
	visit(0, k)
	return best
}

func TestGreedyIsExhaustive(t *testing.T) {
	for k := 1; k <= MaxGreedyK; k++ {
		for seed := int64(0); seed < 5; seed++ {
			rng := rand.New(rand.NewSource(seed))
			ks, err := keyset.Random(rng, keyset.RandomOptions{WO: 2, WI: 4, LoadFactor: 1})
			require.NoError(t, err)
			s := session(t, seed, nil)
			ev, err := s.Start(ks, taps.MethodUniform, 2, 4, 2)
			require.NoError(t, err)

			want := bestByBruteForce(t, ev, k, 1)
			before := ev.Eval(1)
			moved, err := Greedy(ev, k, 1)
			require.NoError(t, err)
			assert.Equal(t, want < before, moved, "k=%d seed=%d", k, seed)
			assert.Equal(t, want, ev.Eval(1), "k=%d seed=%d", k, seed)
		}
	}

	s := session(t, 0, nil)
	ev, err := s.Start(keys(t, "0b0", "0b1"), taps.MethodUniform, 1, 1, 1)
	require.NoError(t, err)
	_, err = Greedy(ev, 5, 1)
	assert.ErrorIs(t, err, failure.ErrConstraint)
}

func TestRelinkPathKeepsBestOfPath(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	ks, err := keyset.Random(rng, keyset.RandomOptions{WO: 3, WI: 6, LoadFactor: 0.9})
	require.NoError(t, err)
	s := session(t, 9, nil)
	ev, err := s.Start(ks, taps.MethodUniform, 3, 6, 3)
	require.NoError(t, err)

	target := ev.Hash().Clone()
	target.Randomize(s.Rand)
	start := ev.Eval(1)
	end, err := evaluator.EvalFull(target, ks, 1)
	require.NoError(t, err)

	require.NoError(t, RelinkPath(s, ev, target))
	got := ev.Eval(1)
	assert.LessOrEqual(t, got, start)
	assert.LessOrEqual(t, got, end)
	full, err := evaluator.EvalFull(ev.Hash(), ks, 1)
	require.NoError(t, err)
	assert.Equal(t, full, got)
}

func TestRandomizedGreedyLeavesBestInEvaluator(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	ks, err := keyset.Random(rng, keyset.RandomOptions{WO: 3, WI: 6, LoadFactor: 1})
	require.NoError(t, err)
	s := session(t, 10, func(p *Params) { p.MaxStall = 20 })
	ev, err := s.Start(ks, taps.MethodUniform, 3, 6, 3)
	require.NoError(t, err)

	require.NoError(t, RandomizedGreedy(s, ev))
	full, err := evaluator.EvalFull(ev.Hash(), ks, 1)
	require.NoError(t, err)
	assert.Equal(t, full, ev.Eval(1))
	assert.True(t, ev.Hash().IsConcrete())
}

func TestPool(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	s := session(t, 2, nil)
	ev, err := s.Start(keys(t, "0b00", "0b01"), taps.MethodUniform, 2, 2, 1)
	require.NoError(t, err)
	h := ev.Hash()

	p := newPool(2)
	assert.True(t, p.add(3, h))
	assert.False(t, p.add(3, h), "identical structures are held once")

	other := h.Clone()
	other.FlipEntry(0, 0)
	assert.True(t, p.add(1, other))
	third := other.Clone()
	third.FlipEntry(1, 0)
	assert.False(t, p.add(5, third), "worst member is pruned at capacity")
	assert.Equal(t, 2, p.len())

	p.reset(1)
	assert.Equal(t, 1, p.len())
	assert.True(t, p.random(rng).Equal(other))
}

func TestParamsValidate(t *testing.T) {
	for _, tt := range []struct {
		Name  string
		Tweak func(p *Params)
	}{
		{Name: "group size", Tweak: func(p *Params) { p.GroupSize = 0 }},
		{Name: "cooling", Tweak: func(p *Params) { p.Cooling = 1 }},
		{Name: "greedy depth", Tweak: func(p *Params) { p.MaxK = 5 }},
		{Name: "check interval", Tweak: func(p *Params) { p.CheckEvery = 0 }},
		{Name: "elite size", Tweak: func(p *Params) { p.EliteSize = 0 }},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			p := DefaultParams()
			tt.Tweak(&p)
			_, err := NewSession(WithParams(p))
			assert.ErrorIs(t, err, failure.ErrConstraint)
		})
	}
	assert.NoError(t, DefaultParams().Validate())
}
