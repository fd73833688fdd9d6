package cnf

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/go-air/gini/z"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m8pple/fpga-perfect-hash/pkg/bithash"
	"github.com/m8pple/fpga-perfect-hash/pkg/bitvector"
	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
	"github.com/m8pple/fpga-perfect-hash/pkg/taps"
)

func keys(t *testing.T, ks ...string) *keyset.Set {
	var vs []bitvector.Vector
	for _, k := range ks {
		vs = append(vs, bitvector.MustParse(k))
	}
	s, err := keyset.FromKeys(vs...)
	require.NoError(t, err)
	return s
}

func solver(t *testing.T, options ...Option) Solver {
	s, err := NewGiniSolver(options...)
	require.NoError(t, err)
	return s
}

// bruteForce reports whether some binding of h's open entries is a
// solution.
func bruteForce(t *testing.T, h *bithash.Hash, ks *keyset.Set, g int) bool {
	var open [][2]int
	for tb := range h.Tables {
		for a, b := range h.Tables[tb].LUT {
			if b == bitvector.DontCare {
				open = append(open, [2]int{tb, a})
			}
		}
	}
	c := h.Clone()
	for mask := 0; mask < 1<<uint(len(open)); mask++ {
		for i, e := range open {
			c.Set(e[0], e[1], bitvector.Bit(mask>>uint(i)&1))
		}
		ok, err := c.IsSolution(ks, g)
		require.NoError(t, err)
		if ok {
			return true
		}
	}
	return false
}

func TestOneOutputBitCannotSeparateFourKeys(t *testing.T) {
	h := bithash.New(2, taps.Shuffle{{0, 1}})
	_, err := Solve(context.Background(), solver(t), h, keys(t, "0b00", "0b01", "0b10", "0b11"))
	assert.ErrorIs(t, err, failure.ErrUnsatisfiable)
	assert.False(t, failure.IsResourceExhausted(err))
}

func TestSolveAgreesWithBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 60; i++ {
		ks, err := keyset.Random(rng, keyset.RandomOptions{
			WO:            2,
			WI:            3,
			LoadFactor:    0.5 + 0.25*float64(rng.Intn(3)),
			ProbUndefined: 0.15,
		})
		require.NoError(t, err)
		h := bithash.New(3, taps.Uniform(rng, 2, 3, 2))
		h.BindRandom(rng, 0.3)
		g := 1 + rng.Intn(2)

		want := bruteForce(t, h, ks, g)
		got, err := Solve(context.Background(), solver(t), h, ks, WithGroupSize(g))
		if !want {
			assert.ErrorIs(t, err, failure.ErrUnsatisfiable, "case %d:\n%s%s", i, h, ks)
			continue
		}
		require.NoError(t, err, "case %d:\n%s%s", i, h, ks)
		assert.True(t, got.IsConcrete())
		ok, err := got.IsSolution(ks, g)
		require.NoError(t, err)
		assert.True(t, ok)
		// Entries bound on input keep their value.
		for tb := range h.Tables {
			for a, b := range h.Tables[tb].LUT {
				if b != bitvector.DontCare {
					assert.Equal(t, b, got.At(tb, a))
				}
			}
		}
	}
}

func TestDontCareKeysShareAHash(t *testing.T) {
	ks := keys(t, "0b0u1", "0b100", "0b110")
	h := bithash.New(3, taps.Shuffle{{0, 1}, {1, 2}})
	got, err := Solve(context.Background(), solver(t), h, ks)
	require.NoError(t, err)
	groups, err := got.HashGroups(ks)
	require.NoError(t, err)
	for _, g := range groups {
		assert.True(t, g.Consistent, "variants of %s differ", g.Key)
	}
}

func TestGroupSize(t *testing.T) {
	four := keys(t, "0b00", "0b01", "0b10", "0b11")
	h := bithash.New(2, taps.Shuffle{{0, 1}})
	got, err := Solve(context.Background(), solver(t), h, four, WithGroupSize(2))
	require.NoError(t, err)
	ok, err := got.IsSolution(four, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	five := keys(t, "0b000", "0b001", "0b010", "0b011", "0b100")
	h = bithash.New(3, taps.Shuffle{{0, 1, 2}})
	_, err = Solve(context.Background(), solver(t), h, five, WithGroupSize(2))
	assert.ErrorIs(t, err, failure.ErrUnsatisfiable)
}

func TestMaxHash(t *testing.T) {
	ks := keys(t, "0b00", "0b01", "0b10")
	h := bithash.New(2, taps.Shuffle{{0, 1}, {0, 1}})
	got, err := Solve(context.Background(), solver(t), h, ks, WithMaxHash(2))
	require.NoError(t, err)
	m, err := got.MaxHash(ks)
	require.NoError(t, err)
	assert.LessOrEqual(t, m, uint32(2))

	_, err = Solve(context.Background(), solver(t), h, ks, WithMaxHash(1))
	assert.ErrorIs(t, err, failure.ErrUnsatisfiable)
}

// identity returns a two-bit hash whose tables copy one key bit each.
func identity() *bithash.Hash {
	h := bithash.New(2, taps.Shuffle{{0}, {1}})
	for tb := 0; tb < 2; tb++ {
		h.Set(tb, 0, bitvector.Zero)
		h.Set(tb, 1, bitvector.One)
	}
	return h
}

func TestBoundsBrokenByBoundEntries(t *testing.T) {
	type tc struct {
		Name    string
		Hash    func() *bithash.Hash
		Keys    []string
		Options []EncodeOption
		Reason  string
	}
	for _, tt := range []tc{
		{
			Name:    "key bound above max hash",
			Hash:    identity,
			Keys:    []string{"0b00", "0b01", "0b11"},
			Options: []EncodeOption{WithMaxHash(2)},
			Reason:  "key 0b11 always hashes above 2",
		},
		{
			Name: "high bit bound to one",
			Hash: func() *bithash.Hash {
				h := bithash.New(2, taps.Shuffle{{0}, {1}})
				h.Set(1, 0, bitvector.One)
				h.Set(1, 1, bitvector.One)
				return h
			},
			Keys:    []string{"0b00", "0b01"},
			Options: []EncodeOption{WithMaxHash(1)},
			Reason:  "always hashes above 1",
		},
		{
			Name: "three groups share a bucket of two",
			Hash: func() *bithash.Hash {
				h := bithash.New(2, taps.Shuffle{{0, 1}})
				for a := 0; a < 4; a++ {
					h.Set(0, a, bitvector.Zero)
				}
				return h
			},
			Keys:    []string{"0b00", "0b01", "0b10"},
			Options: []EncodeOption{WithGroupSize(2)},
			Reason:  "more than 2 key groups always share a hash",
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			ks := keys(t, tt.Keys...)
			p, err := Encode(tt.Hash(), ks, tt.Options...)
			require.NoError(t, err)
			assert.Contains(t, p.Trivial(), tt.Reason)

			_, err = Solve(context.Background(), solver(t), tt.Hash(), ks, tt.Options...)
			assert.ErrorIs(t, err, failure.ErrUnsatisfiable)
		})
	}
}

func TestTrivialConflict(t *testing.T) {
	h := bithash.New(2, taps.Shuffle{{0}})
	h.Set(0, 0, bitvector.One)
	h.Set(0, 1, bitvector.One)
	p, err := Encode(h, keys(t, "0b00", "0b01"))
	require.NoError(t, err)
	assert.Contains(t, p.Trivial(), "always collide")

	_, err = solver(t).Solve(context.Background(), p)
	assert.ErrorIs(t, err, failure.ErrUnsatisfiable)

	var sb strings.Builder
	require.NoError(t, p.WriteDimacs(&sb))
	assert.True(t, strings.HasSuffix(sb.String(), "\n0\n"))
}

func TestPairLimitDoesNotChangeAnswer(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 20; i++ {
		ks, err := keyset.Random(rng, keyset.RandomOptions{WO: 3, WI: 5, LoadFactor: 0.75})
		require.NoError(t, err)
		h := bithash.New(5, taps.Uniform(rng, 3, 5, 2))

		_, errExpanded := Solve(context.Background(), solver(t), h, ks, WithPairLimit(8))
		_, errGates := Solve(context.Background(), solver(t), h, ks, WithPairLimit(0))
		assert.Equal(t, errExpanded == nil, errGates == nil, "case %d", i)
	}
}

func TestSimplify(t *testing.T) {
	h := bithash.New(2, taps.Shuffle{{0}})
	p := newProblem(h)
	a := p.entry(0, 0)
	b := p.entry(0, 1)
	p.addClause(a, b)
	p.addClause(b, a)
	p.addClause(a, a.Not())
	p.addClause(b, b, a)
	p.addClause(p.c.T, a)
	p.addClause(p.c.F, a)

	assert.Len(t, p.Clauses(), 5)
	assert.Equal(t, 3, p.Simplify())
	assert.Equal(t, [][]z.Lit{sorted(a, b), {a}}, p.Clauses())
}

func sorted(a, b z.Lit) []z.Lit {
	if b < a {
		return []z.Lit{b, a}
	}
	return []z.Lit{a, b}
}

func TestAssignment(t *testing.T) {
	a := Assignment{Unconstrained, Unconstrained, True, False}
	assert.Equal(t, True, a.Lit(z.Var(2).Pos()))
	assert.Equal(t, False, a.Lit(z.Var(2).Neg()))
	assert.Equal(t, True, a.Lit(z.Var(3).Neg()))
	assert.Equal(t, Unconstrained, a.Lit(z.Var(1).Neg()))
	assert.Equal(t, Unconstrained, a.Lit(z.Var(9).Pos()))
}

func TestSubstituteBindsUnreadEntriesToZero(t *testing.T) {
	// Only addresses 0 and 1 of table 0 are read.
	h := bithash.New(2, taps.Shuffle{{0, 1}})
	ks := keys(t, "0b00", "0b01")
	p, err := Encode(h, ks)
	require.NoError(t, err)
	assert.Len(t, p.Entries(), 2)

	a, err := solver(t).Solve(context.Background(), p)
	require.NoError(t, err)
	got, err := Substitute(p, a)
	require.NoError(t, err)
	assert.True(t, got.IsConcrete())
	assert.Equal(t, bitvector.Zero, got.At(0, 2))
	assert.Equal(t, bitvector.Zero, got.At(0, 3))
	assert.NotEqual(t, got.At(0, 0), got.At(0, 1))
}

func TestCancelledSolveIsResourceExhausted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := bithash.New(2, taps.Shuffle{{0, 1}, {0, 1}})
	_, err := Solve(ctx, solver(t, WithPollInterval(time.Hour)), h, keys(t, "0b00", "0b01", "0b10"))
	assert.ErrorIs(t, err, failure.ErrResourceExhausted)
}

func TestTracer(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetLevel(logrus.DebugLevel)
	h := bithash.New(2, taps.Shuffle{{0, 1}})
	_, err := Solve(context.Background(), solver(t, WithTracer(LoggingTracer{Log: log})), h, keys(t, "0b00", "0b01"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "outcome=solved")
}

func TestConstruct(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	never := func() time.Duration { return 0 }

	ks := keys(t, "0b0000", "0b0001", "0b0010", "0b0011")
	r, err := Construct(context.Background(), rng, log, solver(t), ks, Params{
		WO: 2, WI: 4, WA: 2, Taps: taps.MethodUniform, MaxTries: 10,
	}, never)
	require.NoError(t, err)
	assert.True(t, r.Solved)
	ok, err := r.Hash.IsSolution(ks, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = Construct(context.Background(), rng, log, solver(t), ks, Params{
		WO: 1, WI: 4, WA: 2, Taps: taps.MethodUniform, MaxTries: 10,
	}, never)
	assert.ErrorIs(t, err, failure.ErrUnsatisfiable)

	// Four groups fit two buckets of two.
	r, err = Construct(context.Background(), rng, log, solver(t), ks, Params{
		WO: 1, WI: 4, WA: 4, Taps: taps.MethodUniform, MaxTries: 3, Encode: []EncodeOption{WithGroupSize(2)},
	}, never)
	require.NoError(t, err)
	ok, err = r.Hash.IsSolution(ks, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

type stalled struct{}

func (stalled) Solve(ctx context.Context, p *Problem) (Assignment, error) {
	return nil, failure.ResourceExhausted(ctx.Err(), "sat solve stopped")
}

func TestConstructTimeBudget(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	ks := keys(t, "0b0000", "0b0001", "0b0010", "0b0011")
	params := Params{WO: 2, WI: 4, WA: 2, Taps: taps.MethodUniform, MaxTries: 10, MaxTime: time.Second}

	spent := func() time.Duration { return time.Hour }
	_, err := Construct(context.Background(), rng, log, solver(t), ks, params, spent)
	assert.ErrorIs(t, err, failure.ErrBudgetExhausted)
	var be *failure.BudgetExhausted
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 0, be.Tries)

	// The budget runs out while the solver is working on the first try.
	calls := 0
	running := func() time.Duration {
		calls++
		switch calls {
		case 1:
			return 0
		case 2:
			return params.MaxTime - time.Millisecond
		}
		return params.MaxTime
	}
	_, err = Construct(context.Background(), rng, log, stalled{}, ks, params, running)
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 1, be.Tries)

	// A cancelled run is not a spent budget.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Construct(ctx, rng, log, stalled{}, ks, params, func() time.Duration { return 0 })
	assert.ErrorIs(t, err, failure.ErrResourceExhausted)
}
