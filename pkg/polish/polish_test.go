package polish

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m8pple/fpga-perfect-hash/pkg/bithash"
	"github.com/m8pple/fpga-perfect-hash/pkg/bitvector"
	"github.com/m8pple/fpga-perfect-hash/pkg/cnf"
	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
	"github.com/m8pple/fpga-perfect-hash/pkg/taps"
)

func keys(t *testing.T, ks ...string) *keyset.Set {
	t.Helper()
	vs := make([]bitvector.Vector, len(ks))
	for i, k := range ks {
		vs[i] = bitvector.MustParse(k)
	}
	s, err := keyset.FromKeys(vs...)
	require.NoError(t, err)
	return s
}

func quiet() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	return log
}

// solved returns a perfect hash of the four keys with one table per key
// pair of bits, so every entry is read by exactly one key.
func solved(t *testing.T, ks *keyset.Set) *bithash.Hash {
	t.Helper()
	s, err := cnf.NewGiniSolver()
	require.NoError(t, err)
	h, err := cnf.Solve(context.Background(), s, bithash.New(4, taps.Shuffle{{0, 1}, {2, 3}}), ks)
	require.NoError(t, err)
	return h
}

type recorder struct {
	open []int
}

func (r *recorder) Solve(ctx context.Context, p *cnf.Problem) (cnf.Assignment, error) {
	r.open = append(r.open, p.Hash().Unbound())
	return nil, failure.Unsatisfiable("recorded")
}

func TestSolvedHashIsReturnedUnchanged(t *testing.T) {
	ks := keys(t, "0b0000", "0b0101", "0b1010", "0b1111")
	h := solved(t, ks)
	r := &recorder{}
	got, err := Polish(context.Background(), h, ks, WithSolver(r), WithLogger(quiet()))
	require.NoError(t, err)
	assert.Same(t, h, got)
	assert.Empty(t, r.open)
}

func TestRepairsBrokenHash(t *testing.T) {
	ks := keys(t, "0b0000", "0b0101", "0b1010", "0b1111")
	for i := 0; i < 8; i++ {
		h := solved(t, ks)
		h.FlipEntry(h.Entry(i))
		ok, err := h.IsSolution(ks, 1)
		require.NoError(t, err)
		require.False(t, ok)

		got, err := Polish(context.Background(), h, ks,
			WithRand(rand.New(rand.NewSource(int64(i)))), WithLogger(quiet()))
		require.NoError(t, err)
		ok, err = got.IsSolution(ks, 1)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, h.Tables[0].Selectors, got.Tables[0].Selectors)
	}
}

func TestScheduleEndsWithEverythingUnbound(t *testing.T) {
	ks := keys(t, "0b0000", "0b0101", "0b1010", "0b1111")
	h := solved(t, ks)
	h.FlipEntry(0, 0)
	r := &recorder{}
	_, err := Polish(context.Background(), h, ks,
		WithSolver(r), WithSchedule(0.25, 2), WithLogger(quiet()),
		WithRand(rand.New(rand.NewSource(1))))
	require.ErrorIs(t, err, failure.ErrUnsatisfiable)

	// 0.25, 0.5, then everything.
	require.Len(t, r.open, 3)
	assert.Equal(t, 2, r.open[0])
	assert.Equal(t, 4, r.open[1])
	assert.Equal(t, h.NumEntries(), r.open[2])
}

func TestUnsatisfiableSelectors(t *testing.T) {
	// Both tables read the same bits, so four keys cannot be separated.
	ks := keys(t, "0b00", "0b01", "0b10", "0b11")
	h := bithash.New(2, taps.Shuffle{{0}, {0}})
	require.False(t, h.IsConcrete())
	_, err := Polish(context.Background(), h, ks, WithLogger(quiet()))
	assert.True(t, failure.IsUnsatisfiable(err))
}

func TestCancelledPolishIsResourceExhausted(t *testing.T) {
	ks := keys(t, "0b0000", "0b0101", "0b1010", "0b1111")
	h := solved(t, ks)
	h.FlipEntry(1, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Polish(ctx, h, ks, WithLogger(quiet()))
	assert.True(t, failure.IsResourceExhausted(err))
}

func TestClashRanking(t *testing.T) {
	ks := keys(t, "0b00", "0b01", "0b10", "0b11")
	// Hash is bit 1 of the key, so 00/01 and 10/11 collide.
	h := bithash.New(2, taps.Shuffle{{1}})
	h.Tables[0].LUT[0] = bitvector.Zero
	h.Tables[0].LUT[1] = bitvector.One

	clashes := Clashes(h, ks, 1)
	require.Len(t, clashes, 4)
	for _, c := range clashes {
		assert.Equal(t, 1, c.Count)
	}
	assert.Empty(t, Clashes(h, ks, 2))

	entries := Entries(h, clashes)
	assert.Equal(t, []Entry{
		{Table: 0, Addr: 0, Count: 2},
		{Table: 0, Addr: 1, Count: 2},
	}, entries)
}

func TestDontCareKeyClashesWithItself(t *testing.T) {
	ks := keys(t, "0bu0")
	h := bithash.New(2, taps.Shuffle{{1}})
	h.Tables[0].LUT[0] = bitvector.Zero
	h.Tables[0].LUT[1] = bitvector.One

	clashes := Clashes(h, ks, 1)
	require.Len(t, clashes, 1)
	assert.Equal(t, 1, clashes[0].Count)
}

func TestInvalidSchedule(t *testing.T) {
	ks := keys(t, "0b00")
	_, err := Polish(context.Background(), bithash.New(2, taps.Shuffle{{0}}), ks, WithSchedule(0, 2))
	assert.ErrorIs(t, err, failure.ErrConstraint)
}

type counting struct {
	cnf.Solver
	open []int
}

func (c *counting) Solve(ctx context.Context, p *cnf.Problem) (cnf.Assignment, error) {
	c.open = append(c.open, p.Hash().Unbound())
	return c.Solver.Solve(ctx, p)
}

func TestMaxHashWidensTheFraction(t *testing.T) {
	// The identity hash separates the keys but sends 0b11 to 3.
	ks := keys(t, "0b00", "0b01", "0b11")
	h := bithash.New(2, taps.Shuffle{{0}, {1}})
	for tb := 0; tb < 2; tb++ {
		h.Set(tb, 0, bitvector.Zero)
		h.Set(tb, 1, bitvector.One)
	}
	gini, err := cnf.NewGiniSolver()
	require.NoError(t, err)
	s := &counting{Solver: gini}

	got, err := Polish(context.Background(), h, ks,
		WithSolver(s), WithMaxHash(2), WithRand(rand.New(rand.NewSource(3))), WithLogger(quiet()))
	require.NoError(t, err)
	ok, err := got.IsSolution(ks, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	m, err := got.MaxHash(ks)
	require.NoError(t, err)
	assert.LessOrEqual(t, m, uint32(2))
	assert.Greater(t, len(s.open), 1, "the first fraction cannot move both entries that need to change")
}
