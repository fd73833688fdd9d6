package keyset

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m8pple/fpga-perfect-hash/pkg/bitvector"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

func TestNew(t *testing.T) {
	s, err := New([]Entry{
		{Key: bitvector.MustParse("0b11"), Value: bitvector.MustParse("0x7")},
		{Key: bitvector.MustParse("0b0u"), Value: bitvector.MustParse("1")},
		{Key: bitvector.MustParse("0b10")},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 4, s.DistinctKeys())
	assert.Equal(t, 2, s.KeyWidth())
	assert.Equal(t, 3, s.ValueWidth())
	assert.False(t, s.HasConcreteKeys())
	assert.Equal(t, "0b0u", s.Entries()[0].Key.String(), "entries are kept in key order")

	v, ok := s.Lookup(bitvector.MustParse("0b1"))
	require.True(t, ok)
	assert.Equal(t, "0b1", v.String())
	_, ok = s.Lookup(bitvector.MustParse("0b100"))
	assert.False(t, ok)
}

func TestNewRejects(t *testing.T) {
	type tc struct {
		Name string
		Keys []string
	}

	for _, tt := range []tc{
		{Name: "overlapping groups", Keys: []string{"0b00u", "0b001"}},
		{Name: "duplicate", Keys: []string{"0b101", "5"}},
		{Name: "dont care covers another", Keys: []string{"0b1", "0buu"}},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			var keys []bitvector.Vector
			for _, k := range tt.Keys {
				keys = append(keys, bitvector.MustParse(k))
			}
			_, err := FromKeys(keys...)
			require.Error(t, err)
			assert.Equal(t, failure.KindFormat, failure.KindOf(err))
		})
	}
}

func TestParse(t *testing.T) {
	src := `
0b0000:0
  0b0001 : 0x1

0x2
3:0b1u
`
	s, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 4, s.Len())
	assert.True(t, s.HasConcreteKeys())
	assert.Equal(t, "0b1u", s.Entries()[3].Value.String())
}

func TestParseErrors(t *testing.T) {
	type tc struct {
		Name  string
		Input string
		Line  string
	}

	for _, tt := range []tc{
		{Name: "bad key", Input: "0b1\n0b2\n", Line: "line 2"},
		{Name: "bad value", Input: "0b1:zz\n", Line: "line 1"},
		{Name: "duplicate", Input: "1\n\n0b1\n", Line: "line 3"},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.Input))
			require.Error(t, err)
			assert.Equal(t, failure.KindFormat, failure.KindOf(err))
			assert.Contains(t, err.Error(), tt.Line)
		})
	}

	_, err := Parse(strings.NewReader("0b00u\n0b001\n"))
	assert.Equal(t, failure.KindFormat, failure.KindOf(err))
}

func TestWriteRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	s, err := Random(rng, RandomOptions{WO: 5, WI: 8, WV: 4, LoadFactor: 0.8, ProbUndefined: 0.1, Distribution: Uniform})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.Write(&buf, "  "))
	back, err := Parse(&buf)
	require.NoError(t, err)
	assert.True(t, s.Equal(back))
}

func TestRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, d := range []Distribution{Uniform, Exponential} {
		s, err := Random(rng, RandomOptions{WO: 4, WI: 10, WV: 2, LoadFactor: 1.0, Distribution: d})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s.DistinctKeys(), 16)
		assert.LessOrEqual(t, s.KeyWidth(), 10)
	}

	_, err := Random(rng, RandomOptions{WO: 4, WI: 3, LoadFactor: 1.0})
	assert.Error(t, err)
}
