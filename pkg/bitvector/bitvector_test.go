package bitvector

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

func TestNewTrims(t *testing.T) {
	v := New(One, Zero, DontCare, Zero, Zero)
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, Zero, v.At(10))
	assert.Equal(t, Zero, v.At(-1))
	assert.Equal(t, "0bu01", v.String())
	assert.False(t, v.IsConcrete())
	assert.Equal(t, 1, v.MinOnes())
	assert.Equal(t, 2, v.MaxOnes())

	assert.Equal(t, 0, New(Zero, Zero).Len())
	assert.Equal(t, "0b0", New().String())
}

func TestNewPanicsOnInvalidBit(t *testing.T) {
	assert.Panics(t, func() { New(Bit(2)) })
}

func TestParse(t *testing.T) {
	type tc struct {
		Name   string
		Input  string
		Output string
		Error  bool
	}

	for _, tt := range []tc{
		{Name: "binary", Input: "0b0101", Output: "0b101"},
		{Name: "binary with dont care", Input: " 0B1u0\n", Output: "0b1u0"},
		{Name: "hex", Input: "0x1f", Output: "0b11111"},
		{Name: "hex upper", Input: "0XA", Output: "0b1010"},
		{Name: "decimal", Input: "6", Output: "0b110"},
		{Name: "zero", Input: "0", Output: "0b0"},
		{Name: "bad binary digit", Input: "0b102", Error: true},
		{Name: "bad hex digit", Input: "0xfg", Error: true},
		{Name: "bad decimal", Input: "12a", Error: true},
		{Name: "empty", Input: "   ", Error: true},
		{Name: "empty binary", Input: "0b", Error: true},
		{Name: "overflow", Input: "99999999999999999999999", Error: true},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			v, err := Parse(tt.Input)
			if tt.Error {
				require.Error(t, err)
				assert.Equal(t, failure.KindFormat, failure.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.Output, v.String())
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 200; i++ {
		v := Random(rng, 1+rng.Intn(20), 0.3)
		back, err := Parse(v.String())
		require.NoError(t, err)
		assert.True(t, v.Equal(back), "%s != %s", v, back)
	}
}

func TestCompare(t *testing.T) {
	a := MustParse("0b011")
	b := MustParse("0b101")
	c := MustParse("0b1")
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, c.Less(a), "shorter vectors order first")
	assert.Equal(t, 0, a.Compare(MustParse("3")))
	assert.True(t, MustParse("0b1u").Less(MustParse("0b10")))
}

func TestOverlaps(t *testing.T) {
	type tc struct {
		A, B     string
		Overlaps bool
	}

	for _, tt := range []tc{
		{A: "0b00u", B: "0b001", Overlaps: true},
		{A: "0b00u", B: "0b010", Overlaps: false},
		{A: "0bu0", B: "0b1u", Overlaps: true},
		{A: "0b1", B: "0b10", Overlaps: false},
		{A: "0b1", B: "0b1", Overlaps: true},
		{A: "0buu", B: "0b0", Overlaps: true},
	} {
		t.Run(tt.A+"/"+tt.B, func(t *testing.T) {
			a, b := MustParse(tt.A), MustParse(tt.B)
			assert.Equal(t, tt.Overlaps, a.Overlaps(b))
			assert.Equal(t, tt.Overlaps, b.Overlaps(a))
		})
	}
}

func TestConcreteMask(t *testing.T) {
	assert.Equal(t, "0b11101", MustParse("0b1u0").ConcreteMask(5).String())
}

func TestUintAndCount(t *testing.T) {
	x, err := MustParse("0x2a").Uint()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), x)

	n, err := MustParse("0x2a").Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = MustParse("0b1u").Uint()
	assert.Equal(t, failure.KindConstraint, failure.KindOf(err))
	_, err = MustParse("0b1u").Count()
	assert.Equal(t, failure.KindConstraint, failure.KindOf(err))

	for _, x := range []uint64{0, 1, 2, 77, 1 << 40} {
		got, err := FromUint(x).Uint()
		require.NoError(t, err)
		assert.Equal(t, x, got)
		assert.Equal(t, Width(x), FromUint(x).Len())
	}
}

func TestVariants(t *testing.T) {
	v := MustParse("0bu1u")
	require.Equal(t, 4, v.VariantsCount())

	var got []string
	it := v.Variants()
	for it.Next() {
		got = append(got, it.Value().String())
	}
	assert.Equal(t, []string{"0b10", "0b11", "0b110", "0b111"}, got)
	assert.False(t, it.Next())

	it.Reset()
	require.True(t, it.Next())
	assert.Equal(t, "0b10", it.Value().String())
	assert.Equal(t, "0b10", v.First().String())

	for _, x := range v.All() {
		assert.True(t, x.IsConcrete())
		assert.True(t, v.Overlaps(x))
	}
}

func TestVariantsOfConcrete(t *testing.T) {
	v := MustParse("0b101")
	it := v.Variants()
	require.True(t, it.Next())
	assert.True(t, v.Equal(it.Value()))
	assert.False(t, it.Next())
	assert.Equal(t, 1, it.Len())
}
