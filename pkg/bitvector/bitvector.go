// Package bitvector implements immutable ternary bit-vectors. Each bit is
// zero, one or don't-care; a vector with don't-care bits stands for the group
// of concrete vectors obtained by resolving them (its variants).
package bitvector

import (
	"math/bits"
	"math/rand"
	"strings"

	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

// Bit is a single ternary value.
type Bit int8

const (
	DontCare Bit = -1
	Zero     Bit = 0
	One      Bit = 1
)

func (b Bit) String() string {
	switch b {
	case Zero:
		return "0"
	case One:
		return "1"
	case DontCare:
		return "u"
	}
	return "?"
}

// IsConcrete reports whether b is zero or one.
func (b Bit) IsConcrete() bool {
	return b == Zero || b == One
}

// Vector is a trimmed ternary vector: Len is one more than the index of the
// highest bit that is not Zero. Bits beyond Len read as Zero.
type Vector struct {
	bits    []Bit
	ones    int
	defined int // count of non-zero bits (ones plus don't-cares)
}

// New builds a vector from LSB-first bits. It panics if a bit is not one of
// Zero, One or DontCare.
func New(b ...Bit) Vector {
	v := Vector{bits: append([]Bit(nil), b...)}
	v.setCounts()
	return v
}

func (v *Vector) setCounts() {
	last := -1
	v.ones, v.defined = 0, 0
	for i, b := range v.bits {
		switch b {
		case One:
			v.ones++
		case Zero:
			continue
		case DontCare:
		default:
			panic(failure.Constraintf("bit %d is not -1 (u), 0 or 1", b))
		}
		v.defined++
		last = i
	}
	v.bits = v.bits[:last+1]
	if len(v.bits) == 0 {
		v.bits = nil
	}
}

// FromUint returns the concrete vector holding x.
func FromUint(x uint64) Vector {
	var b []Bit
	for x > 0 {
		b = append(b, Bit(x&1))
		x >>= 1
	}
	return New(b...)
}

// Len is the smallest number of LSBs containing every non-zero bit.
func (v Vector) Len() int {
	return len(v.bits)
}

// At returns bit i, or Zero when i is beyond Len.
func (v Vector) At(i int) Bit {
	if i < 0 || i >= len(v.bits) {
		return Zero
	}
	return v.bits[i]
}

// Bits returns a copy of the stored bits, LSB first.
func (v Vector) Bits() []Bit {
	return append([]Bit(nil), v.bits...)
}

// IsConcrete reports whether v has no don't-care bits.
func (v Vector) IsConcrete() bool {
	return v.ones == v.defined
}

// MinOnes is the number of bits that are definitely one.
func (v Vector) MinOnes() int {
	return v.ones
}

// MaxOnes is the number of bits that may be one.
func (v Vector) MaxOnes() int {
	return v.defined
}

// Count returns the number of one bits of a concrete vector.
func (v Vector) Count() (int, error) {
	if !v.IsConcrete() {
		return 0, failure.Constraintf("vector %s contains don't-care bits", v)
	}
	return v.ones, nil
}

// DontCares returns the number of don't-care bits.
func (v Vector) DontCares() int {
	return v.defined - v.ones
}

// VariantsCount is 2^DontCares.
func (v Vector) VariantsCount() int {
	return 1 << uint(v.DontCares())
}

// Compare orders by length, then by bit value from the MSB down.
func (v Vector) Compare(o Vector) int {
	if d := len(v.bits) - len(o.bits); d != 0 {
		if d < 0 {
			return -1
		}
		return 1
	}
	for i := len(v.bits) - 1; i >= 0; i-- {
		if v.bits[i] < o.bits[i] {
			return -1
		}
		if v.bits[i] > o.bits[i] {
			return 1
		}
	}
	return 0
}

// Less reports whether v orders before o.
func (v Vector) Less(o Vector) bool {
	return v.Compare(o) < 0
}

// Equal reports whether v and o hold the same bits.
func (v Vector) Equal(o Vector) bool {
	return v.Compare(o) == 0
}

// Overlaps reports whether the variant sets of v and o intersect, that is
// whether they agree at every position where both are concrete.
func (v Vector) Overlaps(o Vector) bool {
	n := len(v.bits)
	if len(o.bits) > n {
		n = len(o.bits)
	}
	for i := 0; i < n; i++ {
		a, b := v.At(i), o.At(i)
		if a != DontCare && b != DontCare && a != b {
			return false
		}
	}
	return true
}

// ConcreteMask returns a w-bit vector with one wherever v is defined. The
// width makes MSB zero bits, which are defined, show up in the mask.
func (v Vector) ConcreteMask(w int) Vector {
	res := make([]Bit, w)
	for i := range res {
		if v.At(i) != DontCare {
			res[i] = One
		}
	}
	return New(res...)
}

// Uint returns the value of a concrete vector.
func (v Vector) Uint() (uint64, error) {
	if len(v.bits) > 64 {
		return 0, failure.Constraintf("vector %s is wider than 64 bits", v)
	}
	var acc uint64
	for i, b := range v.bits {
		if b == DontCare {
			return 0, failure.Constraintf("vector %s is not concrete", v)
		}
		acc |= uint64(b) << uint(i)
	}
	return acc, nil
}

// String renders v as 0b followed by MSB-first digits, using u for don't-care.
func (v Vector) String() string {
	if len(v.bits) == 0 {
		return "0b0"
	}
	var sb strings.Builder
	sb.Grow(len(v.bits) + 2)
	sb.WriteString("0b")
	for i := len(v.bits) - 1; i >= 0; i-- {
		sb.WriteString(v.bits[i].String())
	}
	return sb.String()
}

// Random draws a w-bit vector; each bit is don't-care with probability
// pUndefined and otherwise uniformly zero or one.
func Random(rng *rand.Rand, w int, pUndefined float64) Vector {
	res := make([]Bit, w)
	for i := range res {
		if pUndefined != 0 && rng.Float64() < pUndefined {
			res[i] = DontCare
		} else {
			res[i] = Bit(rng.Intn(2))
		}
	}
	return New(res...)
}

// Width returns the number of bits needed to represent x.
func Width(x uint64) int {
	return bits.Len64(x)
}
