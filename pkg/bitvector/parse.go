package bitvector

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

// Parse reads a literal in one of three forms: 0b followed by binary digits
// (u marks a don't-care), 0x followed by hex digits, or a decimal number.
// Surrounding whitespace is ignored and the literal is case-insensitive.
func Parse(s string) (Vector, error) {
	x := strings.ToLower(strings.TrimFunc(s, unicode.IsSpace))
	switch {
	case strings.HasPrefix(x, "0b"):
		digits := x[2:]
		if digits == "" {
			return Vector{}, failure.Formatf("empty binary literal %q", s)
		}
		res := make([]Bit, len(digits))
		for i := range res {
			switch ch := digits[len(digits)-i-1]; ch {
			case '0':
				res[i] = Zero
			case '1':
				res[i] = One
			case 'u':
				res[i] = DontCare
			default:
				return Vector{}, failure.Formatf("unexpected character %q in binary literal %q", ch, s)
			}
		}
		return New(res...), nil
	case strings.HasPrefix(x, "0x"):
		digits := x[2:]
		if digits == "" {
			return Vector{}, failure.Formatf("empty hex literal %q", s)
		}
		res := make([]Bit, 0, 4*len(digits))
		for i := len(digits) - 1; i >= 0; i-- {
			val, err := strconv.ParseUint(digits[i:i+1], 16, 8)
			if err != nil {
				return Vector{}, failure.Formatf("unexpected character %q in hex literal %q", digits[i], s)
			}
			for j := 0; j < 4; j++ {
				res = append(res, Bit(val&1))
				val >>= 1
			}
		}
		return New(res...), nil
	}
	if x == "" {
		return Vector{}, failure.Formatf("empty literal")
	}
	val, err := strconv.ParseUint(x, 10, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return Vector{}, failure.Formatf("literal %q exceeds the range of a 64-bit unsigned value", s)
		}
		return Vector{}, failure.Formatf("could not parse literal %q", s)
	}
	return FromUint(val), nil
}

// MustParse is like Parse but panics on error. It is meant for tests and
// fixed tables.
func MustParse(s string) Vector {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}
