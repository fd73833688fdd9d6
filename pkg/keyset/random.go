package keyset

import (
	"math/rand"

	"github.com/m8pple/fpga-perfect-hash/pkg/bitvector"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

// Distribution selects how random key widths are drawn.
type Distribution string

const (
	// Uniform draws every key with the full input width.
	Uniform Distribution = "uniform"
	// Exponential draws a width uniformly in [1, wI] for each key, so narrow
	// keys (and therefore small values) are overrepresented.
	Exponential Distribution = "exponential"
)

// RandomOptions describes a random key set.
type RandomOptions struct {
	WO            int
	WI            int
	WV            int
	LoadFactor    float64
	ProbUndefined float64
	Distribution  Distribution
}

// Random generates non-overlapping keys until the distinct key count reaches
// LoadFactor * 2^WO.
func Random(rng *rand.Rand, o RandomOptions) (*Set, error) {
	target := int(float64(uint64(1)<<uint(o.WO)) * o.LoadFactor)
	if target > 1<<uint(o.WO) {
		return nil, failure.Constraintf("target of %d keys is impossible to hit (not enough output span)", target)
	}
	if o.WI < 64 && uint64(target) > uint64(1)<<uint(o.WI) {
		return nil, failure.Constraintf("target of %d keys is impossible to hit (not enough input span)", target)
	}
	if o.WI < 1 {
		return nil, failure.Constraintf("input width must be positive")
	}

	var entries []Entry
	n := 0
	for n < target {
		w := o.WI
		if o.Distribution == Exponential {
			w = rng.Intn(o.WI) + 1
		}
		key := bitvector.Random(rng, w, o.ProbUndefined)

		distinct := true
		for _, e := range entries {
			if e.Key.Overlaps(key) {
				distinct = false
				break
			}
		}
		if !distinct {
			continue
		}
		entries = append(entries, Entry{Key: key, Value: bitvector.Random(rng, o.WV, 0)})
		n += key.VariantsCount()
	}
	return New(entries)
}
