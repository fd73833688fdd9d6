package taps

import (
	"math"
	"math/rand"
	"sort"

	"github.com/m8pple/fpga-perfect-hash/pkg/bitvector"
	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
)

// Weights scores each key bit by how much it discriminates between keys.
//
// A bit that is always one (or always zero) over the concrete key bits never
// needs to be looked at, so it gets weight zero; otherwise the weight is the
// binary entropy of the bit scaled by how often it is defined. The weights are
// normalised to sum to one. A key set with no informative bit yields all zeros.
func Weights(keys *keyset.Set) []float64 {
	w := keys.KeyWidth()
	ones := make([]int, w)
	zeros := make([]int, w)
	for _, e := range keys.Entries() {
		for i := 0; i < w; i++ {
			switch e.Key.At(i) {
			case bitvector.One:
				ones[i]++
			case bitvector.Zero:
				zeros[i]++
			}
		}
	}

	weights := make([]float64, w)
	total := 0.0
	for i := range weights {
		weights[i] = float64(ones[i]+zeros[i]) * entropy(ones[i], zeros[i])
		total += weights[i]
	}
	if total > 0 {
		for i := range weights {
			weights[i] /= total
		}
	}
	return weights
}

func entropy(h, t int) float64 {
	if h == 0 || t == 0 {
		return 0
	}
	p := float64(h) / float64(h+t)
	return -p*math.Log2(p) - (1-p)*math.Log2(1-p)
}

// Weighted builds a shuffle over len(weights) inputs. Every input with a
// nonzero weight is assigned round-robin first; tables are then filled by
// sampling inputs in proportion to their weight. Inputs with zero weight are
// never selected, so tables hold at most as many selectors as there are
// informative inputs.
func Weighted(rng *rand.Rand, wO int, weights []float64, wA int) Shuffle {
	var needed []int
	for i, w := range weights {
		if w > 0 {
			needed = append(needed, i)
		}
	}

	res := make([]map[int]struct{}, wO)
	for i := range res {
		res[i] = map[int]struct{}{}
	}
	for i, n := range needed {
		res[i%wO][n] = struct{}{}
	}

	if len(needed) > 0 {
		d := newDiscrete(weights)
		size := min(len(needed), wA)
		for _, set := range res {
			for len(set) < size {
				set[d.sample(rng)] = struct{}{}
			}
		}
	}
	return fromSets(res)
}

// discrete samples indices in proportion to non-negative weights.
type discrete struct {
	cumulative []float64
}

func newDiscrete(weights []float64) *discrete {
	d := &discrete{cumulative: make([]float64, len(weights))}
	acc := 0.0
	for i, w := range weights {
		acc += w
		d.cumulative[i] = acc
	}
	return d
}

func (d *discrete) sample(rng *rand.Rand) int {
	total := d.cumulative[len(d.cumulative)-1]
	u := rng.Float64() * total
	i := sort.Search(len(d.cumulative), func(i int) bool { return d.cumulative[i] > u })
	if i == len(d.cumulative) {
		i--
	}
	return i
}
