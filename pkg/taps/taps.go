// Package taps chooses which input bits each output table of a hash reads.
//
// A shuffle is a list of wO selector sets. Every selector set is kept sorted
// without repeats, and the shuffle itself is sorted lexicographically, so that
// equivalent selections compare equal.
package taps

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// Shuffle holds the selector set of each output table.
type Shuffle [][]int

// Method names a tap selection strategy.
type Method string

const (
	MethodUniform  Method = "uniform"
	MethodWeighted Method = "weighted"
)

// CanonicaliseAddress sorts a selector set and drops repeats.
func CanonicaliseAddress(addr []int) []int {
	sort.Ints(addr)
	out := addr[:0]
	for i, a := range addr {
		if i == 0 || a != addr[i-1] {
			out = append(out, a)
		}
	}
	return out
}

// Canonicalise puts every selector set and the shuffle itself in canonical
// order.
func Canonicalise(s Shuffle) {
	for i := range s {
		s[i] = CanonicaliseAddress(s[i])
	}
	sort.SliceStable(s, func(i, j int) bool {
		return lexLess(s[i], s[j])
	})
}

func lexLess(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// Distance counts the selectors present in exactly one of two canonical sets.
func Distance(a, b []int) int {
	different := 0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			different++
			i++
		case a[i] > b[j]:
			different++
			j++
		default:
			i++
			j++
		}
	}
	return different + (len(a) - i) + (len(b) - j)
}

// Spread is the sum of pairwise distances between selector sets; larger
// values mean less overlap between tables.
func Spread(s Shuffle) int {
	acc := 0
	for i := 0; i < len(s); i++ {
		for j := i + 1; j < len(s); j++ {
			acc += Distance(s[i], s[j])
		}
	}
	return acc
}

// IsValid reports whether every one of the wI inputs is read by some table.
func IsValid(wI int, s Shuffle) bool {
	hit := 0
	seen := make([]bool, wI)
	for _, addr := range s {
		for _, a := range addr {
			if a < 0 || a >= wI {
				return false
			}
			if !seen[a] {
				seen[a] = true
				hit++
			}
		}
	}
	return hit == wI
}

// Uniform distributes the inputs round-robin so each is read at least once,
// then fills every table up to min(wI, wA) selectors with random inputs.
func Uniform(rng *rand.Rand, wO, wI, wA int) Shuffle {
	res := make([]map[int]struct{}, wO)
	for i := range res {
		res[i] = map[int]struct{}{}
	}
	for i := 0; i < wI; i++ {
		res[i%wO][i] = struct{}{}
	}
	size := min(wI, wA)
	for _, set := range res {
		for len(set) < size {
			set[rng.Intn(wI)] = struct{}{}
		}
	}
	return fromSets(res)
}

func fromSets(sets []map[int]struct{}) Shuffle {
	s := make(Shuffle, len(sets))
	for i, set := range sets {
		for a := range set {
			s[i] = append(s[i], a)
		}
	}
	Canonicalise(s)
	return s
}

func (s Shuffle) String() string {
	var sb strings.Builder
	for i, addr := range s {
		fmt.Fprintf(&sb, "%d=[", i)
		for j, a := range addr {
			if j != 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "%d", a)
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}
