// Package bithash implements the table-based hash structure: wO independent
// boolean lookup tables, each addressed by a few selected input bits. Output
// bit i of the hash is the entry of table i addressed by the key.
package bithash

import (
	"math/rand"

	"github.com/m8pple/fpga-perfect-hash/pkg/bitvector"
	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
	"github.com/m8pple/fpga-perfect-hash/pkg/taps"
)

// MaxOutputWidth bounds wO so hash values fit a uint32 bucket index.
const MaxOutputWidth = 24

// Table is one output bit: the input positions it reads and its lookup
// array. Entry a of LUT is selected when selector i reads bit i of a.
type Table struct {
	Selectors []int
	LUT       []bitvector.Bit
}

// Address computes the LUT index for key. It fails if a selected key bit is
// a don't-care.
func (t *Table) Address(key bitvector.Vector) (int, error) {
	addr := 0
	for i, s := range t.Selectors {
		b := key.At(s)
		if b == bitvector.DontCare {
			return 0, failure.Constraintf("cannot look up non-concrete key %s (selector %d)", key, s)
		}
		addr |= int(b) << uint(i)
	}
	return addr, nil
}

// AddressUint computes the LUT index for a concrete key held in x.
func (t *Table) AddressUint(x uint64) int {
	addr := 0
	for i, s := range t.Selectors {
		addr |= int((x>>uint(s))&1) << uint(i)
	}
	return addr
}

func (t *Table) equal(o *Table) bool {
	if len(t.Selectors) != len(o.Selectors) || len(t.LUT) != len(o.LUT) {
		return false
	}
	for i := range t.Selectors {
		if t.Selectors[i] != o.Selectors[i] {
			return false
		}
	}
	for i := range t.LUT {
		if t.LUT[i] != o.LUT[i] {
			return false
		}
	}
	return true
}

// Hash is the complete structure. It is mutated in place by the search
// algorithms; see the evaluator package for the ownership rules.
type Hash struct {
	WI     int
	WO     int
	Tables []Table

	offsets []int // flat index of entry 0 of each table, plus the total
}

// New returns a structure with the given selectors and every entry unbound.
func New(wI int, s taps.Shuffle) *Hash {
	h := &Hash{WI: wI, WO: len(s), Tables: make([]Table, len(s))}
	for i, sel := range s {
		h.Tables[i].Selectors = append([]int(nil), sel...)
		h.Tables[i].LUT = make([]bitvector.Bit, 1<<uint(len(sel)))
		for j := range h.Tables[i].LUT {
			h.Tables[i].LUT[j] = bitvector.DontCare
		}
	}
	h.index()
	return h
}

// Build selects taps with the given method and returns an unbound structure.
func Build(rng *rand.Rand, method taps.Method, keys *keyset.Set, wO, wI, wA int) *Hash {
	if method == taps.MethodWeighted && keys != nil {
		w := taps.Weights(keys)
		if len(w) < wI {
			w = append(w, make([]float64, wI-len(w))...)
		}
		return New(wI, taps.Weighted(rng, wO, w, wA))
	}
	return New(wI, taps.Uniform(rng, wO, wI, wA))
}

// Random returns a uniformly tapped structure with every entry bound at
// random.
func Random(rng *rand.Rand, wO, wI, wA int) *Hash {
	h := New(wI, taps.Uniform(rng, wO, wI, wA))
	h.Randomize(rng)
	return h
}

func (h *Hash) index() {
	h.offsets = make([]int, len(h.Tables)+1)
	for i, t := range h.Tables {
		h.offsets[i+1] = h.offsets[i] + len(t.LUT)
	}
}

// Validate checks the structural invariants.
func (h *Hash) Validate() error {
	if len(h.Tables) != h.WO {
		return failure.Constraintf("hash has %d tables but wO=%d", len(h.Tables), h.WO)
	}
	if h.WO > MaxOutputWidth {
		return failure.Constraintf("wO=%d exceeds the maximum of %d", h.WO, MaxOutputWidth)
	}
	for i, t := range h.Tables {
		if len(t.LUT) != 1<<uint(len(t.Selectors)) {
			return failure.Constraintf("table %d has %d selectors but %d LUT entries", i, len(t.Selectors), len(t.LUT))
		}
		for j, s := range t.Selectors {
			if s < 0 || s >= h.WI {
				return failure.Constraintf("table %d selector %d is outside the %d-bit input", i, s, h.WI)
			}
			if j > 0 && s <= t.Selectors[j-1] {
				return failure.Constraintf("table %d selectors are not strictly ascending", i)
			}
		}
		for _, b := range t.LUT {
			if b != bitvector.Zero && b != bitvector.One && b != bitvector.DontCare {
				return failure.Constraintf("table %d holds invalid entry %d", i, b)
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (h *Hash) Clone() *Hash {
	c := &Hash{WI: h.WI, WO: h.WO, Tables: make([]Table, len(h.Tables))}
	for i, t := range h.Tables {
		c.Tables[i].Selectors = append([]int(nil), t.Selectors...)
		c.Tables[i].LUT = append([]bitvector.Bit(nil), t.LUT...)
	}
	c.index()
	return c
}

// CopyFrom overwrites the LUT entries of h with those of src. Both must
// have the same selectors.
func (h *Hash) CopyFrom(src *Hash) error {
	if !h.SameShape(src) {
		return failure.Constraintf("cannot copy entries between structures with different selectors")
	}
	for i := range h.Tables {
		copy(h.Tables[i].LUT, src.Tables[i].LUT)
	}
	return nil
}

// SameShape reports whether h and o have identical widths and selectors.
func (h *Hash) SameShape(o *Hash) bool {
	if h.WI != o.WI || h.WO != o.WO || len(h.Tables) != len(o.Tables) {
		return false
	}
	for i := range h.Tables {
		a, b := h.Tables[i].Selectors, o.Tables[i].Selectors
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}

// Equal reports whether h and o are identical.
func (h *Hash) Equal(o *Hash) bool {
	if h.WI != o.WI || h.WO != o.WO || len(h.Tables) != len(o.Tables) {
		return false
	}
	for i := range h.Tables {
		if !h.Tables[i].equal(&o.Tables[i]) {
			return false
		}
	}
	return true
}

// NumEntries is the total number of LUT entries over all tables.
func (h *Hash) NumEntries() int {
	if len(h.offsets) != len(h.Tables)+1 {
		h.index()
	}
	return h.offsets[len(h.Tables)]
}

// Entry converts a flat entry index to a (table, address) pair. Flat
// indices run over table 0 first.
func (h *Hash) Entry(i int) (table, addr int) {
	if len(h.offsets) != len(h.Tables)+1 {
		h.index()
	}
	lo, hi := 0, len(h.Tables)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if h.offsets[mid] <= i {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, i - h.offsets[lo]
}

// Index converts a (table, address) pair to a flat entry index.
func (h *Hash) Index(table, addr int) int {
	if len(h.offsets) != len(h.Tables)+1 {
		h.index()
	}
	return h.offsets[table] + addr
}

// At returns the entry at (table, addr).
func (h *Hash) At(table, addr int) bitvector.Bit {
	return h.Tables[table].LUT[addr]
}

// Set overwrites the entry at (table, addr).
func (h *Hash) Set(table, addr int, b bitvector.Bit) {
	h.Tables[table].LUT[addr] = b
}

// FlipEntry toggles a bound entry. It panics with a constraint error if the
// entry is unbound.
func (h *Hash) FlipEntry(table, addr int) {
	lut := h.Tables[table].LUT
	switch lut[addr] {
	case bitvector.Zero:
		lut[addr] = bitvector.One
	case bitvector.One:
		lut[addr] = bitvector.Zero
	default:
		panic(failure.Constraintf("cannot flip unbound entry (%d,%d)", table, addr))
	}
}

// IsConcrete reports whether every entry is bound.
func (h *Hash) IsConcrete() bool {
	return h.Unbound() == 0
}

// Unbound counts the unbound entries.
func (h *Hash) Unbound() int {
	n := 0
	for _, t := range h.Tables {
		for _, b := range t.LUT {
			if b == bitvector.DontCare {
				n++
			}
		}
	}
	return n
}

// UnbindAll marks every entry unbound.
func (h *Hash) UnbindAll() {
	for _, t := range h.Tables {
		for j := range t.LUT {
			t.LUT[j] = bitvector.DontCare
		}
	}
}

// BindRandom binds each unbound entry with probability prob to a random
// value.
func (h *Hash) BindRandom(rng *rand.Rand, prob float64) {
	for _, t := range h.Tables {
		for j, b := range t.LUT {
			if b == bitvector.DontCare && rng.Float64() < prob {
				t.LUT[j] = bitvector.Bit(rng.Intn(2))
			}
		}
	}
}

// Randomize overwrites every entry with a random value.
func (h *Hash) Randomize(rng *rand.Rand) {
	for _, t := range h.Tables {
		for j := range t.LUT {
			t.LUT[j] = bitvector.Bit(rng.Intn(2))
		}
	}
}

// Eval hashes a key. Every addressed entry must be bound and every selected
// key bit concrete.
func (h *Hash) Eval(key bitvector.Vector) (uint32, error) {
	var acc uint32
	for i := range h.Tables {
		t := &h.Tables[i]
		addr, err := t.Address(key)
		if err != nil {
			return 0, err
		}
		switch t.LUT[addr] {
		case bitvector.One:
			acc |= 1 << uint(i)
		case bitvector.Zero:
		default:
			return 0, failure.Constraintf("entry (%d,%d) is unbound while hashing %s", i, addr, key)
		}
	}
	return acc, nil
}

// EvalUint hashes a concrete key held in x.
func (h *Hash) EvalUint(x uint64) (uint32, error) {
	var acc uint32
	for i := range h.Tables {
		t := &h.Tables[i]
		addr := t.AddressUint(x)
		switch t.LUT[addr] {
		case bitvector.One:
			acc |= 1 << uint(i)
		case bitvector.Zero:
		default:
			return 0, failure.Constraintf("entry (%d,%d) is unbound while hashing %#x", i, addr, x)
		}
	}
	return acc, nil
}
