// Package evaluator maintains the collision score of a bit hash over a key
// set under single-entry flips, without rehashing every key.
//
// An Evaluator is the only mutator of its structure while it is in use. Any
// change made behind its back must be followed by Sync.
package evaluator

import (
	"github.com/m8pple/fpga-perfect-hash/pkg/bithash"
	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

type entry struct {
	table int
	addr  int
	mask  uint32
	keys  []int // variants whose hash reads this entry
}

// Evaluator tracks every concrete variant of every key group. The first
// variant of each group stands for the group in the bucket histogram; the
// other variants only count as mismatches when they disagree with it.
type Evaluator struct {
	h       *bithash.Hash
	keys    *keyset.Set
	entries []entry

	values  []uint64 // concrete variant values
	leader  []int    // index of the group's first variant
	members [][]int  // per first variant, the group's other variants
	hashes  []uint32

	counts     buckets
	hist       []int // occupancy -> number of buckets
	top        int
	mismatches int
}

// New builds an evaluator over a fully bound structure.
func New(h *bithash.Hash, keys *keyset.Set) (*Evaluator, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if keys.KeyWidth() > h.WI {
		return nil, failure.Constraintf("keys are %d bits wide but the hash reads %d", keys.KeyWidth(), h.WI)
	}
	ev := &Evaluator{
		h:       h,
		keys:    keys,
		entries: make([]entry, h.NumEntries()),
	}
	for i := range ev.entries {
		t, a := h.Entry(i)
		ev.entries[i] = entry{table: t, addr: a, mask: 1 << uint(t)}
	}
	for _, k := range keys.Keys() {
		first := len(ev.values)
		it := k.Variants()
		for it.Next() {
			x, err := it.Value().Uint()
			if err != nil {
				return nil, err
			}
			idx := len(ev.values)
			ev.values = append(ev.values, x)
			ev.leader = append(ev.leader, first)
			ev.members = append(ev.members, nil)
			if idx != first {
				ev.members[first] = append(ev.members[first], idx)
			}
			for t := range h.Tables {
				a := h.Tables[t].AddressUint(x)
				e := &ev.entries[h.Index(t, a)]
				e.keys = append(e.keys, idx)
			}
		}
	}
	ev.hashes = make([]uint32, len(ev.values))
	if err := ev.Sync(); err != nil {
		return nil, err
	}
	return ev, nil
}

// Hash is the observed structure.
func (ev *Evaluator) Hash() *bithash.Hash {
	return ev.h
}

// Keys is the key set the evaluator scores against.
func (ev *Evaluator) Keys() *keyset.Set {
	return ev.keys
}

// BitCount is the number of flippable LUT entries.
func (ev *Evaluator) BitCount() int {
	return len(ev.entries)
}

// NumKeys is the number of tracked concrete variants.
func (ev *Evaluator) NumKeys() int {
	return len(ev.values)
}

// KeyHash is the current hash of tracked variant k.
func (ev *Evaluator) KeyHash(k int) uint32 {
	return ev.hashes[k]
}

// EntryOf returns the (table, address) that flat bit i refers to.
func (ev *Evaluator) EntryOf(i int) (table, addr int) {
	return ev.entries[i].table, ev.entries[i].addr
}

// FlipBit toggles LUT entry i and updates every dependent variant.
func (ev *Evaluator) FlipBit(i int) {
	e := &ev.entries[i]
	ev.h.FlipEntry(e.table, e.addr)
	for _, k := range e.keys {
		old := ev.hashes[k]
		next := old ^ e.mask
		ev.hashes[k] = next
		if l := ev.leader[k]; l != k {
			lh := ev.hashes[l]
			ev.mismatches += b2i(next != lh) - b2i(old != lh)
			continue
		}
		ev.move(old, next)
		for _, m := range ev.members[k] {
			mh := ev.hashes[m]
			ev.mismatches += b2i(mh != next) - b2i(mh != old)
		}
	}
}

func (ev *Evaluator) move(from, to uint32) {
	c := ev.counts.get(from)
	ev.hist[c]--
	if c-1 > 0 {
		ev.hist[c-1]++
	}
	ev.counts.add(from, -1)
	for ev.top > 0 && ev.hist[ev.top] == 0 {
		ev.top--
	}

	c = ev.counts.get(to)
	if c > 0 {
		ev.hist[c]--
	}
	ev.counts.add(to, 1)
	ev.bump(c + 1)
}

func (ev *Evaluator) bump(c int) {
	for len(ev.hist) <= c {
		ev.hist = append(ev.hist, 0)
	}
	ev.hist[c]++
	if c > ev.top {
		ev.top = c
	}
}

// Eval is the collision score for group size g: the number of groups above
// g in every bucket, plus one for every variant that disagrees with its
// group's first variant. Zero means the structure is a solution.
func (ev *Evaluator) Eval(g int) int {
	score := ev.mismatches
	for c := ev.top; c > g; c-- {
		score += ev.hist[c] * (c - g)
	}
	return score
}

// MaxOccupancy is the size of the fullest bucket.
func (ev *Evaluator) MaxOccupancy() int {
	return ev.top
}

// Sync rebuilds all derived state from the structure.
func (ev *Evaluator) Sync() error {
	ev.counts = newBuckets(ev.h.WO)
	ev.hist = []int{0}
	ev.top = 0
	ev.mismatches = 0
	for k, x := range ev.values {
		v, err := ev.h.EvalUint(x)
		if err != nil {
			return err
		}
		ev.hashes[k] = v
	}
	for k, v := range ev.hashes {
		l := ev.leader[k]
		if l != k {
			ev.mismatches += b2i(v != ev.hashes[l])
			continue
		}
		c := ev.counts.get(v)
		if c > 0 {
			ev.hist[c]--
		}
		ev.counts.add(v, 1)
		ev.bump(c + 1)
	}
	return nil
}

// Load copies the entries of src into the observed structure and resyncs.
func (ev *Evaluator) Load(src *bithash.Hash) error {
	if err := ev.h.CopyFrom(src); err != nil {
		return err
	}
	return ev.Sync()
}

// DifferenceIndices lists the flat bits at which the observed structure and
// other differ. Both must share selectors.
func (ev *Evaluator) DifferenceIndices(other *bithash.Hash) ([]int, error) {
	if !ev.h.SameShape(other) {
		return nil, failure.Constraintf("cannot compare structures with different selectors")
	}
	var diff []int
	for i, e := range ev.entries {
		if ev.h.At(e.table, e.addr) != other.At(e.table, e.addr) {
			diff = append(diff, i)
		}
	}
	return diff, nil
}

// EvalFull scores h against keys from scratch with the same definition as
// Evaluator.Eval.
func EvalFull(h *bithash.Hash, keys *keyset.Set, g int) (int, error) {
	counts := map[uint32]int{}
	score := 0
	for _, k := range keys.Keys() {
		var first uint32
		it := k.Variants()
		for it.Next() {
			v, err := h.Eval(it.Value())
			if err != nil {
				return 0, err
			}
			if it.Index() == 0 {
				first = v
				counts[v]++
			} else if v != first {
				score++
			}
		}
	}
	for _, c := range counts {
		if c > g {
			score += c - g
		}
	}
	return score, nil
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
