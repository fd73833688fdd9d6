package bithash

import (
	"github.com/m8pple/fpga-perfect-hash/pkg/bitvector"
	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

// GroupHash is the outcome of hashing every variant of one key group.
type GroupHash struct {
	Key        bitvector.Vector
	Hash       uint32
	Consistent bool // all variants hash to Hash
}

// HashGroups hashes every variant of every key group. A group's Hash is the
// hash of its first variant.
func (h *Hash) HashGroups(keys *keyset.Set) ([]GroupHash, error) {
	out := make([]GroupHash, 0, keys.Len())
	for _, k := range keys.Keys() {
		g := GroupHash{Key: k, Consistent: true}
		it := k.Variants()
		for it.Next() {
			v, err := h.Eval(it.Value())
			if err != nil {
				return nil, err
			}
			if it.Index() == 0 {
				g.Hash = v
			} else if v != g.Hash {
				g.Consistent = false
			}
		}
		out = append(out, g)
	}
	return out, nil
}

// IsSolution reports whether every group's variants share one hash and no
// hash value is shared by more than groupSize groups.
func (h *Hash) IsSolution(keys *keyset.Set, groupSize int) (bool, error) {
	if groupSize < 1 {
		return false, failure.Constraintf("group size must be at least 1, got %d", groupSize)
	}
	groups, err := h.HashGroups(keys)
	if err != nil {
		return false, err
	}
	seen := make(map[uint32]int, len(groups))
	for _, g := range groups {
		if !g.Consistent {
			return false, nil
		}
		seen[g.Hash]++
		if seen[g.Hash] > groupSize {
			return false, nil
		}
	}
	return true, nil
}

// MaxHash is the largest hash over all groups. It is meaningful only for a
// structure that evaluates every key.
func (h *Hash) MaxHash(keys *keyset.Set) (uint32, error) {
	groups, err := h.HashGroups(keys)
	if err != nil {
		return 0, err
	}
	var m uint32
	for _, g := range groups {
		if g.Hash > m {
			m = g.Hash
		}
	}
	return m, nil
}

const (
	lutSeed1 = 33554467
	lutSeed2 = 67108879
	tapSeed1 = 134217757
	tapSeed2 = 268435459
)

// EntrySignature is the contribution of LUT entry (table, addr) holding b to
// Signature.
func EntrySignature(table, addr int, b bitvector.Bit) uint64 {
	return (uint64(table)*lutSeed1 + uint64(addr)) * lutSeed2 * uint64(int(b)+2)
}

func tapSignature(table, offset, sel int) uint64 {
	return (uint64(table)*tapSeed1 + uint64(offset)) * tapSeed2 * uint64(sel+1)
}

// Signature is a structural fingerprint: the wrapping sum of one term per
// selector and one per LUT entry, so a single entry change can be applied
// by subtracting the old term and adding the new one.
func (h *Hash) Signature() uint64 {
	var acc uint64
	for i, t := range h.Tables {
		for j, s := range t.Selectors {
			acc += tapSignature(i, j, s)
		}
		for j, b := range t.LUT {
			acc += EntrySignature(i, j, b)
		}
	}
	return acc
}
