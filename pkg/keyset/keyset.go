// Package keyset holds the closed set of key patterns a hash is built for,
// together with the value each key maps to.
package keyset

import (
	"sort"

	"github.com/m8pple/fpga-perfect-hash/pkg/bitvector"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

// Entry maps a key pattern to a value. Both may contain don't-care bits.
type Entry struct {
	Key   bitvector.Vector
	Value bitvector.Vector
}

// Set is a validated collection of entries. No two key patterns share a
// concrete variant. Entries are kept in key order.
type Set struct {
	entries    []Entry
	keyWidth   int
	valueWidth int
	concrete   bool
	distinct   int
}

// New validates entries and returns the resulting set. Duplicate keys and
// overlapping key groups are format errors.
func New(entries []Entry) (*Set, error) {
	s := &Set{entries: append([]Entry(nil), entries...), concrete: true}
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].Key.Less(s.entries[j].Key)
	})
	for i, e := range s.entries {
		if i > 0 && s.entries[i-1].Key.Equal(e.Key) {
			return nil, failure.Formatf("duplicate key %s", e.Key)
		}
		// Pairwise is fine here; key sets are small by construction.
		for _, o := range s.entries[:i] {
			if o.Key.Overlaps(e.Key) {
				return nil, failure.Formatf("keys %s and %s are in different groups but overlap", o.Key, e.Key)
			}
		}
		if e.Key.Len() > s.keyWidth {
			s.keyWidth = e.Key.Len()
		}
		if e.Value.Len() > s.valueWidth {
			s.valueWidth = e.Value.Len()
		}
		s.concrete = s.concrete && e.Key.IsConcrete()
		s.distinct += e.Key.VariantsCount()
	}
	return s, nil
}

// FromKeys builds a set whose values are all zero.
func FromKeys(keys ...bitvector.Vector) (*Set, error) {
	entries := make([]Entry, len(keys))
	for i, k := range keys {
		entries[i].Key = k
	}
	return New(entries)
}

// Entries returns the entries in key order. The slice must not be modified.
func (s *Set) Entries() []Entry {
	return s.entries
}

// Keys returns the key patterns in order.
func (s *Set) Keys() []bitvector.Vector {
	res := make([]bitvector.Vector, len(s.entries))
	for i, e := range s.entries {
		res[i] = e.Key
	}
	return res
}

// Len is the number of key groups.
func (s *Set) Len() int {
	return len(s.entries)
}

// DistinctKeys is the number of concrete keys over all groups.
func (s *Set) DistinctKeys() int {
	return s.distinct
}

// HasConcreteKeys reports whether no key has don't-care bits.
func (s *Set) HasConcreteKeys() bool {
	return s.concrete
}

// KeyWidth is the widest key length.
func (s *Set) KeyWidth() int {
	return s.keyWidth
}

// ValueWidth is the widest value length.
func (s *Set) ValueWidth() int {
	return s.valueWidth
}

// Lookup returns the value of the group containing the concrete key k.
func (s *Set) Lookup(k bitvector.Vector) (bitvector.Vector, bool) {
	for _, e := range s.entries {
		if e.Key.Overlaps(k) {
			return e.Value, true
		}
	}
	return bitvector.Vector{}, false
}

// Equal reports whether s and o hold the same entries.
func (s *Set) Equal(o *Set) bool {
	if len(s.entries) != len(o.entries) {
		return false
	}
	for i, e := range s.entries {
		if !e.Key.Equal(o.entries[i].Key) || !e.Value.Equal(o.entries[i].Value) {
			return false
		}
	}
	return true
}
