package cnf

import (
	"fmt"

	"github.com/go-air/gini/z"

	"github.com/m8pple/fpga-perfect-hash/pkg/bithash"
	"github.com/m8pple/fpga-perfect-hash/pkg/bitvector"
	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

// DefaultPairLimit is the number of output bits two key groups may both
// leave open before their distinctness is coded through xor gates instead
// of the expanded clause product.
const DefaultPairLimit = 6

type encoding struct {
	groupSize  int
	maxHash    uint32
	hasMaxHash bool
	pairLimit  int
}

type EncodeOption func(e *encoding)

// WithGroupSize allows up to g key groups per hash value.
func WithGroupSize(g int) EncodeOption {
	return func(e *encoding) {
		e.groupSize = g
	}
}

// WithMaxHash requires every key group to hash to at most m.
func WithMaxHash(m uint32) EncodeOption {
	return func(e *encoding) {
		e.maxHash = m
		e.hasMaxHash = true
	}
}

// WithPairLimit overrides DefaultPairLimit.
func WithPairLimit(n int) EncodeOption {
	return func(e *encoding) {
		e.pairLimit = n
	}
}

// Encode builds the problem of binding every unbound entry of h so that h
// is a solution for keys. Bound entries of h are taken as given.
func Encode(h *bithash.Hash, keys *keyset.Set, options ...EncodeOption) (*Problem, error) {
	e := encoding{groupSize: 1, pairLimit: DefaultPairLimit}
	for _, option := range options {
		option(&e)
	}
	if e.groupSize < 1 {
		return nil, failure.Constraintf("group size must be at least 1, got %d", e.groupSize)
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if keys.KeyWidth() > h.WI {
		return nil, failure.Constraintf("keys are %d bits wide but the hash reads %d", keys.KeyWidth(), h.WI)
	}

	p := newProblem(h)
	hashes := make([][]z.Lit, 0, keys.Len())
	for _, k := range keys.Keys() {
		it := k.Variants()
		it.Next()
		h0, err := p.hashOf(it.Value())
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h0)
		for it.Next() {
			hx, err := p.hashOf(it.Value())
			if err != nil {
				return nil, err
			}
			for i := range h0 {
				if h0[i] == hx[i] {
					continue
				}
				p.addClause(h0[i], hx[i].Not())
				p.addClause(h0[i].Not(), hx[i])
			}
		}
		if p.conflict != "" {
			p.conflict = "variants of key " + k.String() + " always hash differently"
			return p, nil
		}
	}

	if e.groupSize == 1 {
		for i := 0; i < len(hashes); i++ {
			for j := i + 1; j < len(hashes); j++ {
				p.distinct(hashes[i], hashes[j], e.pairLimit)
				if p.conflict != "" {
					p.conflict = "keys " + keys.Keys()[i].String() + " and " + keys.Keys()[j].String() + " always collide"
					return p, nil
				}
			}
		}
	} else {
		p.bounded(hashes, e.groupSize)
		if p.conflict != "" {
			p.conflict = fmt.Sprintf("more than %d key groups always share a hash", e.groupSize)
			return p, nil
		}
	}

	if e.hasMaxHash {
		for i, hs := range hashes {
			p.assert(p.lessOrEqual(hs, e.maxHash))
			if p.conflict != "" {
				p.conflict = fmt.Sprintf("key %s always hashes above %d", keys.Keys()[i], e.maxHash)
				return p, nil
			}
		}
	}
	p.emitCircuit()
	return p, nil
}

// hashOf returns one literal per output bit for a concrete key: the circuit
// constants for bound entries, the entry's variable otherwise.
func (p *Problem) hashOf(key bitvector.Vector) ([]z.Lit, error) {
	out := make([]z.Lit, len(p.hash.Tables))
	for i := range p.hash.Tables {
		t := &p.hash.Tables[i]
		addr, err := t.Address(key)
		if err != nil {
			return nil, err
		}
		switch t.LUT[addr] {
		case bitvector.Zero:
			out[i] = p.c.F
		case bitvector.One:
			out[i] = p.c.T
		default:
			out[i] = p.entry(i, addr)
		}
	}
	return out, nil
}

func (p *Problem) isConst(m z.Lit) bool {
	return m == p.c.T || m == p.c.F
}

// distinct requires the hashes a and b to differ in at least one bit. The
// clauses are the product of per-bit alternatives, so each bit open on both
// sides doubles them; past limit such bits the pair is coded as an
// or of xor gates instead.
func (p *Problem) distinct(a, b []z.Lit, limit int) {
	open := 0
	for i := range a {
		x, y := a[i], b[i]
		if x == y {
			continue
		}
		if x == y.Not() {
			return
		}
		if !p.isConst(x) && !p.isConst(y) {
			open++
		}
	}

	if open > limit {
		var diffs []z.Lit
		for i := range a {
			if a[i] != b[i] {
				diffs = append(diffs, p.c.Xor(a[i], b[i]))
			}
		}
		p.assert(p.c.Ors(diffs...))
		return
	}

	acc := [][]z.Lit{nil}
	for i := range a {
		x, y := a[i], b[i]
		if x == y {
			continue
		}
		if p.isConst(x) {
			x, y = y, x
		}
		if p.isConst(y) {
			// x must take the opposite of the constant y.
			m := x
			if y == p.c.T {
				m = x.Not()
			}
			for j := range acc {
				acc[j] = append(acc[j], m)
			}
			continue
		}
		n := len(acc)
		for j := 0; j < n; j++ {
			other := make([]z.Lit, len(acc[j]), len(acc[j])+2)
			copy(other, acc[j])
			acc = append(acc, append(other, x.Not(), y.Not()))
			acc[j] = append(acc[j], x, y)
		}
	}
	for _, cl := range acc {
		p.addClause(cl...)
	}
}

// equal is a gate that holds when hashes a and b agree on every bit.
func (p *Problem) equal(a, b []z.Lit) z.Lit {
	same := make([]z.Lit, len(a))
	for i := range a {
		same[i] = p.c.Xor(a[i], b[i]).Not()
	}
	return p.c.Ands(same...)
}

// bounded requires that no hash value is shared by more than g groups:
// every group agrees with at most g-1 others.
func (p *Problem) bounded(hashes [][]z.Lit, g int) {
	n := len(hashes)
	if n <= g {
		return
	}
	eq := make([][]z.Lit, n)
	for i := range eq {
		eq[i] = make([]z.Lit, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m := p.equal(hashes[i], hashes[j])
			eq[i][j], eq[j][i] = m, m
		}
	}
	for i := 0; i < n; i++ {
		ms := make([]z.Lit, 0, n-1)
		for j := 0; j < n; j++ {
			if j != i {
				ms = append(ms, eq[i][j])
			}
		}
		p.assert(p.c.CardSort(ms).Leq(g - 1))
	}
}

// lessOrEqual is a gate comparing the unsigned value of bits (LSB first)
// with m. From the LSB up, a one bit of m relaxes the comparison to
// "this bit is zero or the lower bits compare", a zero bit tightens it to
// "this bit is zero and the lower bits compare".
func (p *Problem) lessOrEqual(bits []z.Lit, m uint32) z.Lit {
	if len(bits) < 32 && m>>uint(len(bits)) != 0 {
		return p.c.T
	}
	le := p.c.T
	for i, x := range bits {
		if m>>uint(i)&1 == 1 {
			le = p.c.Or(x.Not(), le)
		} else {
			le = p.c.And(x.Not(), le)
		}
	}
	return le
}
