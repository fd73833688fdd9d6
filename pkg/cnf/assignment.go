package cnf

import (
	"github.com/go-air/gini/z"

	"github.com/m8pple/fpga-perfect-hash/pkg/bithash"
	"github.com/m8pple/fpga-perfect-hash/pkg/bitvector"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

// Value is a variable's value in a model.
type Value int8

const (
	Unconstrained Value = iota
	False
	True
)

func (v Value) String() string {
	switch v {
	case False:
		return "false"
	case True:
		return "true"
	}
	return "unconstrained"
}

// Assignment holds one value per variable, indexed by variable. Index 0 is
// unused.
type Assignment []Value

// Var is the value of variable v.
func (a Assignment) Var(v z.Var) Value {
	if int(v) >= len(a) {
		return Unconstrained
	}
	return a[v]
}

// Lit is the value of literal m.
func (a Assignment) Lit(m z.Lit) Value {
	v := a.Var(m.Var())
	if v == Unconstrained || m.IsPos() {
		return v
	}
	if v == True {
		return False
	}
	return True
}

// Substitute binds the unbound entries of the problem's hash from a.
// Entries the model leaves unconstrained, and unbound entries no key reads,
// are bound to 0.
func Substitute(p *Problem, a Assignment) (*bithash.Hash, error) {
	if !p.Satisfies(a) {
		return nil, failure.Constraintf("assignment does not satisfy the problem")
	}
	h := p.hash.Clone()
	for _, e := range p.entries {
		b := bitvector.Zero
		if a.Lit(e.Lit) == True {
			b = bitvector.One
		}
		h.Set(e.Table, e.Addr, b)
	}
	for t := range h.Tables {
		for addr, b := range h.Tables[t].LUT {
			if b == bitvector.DontCare {
				h.Set(t, addr, bitvector.Zero)
			}
		}
	}
	return h, nil
}
