// Package cnf encodes the search for a bit hash as a boolean satisfiability
// problem over its unbound LUT entries and solves it with gini.
package cnf

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/m8pple/fpga-perfect-hash/pkg/bithash"
)

// Entry ties an unbound LUT entry to its variable.
type Entry struct {
	Table int
	Addr  int
	Lit   z.Lit
}

// Problem is a CNF formula whose variables include one per unbound LUT
// entry read by some key. Further variables name the gates of the
// cardinality and comparison circuits. Variable 1 is reserved for the
// circuit's constant and never occurs in a clause.
type Problem struct {
	c       *logic.C
	hash    *bithash.Hash
	entries []Entry
	index   map[[2]int]int
	clauses [][]z.Lit
	roots   []z.Lit
	pending []z.Lit

	conflict string
}

func newProblem(h *bithash.Hash) *Problem {
	return &Problem{
		c:     logic.NewCCap(h.NumEntries() * 2),
		hash:  h,
		index: map[[2]int]int{},
	}
}

// Hash is the structure the problem was encoded from.
func (p *Problem) Hash() *bithash.Hash {
	return p.hash
}

// Entries lists the LUT entries that received a variable.
func (p *Problem) Entries() []Entry {
	return p.entries
}

// NumVars is the largest variable index in use.
func (p *Problem) NumVars() int {
	return p.c.Len() - 1
}

// Clauses returns the clause list. It must not be modified.
func (p *Problem) Clauses() [][]z.Lit {
	return p.clauses
}

// Trivial reports why the problem is unsatisfiable without search, or the
// empty string.
func (p *Problem) Trivial() string {
	return p.conflict
}

// entry returns the variable of LUT entry (table, addr), creating it on
// first use.
func (p *Problem) entry(table, addr int) z.Lit {
	k := [2]int{table, addr}
	if i, ok := p.index[k]; ok {
		return p.entries[i].Lit
	}
	m := p.c.Lit()
	p.index[k] = len(p.entries)
	p.entries = append(p.entries, Entry{Table: table, Addr: addr, Lit: m})
	return m
}

// Add implements inter.Adder so gini circuits can emit into the problem.
func (p *Problem) Add(m z.Lit) {
	if m != z.LitNull {
		p.pending = append(p.pending, m)
		return
	}
	p.addClause(p.pending...)
	p.pending = p.pending[:0]
}

// addClause folds the circuit constants: a clause holding true is dropped,
// false literals are removed, and an empty result makes the problem
// trivially unsatisfiable.
func (p *Problem) addClause(ms ...z.Lit) {
	out := make([]z.Lit, 0, len(ms))
	for _, m := range ms {
		switch m {
		case p.c.T:
			return
		case p.c.F:
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		if p.conflict == "" {
			p.conflict = "empty clause"
		}
		return
	}
	p.clauses = append(p.clauses, out)
}

// assert requires the circuit output m to hold. An output folded to false
// leaves the problem trivially unsatisfiable.
func (p *Problem) assert(m z.Lit) {
	if m != p.c.T && m != p.c.F {
		p.roots = append(p.roots, m)
	}
	p.addClause(m)
}

// emitCircuit adds the defining clauses of every gate reachable from an
// asserted output.
func (p *Problem) emitCircuit() {
	if len(p.roots) == 0 {
		return
	}
	p.c.CnfSince(p, nil, p.roots...)
}

// Simplify sorts each clause, removes repeated literals, drops tautologies
// and duplicate clauses. It returns the number of clauses removed.
func (p *Problem) Simplify() int {
	seen := make(map[string]struct{}, len(p.clauses))
	out := p.clauses[:0]
	removed := 0
	for _, cl := range p.clauses {
		sort.Slice(cl, func(i, j int) bool { return cl[i] < cl[j] })
		n, taut := 0, false
		for i, m := range cl {
			if i > 0 && m == cl[n-1] {
				continue
			}
			if i > 0 && m.Var() == cl[n-1].Var() {
				taut = true
				break
			}
			cl[n] = m
			n++
		}
		if taut {
			removed++
			continue
		}
		cl = cl[:n]
		key := fmt.Sprint(cl)
		if _, dup := seen[key]; dup {
			removed++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cl)
	}
	p.clauses = out
	return removed
}

// Satisfies reports whether a makes every clause true. Unconstrained
// variables satisfy no literal.
func (p *Problem) Satisfies(a Assignment) bool {
	for _, cl := range p.clauses {
		ok := false
		for _, m := range cl {
			if a.Lit(m) == True {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// WriteDimacs prints the problem in DIMACS CNF format. A trivially
// unsatisfiable problem is written with one empty clause.
func (p *Problem) WriteDimacs(w io.Writer) error {
	bw := bufio.NewWriter(w)
	n := len(p.clauses)
	if p.conflict != "" {
		n++
	}
	fmt.Fprintf(bw, "c perfect-hash: %d lut variables\n", len(p.entries))
	for _, e := range p.entries {
		fmt.Fprintf(bw, "c lut %d %d %d\n", e.Table, e.Addr, e.Lit.Dimacs())
	}
	fmt.Fprintf(bw, "p cnf %d %d\n", p.NumVars(), n)
	for _, cl := range p.clauses {
		for _, m := range cl {
			fmt.Fprintf(bw, "%d ", m.Dimacs())
		}
		fmt.Fprintln(bw, "0")
	}
	if p.conflict != "" {
		fmt.Fprintln(bw, "0")
	}
	return bw.Flush()
}
