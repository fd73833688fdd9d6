package search

import (
	"sort"

	"github.com/m8pple/fpga-perfect-hash/pkg/evaluator"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

// Strategy searches from the evaluator's current structure.
type Strategy func(s *Session, ev *evaluator.Evaluator) (*Result, error)

var strategies = map[string]Strategy{
	"anneal":  Anneal,
	"grasp":   GRASP,
	"descent": Descent,
}

// Lookup returns the strategy registered under name.
func Lookup(name string) (Strategy, error) {
	st, ok := strategies[name]
	if !ok {
		return nil, failure.Constraintf("unknown search strategy %q (known: %v)", name, Names())
	}
	return st, nil
}

// Names lists the registered strategies.
func Names() []string {
	var names []string
	for n := range strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
