package search

import (
	"github.com/sirupsen/logrus"

	"github.com/m8pple/fpga-perfect-hash/pkg/evaluator"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

// MaxGreedyK is the deepest exhaustive neighbourhood Greedy searches.
const MaxGreedyK = 4

// Greedy tries every set of k distinct bits and applies the set giving the
// lowest score, if that score is strictly below the current one. It reports
// whether the structure changed.
func Greedy(ev *evaluator.Evaluator, k, g int) (bool, error) {
	if k < 1 || k > MaxGreedyK {
		return false, failure.Constraintf("greedy depth must be in [1,%d], got %d", MaxGreedyK, k)
	}
	n := ev.BitCount()
	best := ev.Eval(g)
	var bestSet []int
	set := make([]int, 0, k)

	var visit func(from int)
	visit = func(from int) {
		if len(set) == k {
			if score := ev.Eval(g); score < best {
				best = score
				bestSet = append(bestSet[:0], set...)
			}
			return
		}
		for i := from; i <= n-(k-len(set)); i++ {
			ev.FlipBit(i)
			set = append(set, i)
			visit(i + 1)
			set = set[:len(set)-1]
			ev.FlipBit(i)
		}
	}
	visit(0)

	for _, i := range bestSet {
		ev.FlipBit(i)
	}
	return bestSet != nil, nil
}

// Descent applies greedy-1 until it stalls, escalating to deeper greedy
// neighbourhoods up to MaxK, and restarts from a fresh random structure
// when even the deepest finds no improvement.
func Descent(s *Session, ev *evaluator.Evaluator) (*Result, error) {
	s.begin("descent")
	g := s.Params.GroupSize
	best := ev.Hash().Clone()
	eBest := ev.Eval(g)
	s.improved(eBest)

	for eBest != 0 {
		moved := false
		for k := 1; k <= s.Params.MaxK && !moved; k++ {
			var err error
			if moved, err = Greedy(ev, k, g); err != nil {
				return nil, err
			}
		}
		if score := ev.Eval(g); score < eBest {
			eBest = score
			best = ev.Hash().Clone()
			s.improved(eBest)
		}
		if !moved && eBest != 0 {
			ev.Hash().Randomize(s.Rand)
			if err := ev.Sync(); err != nil {
				return nil, err
			}
			s.restart()
		}
		s.report(logrus.Fields{"score": ev.Eval(g), "best": eBest})
		if s.step() {
			break
		}
	}
	return s.finish(ev.Keys(), best, eBest)
}
