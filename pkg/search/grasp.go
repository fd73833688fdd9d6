package search

import (
	"github.com/sirupsen/logrus"

	"github.com/m8pple/fpga-perfect-hash/pkg/evaluator"
)

// GRASP alternates randomized greedy construction with path relinking
// toward a random member of an elite pool of at most EliteSize distinct
// structures. Each round is one try.
func GRASP(s *Session, ev *evaluator.Evaluator) (*Result, error) {
	s.begin("grasp")
	g := s.Params.GroupSize

	best := ev.Hash().Clone()
	eBest := ev.Eval(g)
	elites := newPool(s.Params.EliteSize)
	elites.add(eBest, best)
	s.improved(eBest)

	for eBest != 0 {
		if err := RandomizedGreedy(s, ev); err != nil {
			return nil, err
		}
		searched := ev.Eval(g)

		if err := RelinkPath(s, ev, elites.random(s.Rand)); err != nil {
			return nil, err
		}
		curr := ev.Eval(g)
		s.Log.WithFields(logrus.Fields{"searched": searched, "linked": curr}).Trace("round")

		if curr < eBest {
			eBest = curr
			best = ev.Hash().Clone()
			s.improved(eBest)
		}
		elites.add(curr, ev.Hash())

		s.report(logrus.Fields{"best": eBest, "elites": elites.len()})
		if s.step() {
			break
		}
	}
	return s.finish(ev.Keys(), best, eBest)
}
