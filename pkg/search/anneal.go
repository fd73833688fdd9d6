package search

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/m8pple/fpga-perfect-hash/pkg/evaluator"
)

// Anneal runs simulated annealing from the evaluator's current structure.
//
// Each try flips 3+ceil(-log2(u)) random bits, stopping early once the
// score drops below the score before the try. Worse moves are accepted with
// probability exp(-delta/T), equal moves with probability 1/2. The
// temperature decays every TriesPerLevel tries; once it underflows, the
// start temperature decays too and the search restarts from an elite
// structure. Every new best is polished with greedy-1.
func Anneal(s *Session, ev *evaluator.Evaluator) (*Result, error) {
	s.begin("anneal")
	p := s.Params
	g := p.GroupSize

	best := ev.Hash().Clone()
	eBest := ev.Eval(g)
	elites := newPool(p.EliteSize)
	elites.add(eBest, best)
	s.improved(eBest)

	startT := p.StartTemperature
	temperature := startT
	accept := func(prev, curr int) float64 {
		switch {
		case curr < prev:
			return 1
		case curr == prev:
			return 0.5
		default:
			return math.Exp(float64(prev-curr) / temperature)
		}
	}

	var flips []int
	for eBest != 0 {
		prev := ev.Eval(g)
		curr := prev

		n := 3 + int(math.Ceil(-math.Log2(1-s.Rand.Float64())))
		flips = flips[:0]
		for i := 0; i < n; i++ {
			b := s.Rand.Intn(ev.BitCount())
			ev.FlipBit(b)
			flips = append(flips, b)
			if curr = ev.Eval(g); curr < prev {
				break
			}
		}

		switch {
		case curr < eBest:
			if _, err := Greedy(ev, 1, g); err != nil {
				return nil, err
			}
			curr = ev.Eval(g)
			flips = flips[:0]
			eBest = curr
			best = ev.Hash().Clone()
			elites.reset(eBest)
			elites.add(eBest, best)
			s.improved(eBest)
		case curr == eBest:
			elites.add(curr, ev.Hash())
		}

		if s.Rand.Float64() >= accept(prev, curr) {
			for i := len(flips) - 1; i >= 0; i-- {
				ev.FlipBit(flips[i])
			}
		}

		stop := s.step()
		if s.tries%p.TriesPerLevel == 0 {
			temperature *= p.Cooling
			if temperature < p.MinTemperature {
				startT *= p.Cooling
				temperature = startT
				if err := ev.Load(elites.biased(s.Rand)); err != nil {
					return nil, err
				}
				s.restart()
			}
			s.report(logrus.Fields{"best": eBest, "score": prev, "elites": elites.len(), "temperature": temperature})
		}
		if stop {
			break
		}
	}
	return s.finish(ev.Keys(), best, eBest)
}
