package search

import (
	"math"
	"sort"

	"github.com/m8pple/fpga-perfect-hash/pkg/bithash"
	"github.com/m8pple/fpga-perfect-hash/pkg/evaluator"
)

type move struct {
	score int
	bit   int
}

// RandomizedGreedy randomizes the structure then hill climbs: each round
// scores every single-bit flip, keeps the moves scoring at most
// min+alpha*(max-min) for a random alpha, and applies one of them chosen
// uniformly. It stops after MaxStall rounds without a new best, or at
// score zero, and leaves the best structure seen in the evaluator.
func RandomizedGreedy(s *Session, ev *evaluator.Evaluator) error {
	g := s.Params.GroupSize
	n := ev.BitCount()
	for i := 0; i < n; i++ {
		if s.Rand.Intn(2) == 1 {
			ev.FlipBit(i)
		}
	}

	eBest := ev.Eval(g)
	best := ev.Hash().Clone()
	moves := make([]move, 0, n)
	for stall := 0; eBest != 0 && n > 0; {
		moves = moves[:0]
		offset := s.Rand.Intn(n)
		for i := 0; i < n; i++ {
			d := (i + offset) % n
			ev.FlipBit(d)
			moves = append(moves, move{score: ev.Eval(g), bit: d})
			ev.FlipBit(d)
		}
		sort.SliceStable(moves, func(i, j int) bool {
			return moves[i].score < moves[j].score
		})
		eMin, eMax := moves[0].score, moves[len(moves)-1].score

		if eMin < eBest {
			eBest = eMin
			ev.FlipBit(moves[0].bit)
			best = ev.Hash().Clone()
			ev.FlipBit(moves[0].bit)
			stall = 0
		} else if stall++; stall > s.Params.MaxStall {
			break
		}

		limit := float64(eMin) + s.Rand.Float64()*float64(eMax-eMin)
		keep := len(moves)
		for keep > 1 && float64(moves[keep-1].score) > limit {
			keep--
		}
		ev.FlipBit(moves[s.Rand.Intn(keep)].bit)
	}
	return ev.Load(best)
}

// RelinkPath walks from the evaluator's structure to target, at each step
// flipping the differing bit with the lowest resulting score (ties broken
// at random). The best structure seen on the path, including the start, is
// left in the evaluator.
func RelinkPath(s *Session, ev *evaluator.Evaluator, target *bithash.Hash) error {
	g := s.Params.GroupSize
	eTotal := ev.Eval(g)
	best := ev.Hash().Clone()

	var ties []int
	for {
		diff, err := ev.DifferenceIndices(target)
		if err != nil {
			return err
		}
		if len(diff) == 0 {
			break
		}
		eStep := math.MaxInt
		ties = ties[:0]
		for _, d := range diff {
			ev.FlipBit(d)
			e := ev.Eval(g)
			if e < eStep {
				eStep = e
				ties = ties[:0]
			}
			if e == eStep {
				ties = append(ties, d)
			}
			if e < eTotal {
				eTotal = e
				best = ev.Hash().Clone()
			}
			ev.FlipBit(d)
		}
		ev.FlipBit(ties[s.Rand.Intn(len(ties))])
	}
	return ev.Load(best)
}
