package search

import (
	"github.com/pkg/errors"

	"github.com/m8pple/fpga-perfect-hash/pkg/bithash"
	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
	"github.com/m8pple/fpga-perfect-hash/pkg/metrics"
)

// Result is the best structure a strategy found.
type Result struct {
	Hash   *bithash.Hash
	Score  int
	Tries  int
	Solved bool
}

// finish verifies a solved result, or reports the best score when the
// budget ran out first.
func (s *Session) finish(keys *keyset.Set, best *bithash.Hash, score int) (*Result, error) {
	metrics.AddTries(s.method, s.tries-s.reported)
	s.reported = s.tries
	metrics.SetBestScore(s.method, score)

	r := &Result{Hash: best, Score: score, Tries: s.tries, Solved: score == 0}
	if !r.Solved {
		return r, &failure.BudgetExhausted{BestScore: score, Tries: s.tries}
	}
	ok, err := best.IsSolution(keys, s.Params.GroupSize)
	if err != nil {
		return nil, errors.Wrap(err, "verifying solution")
	}
	if !ok {
		return nil, errors.Errorf("internal error: %s reached score 0 without a valid solution", s.method)
	}
	return r, nil
}
