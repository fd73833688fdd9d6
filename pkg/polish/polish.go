// Package polish repairs a nearly solved bit hash by unbinding the LUT
// entries involved in collisions, plus a growing random fraction of the
// rest, and handing the open entries to the SAT solver.
package polish

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/m8pple/fpga-perfect-hash/pkg/bithash"
	"github.com/m8pple/fpga-perfect-hash/pkg/bitvector"
	"github.com/m8pple/fpga-perfect-hash/pkg/cnf"
	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

type polisher struct {
	solver    cnf.Solver
	rng       *rand.Rand
	log       logrus.FieldLogger
	groupSize int
	encode    []cnf.EncodeOption
	maxHash   *uint32
	start     float64
	growth    float64
}

type Option func(p *polisher) error

func WithSolver(s cnf.Solver) Option {
	return func(p *polisher) error {
		p.solver = s
		return nil
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(p *polisher) error {
		p.rng = rng
		return nil
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(p *polisher) error {
		p.log = log
		return nil
	}
}

// WithGroupSize allows up to g key groups per hash value.
func WithGroupSize(g int) Option {
	return func(p *polisher) error {
		if g < 1 {
			return failure.Constraintf("group size must be at least 1, got %d", g)
		}
		p.groupSize = g
		return nil
	}
}

// WithMaxHash requires every key group to hash to at most m.
func WithMaxHash(m uint32) Option {
	return func(p *polisher) error {
		p.encode = append(p.encode, cnf.WithMaxHash(m))
		p.maxHash = &m
		return nil
	}
}

// WithSchedule sets the first fraction of entries to unbind and the factor
// it grows by after each unsatisfiable attempt.
func WithSchedule(start, growth float64) Option {
	return func(p *polisher) error {
		if start <= 0 || start > 1 || growth <= 1 {
			return failure.Constraintf("invalid polish schedule start=%v growth=%v", start, growth)
		}
		p.start, p.growth = start, growth
		return nil
	}
}

var defaults = []Option{
	func(p *polisher) error {
		if p.solver == nil {
			s, err := cnf.NewGiniSolver()
			if err != nil {
				return err
			}
			p.solver = s
		}
		return nil
	},
	func(p *polisher) error {
		if p.rng == nil {
			p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		if p.log == nil {
			log := logrus.New()
			log.SetLevel(logrus.WarnLevel)
			p.log = log
		}
		return nil
	},
	func(p *polisher) error {
		if p.groupSize == 0 {
			p.groupSize = 1
		}
		if p.start == 0 {
			p.start, p.growth = 0.01, 1.5
		}
		return nil
	},
}

// Polish returns h itself if it already solves keys, otherwise a repaired
// copy. It fails with failure.Unsatisfiable when even a fully unbound
// structure with h's selectors has no solution, and stops at the first
// resource exhaustion.
func Polish(ctx context.Context, h *bithash.Hash, keys *keyset.Set, options ...Option) (*bithash.Hash, error) {
	p := polisher{}
	for _, option := range append(options, defaults...) {
		if err := option(&p); err != nil {
			return nil, err
		}
	}
	return p.polish(ctx, h, keys)
}

func (p *polisher) polish(ctx context.Context, h *bithash.Hash, keys *keyset.Set) (*bithash.Hash, error) {
	if h.IsConcrete() {
		ok, err := h.IsSolution(keys, p.groupSize)
		if err != nil {
			return nil, err
		}
		if ok && p.maxHash != nil {
			m, err := h.MaxHash(keys)
			if err != nil {
				return nil, err
			}
			ok = m <= *p.maxHash
		}
		if ok {
			return h, nil
		}
	}

	clashes := Clashes(h, keys, p.groupSize)
	ranked := Entries(h, clashes)
	p.log.WithFields(logrus.Fields{"keys": len(clashes), "entries": len(ranked)}).Info("clashes")
	for _, c := range clashes {
		p.log.WithFields(logrus.Fields{"key": c.Key, "count": c.Count}).Debug("clash key")
	}

	options := append([]cnf.EncodeOption{cnf.WithGroupSize(p.groupSize)}, p.encode...)
	total := float64(h.NumEntries())
	for fraction := p.start; ; fraction *= p.growth {
		last := fraction >= 1
		res := h.Clone()
		if last {
			res.UnbindAll()
		} else {
			unbind(p.rng, res, ranked, fraction, fraction*total)
		}
		log := p.log.WithFields(logrus.Fields{"fraction": fraction, "open": res.Unbound()})

		out, err := cnf.Solve(ctx, p.solver, res, keys, options...)
		switch {
		case err == nil:
			log.Info("polished")
			return out, nil
		case failure.IsUnsatisfiable(err):
			log.Debug("unsatisfiable")
			if last {
				return nil, errors.Wrap(err, "polish exhausted every fraction")
			}
		default:
			return nil, err
		}
	}
}

// unbind opens the highest ranked entries, up to todo of them, then opens
// each remaining entry with probability fraction while the count is below
// todo.
func unbind(rng *rand.Rand, h *bithash.Hash, ranked []Entry, fraction, todo float64) {
	done := 0.0
	for _, e := range ranked {
		if done >= todo {
			break
		}
		h.Set(e.Table, e.Addr, bitvector.DontCare)
		done++
	}
	for t := range h.Tables {
		for a := range h.Tables[t].LUT {
			if done >= todo {
				return
			}
			if h.At(t, a) != bitvector.DontCare && rng.Float64() < fraction {
				h.Set(t, a, bitvector.DontCare)
				done++
			}
		}
	}
}

// Clash is a key group involved in a collision.
type Clash struct {
	Key   bitvector.Vector
	Count int
}

// Clashes ranks key groups by collision participation: the number of other
// groups sharing their bucket once the bucket is over groupSize, plus the
// number of variants disagreeing with the group's first variant. Groups
// that cannot be evaluated are skipped.
func Clashes(h *bithash.Hash, keys *keyset.Set, groupSize int) []Clash {
	buckets := map[uint32][]int{}
	var groups []Clash
	for _, k := range keys.Keys() {
		c := Clash{Key: k}
		var first uint32
		ok := true
		it := k.Variants()
		for it.Next() {
			v, err := h.Eval(it.Value())
			if err != nil {
				ok = false
				break
			}
			if it.Index() == 0 {
				first = v
			} else if v != first {
				c.Count++
			}
		}
		if !ok {
			continue
		}
		buckets[first] = append(buckets[first], len(groups))
		groups = append(groups, c)
	}
	for _, members := range buckets {
		if len(members) <= groupSize {
			continue
		}
		for _, i := range members {
			groups[i].Count += len(members) - 1
		}
	}

	var out []Clash
	for _, c := range groups {
		if c.Count > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Entry is a LUT entry with its aggregated clash involvement.
type Entry struct {
	Table int
	Addr  int
	Count int
}

// Entries ranks the LUT entries read by clashing keys, weighting each by
// the participation of the keys reading it.
func Entries(h *bithash.Hash, clashes []Clash) []Entry {
	counts := map[[2]int]int{}
	for _, c := range clashes {
		it := c.Key.Variants()
		for it.Next() {
			for t := range h.Tables {
				a, err := h.Tables[t].Address(it.Value())
				if err != nil {
					continue
				}
				counts[[2]int{t, a}] += c.Count
			}
		}
	}
	out := make([]Entry, 0, len(counts))
	for k, n := range counts {
		out = append(out, Entry{Table: k[0], Addr: k[1], Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Table != out[j].Table {
			return out[i].Table < out[j].Table
		}
		return out[i].Addr < out[j].Addr
	})
	return out
}
