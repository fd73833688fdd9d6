package search

import (
	"math/rand"
	"sort"

	"github.com/mitchellh/hashstructure"

	"github.com/m8pple/fpga-perfect-hash/pkg/bithash"
)

type member struct {
	score int
	key   uint64
	hash  *bithash.Hash
}

// pool keeps the lowest scoring distinct structures seen, best first.
type pool struct {
	max     int
	members []member
}

func newPool(max int) *pool {
	return &pool{max: max}
}

func fingerprint(h *bithash.Hash) uint64 {
	key, err := hashstructure.Hash(h.Tables, nil)
	if err != nil {
		// Tables hold only ints, which always hash.
		panic(err)
	}
	return key
}

// add stores a copy of h unless an identical structure is already held. It
// reports whether h was added.
func (p *pool) add(score int, h *bithash.Hash) bool {
	key := fingerprint(h)
	for _, m := range p.members {
		if m.key == key && m.hash.Equal(h) {
			return false
		}
	}
	p.members = append(p.members, member{score: score, key: key, hash: h.Clone()})
	sort.SliceStable(p.members, func(i, j int) bool {
		return p.members[i].score < p.members[j].score
	})
	if len(p.members) > p.max {
		p.members = p.members[:p.max]
	}
	return p.contains(key, h)
}

func (p *pool) contains(key uint64, h *bithash.Hash) bool {
	for _, m := range p.members {
		if m.key == key && m.hash.Equal(h) {
			return true
		}
	}
	return false
}

// reset drops every member worse than score.
func (p *pool) reset(score int) {
	n := 0
	for _, m := range p.members {
		if m.score <= score {
			p.members[n] = m
			n++
		}
	}
	p.members = p.members[:n]
}

func (p *pool) len() int {
	return len(p.members)
}

// random picks a member uniformly.
func (p *pool) random(rng *rand.Rand) *bithash.Hash {
	return p.members[rng.Intn(len(p.members))].hash
}

// biased picks among the best-scoring members most of the time, otherwise
// uniformly.
func (p *pool) biased(rng *rand.Rand) *bithash.Hash {
	if rng.Float64() < 0.9 {
		n := 1
		for n < len(p.members) && p.members[n].score == p.members[0].score {
			n++
		}
		return p.members[rng.Intn(n)].hash
	}
	return p.random(rng)
}
