package main

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/m8pple/fpga-perfect-hash/pkg/cnf"
	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
	"github.com/m8pple/fpga-perfect-hash/pkg/search"
	"github.com/m8pple/fpga-perfect-hash/pkg/taps"
)

const (
	methodCNF         = "cnf"
	methodCNFWeighted = "cnf-weighted"
)

func methods() []string {
	return append([]string{methodCNF, methodCNFWeighted}, search.Names()...)
}

// shapeFlags registers the flags describing the structure to build.
func shapeFlags(cmd *cobra.Command, o *options) {
	f := cmd.Flags()
	f.IntVar(&o.cfg.WO, "wo", o.cfg.WO, "output width in bits, 0 to choose from the number of key groups")
	f.IntVar(&o.cfg.WI, "wi", o.cfg.WI, "input width in bits, 0 to use the key width")
	f.IntVar(&o.cfg.WA, "wa", o.cfg.WA, "maximum number of selectors per table")
	f.IntVar(&o.cfg.GroupSize, "group-size", o.cfg.GroupSize, "key groups allowed to share a hash value")
	f.Var(tapsValue{&o.cfg.Taps}, "taps", "tap selection method")
}

// boundFlags registers the flags limiting the largest hash value.
func boundFlags(cmd *cobra.Command, o *options) {
	f := cmd.Flags()
	f.Var(optionalUint32{&o.cfg.MaxHash}, "max-hash", "largest hash value a solution may produce")
	f.BoolVar(&o.cfg.Minimal, "minimal", o.cfg.Minimal, "use only as many hash values as needed for the key groups")
	f.IntVar(&o.cfg.PairLimit, "pair-limit", o.cfg.PairLimit, "tables beyond which key pairs are separated through gates instead of direct clauses")
	f.DurationVar(&o.cfg.SATTimeout.Duration, "sat-timeout", o.cfg.SATTimeout.Duration, "wall time limit of a single SAT call, 0 for none")
}

func newSolveCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve [keys-file]",
		Short: "Finds a hash for a key set and prints it followed by the keys",
		Long: `Reads key[:value] lines from keys-file (or standard input) and searches
for a lookup table structure that separates every key group.

The cnf methods draw random taps and solve for the table contents exactly,
retrying with fresh taps while the solver proves a selection impossible.
The anneal, grasp and descent methods search over complete tables and
stop with the best score found when their budget runs out.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.solve(cmd.Context(), cmd, args)
		},
	}
	shapeFlags(cmd, o)
	boundFlags(cmd, o)
	f := cmd.Flags()
	f.StringVarP(&o.cfg.Method, "method", "m", o.cfg.Method, "one of "+strings.Join(methods(), ", "))
	f.IntVar(&o.cfg.MaxTries, "max-tries", o.cfg.MaxTries, "try budget, 0 for none")
	f.IntVar(&o.cfg.Anneal.MaxK, "max-k", o.cfg.Anneal.MaxK, "largest number of bits flipped together by greedy descent")
	f.Float64Var(&o.cfg.Anneal.StartTemperature, "temperature", o.cfg.Anneal.StartTemperature, "starting annealing temperature")
	f.Float64Var(&o.cfg.Anneal.Cooling, "cooling", o.cfg.Anneal.Cooling, "annealing temperature factor per level")
	return cmd
}

func (o *options) encodeOptions(keys *keyset.Set) []cnf.EncodeOption {
	opts := []cnf.EncodeOption{cnf.WithGroupSize(o.cfg.GroupSize)}
	if m, ok := o.cfg.Bound(keys); ok {
		opts = append(opts, cnf.WithMaxHash(m))
	}
	if o.cfg.PairLimit > 0 {
		opts = append(opts, cnf.WithPairLimit(o.cfg.PairLimit))
	}
	return opts
}

func (o *options) satSolver() (cnf.Solver, error) {
	return cnf.NewGiniSolver(
		cnf.WithTimeout(o.cfg.SATTimeout.Duration),
		cnf.WithTracer(cnf.LoggingTracer{Log: o.log}),
	)
}

func (o *options) solve(ctx context.Context, cmd *cobra.Command, args []string) error {
	keys, name, err := readKeys(cmd, args)
	if err != nil {
		return err
	}
	wO, wI, err := o.cfg.Widths(keys)
	if err != nil {
		return err
	}
	o.log.WithFields(logrus.Fields{
		"groups":   keys.Len(),
		"distinct": keys.DistinctKeys(),
		"wO":       wO,
		"wI":       wI,
		"load":     float64(keys.Len()) / float64(o.cfg.GroupSize<<uint(wO)),
	}).Info("problem")

	r, err := o.begin(ctx, cmd, o.cfg.Method)
	if err != nil {
		return err
	}
	r.describe(name, keys, wO, wI)

	res, err := o.search(ctx, keys, wO, wI)
	if res != nil {
		r.rec.Tries, r.rec.Score = res.Tries, res.Score
	}
	if err == nil {
		r.result(res.Hash, res.Tries)
		err = writeHashAndKeys(cmd.OutOrStdout(), res.Hash, keys)
	}
	return r.end(err)
}

func (o *options) search(ctx context.Context, keys *keyset.Set, wO, wI int) (*search.Result, error) {
	switch o.cfg.Method {
	case methodCNF, methodCNFWeighted:
		method := o.cfg.Taps
		if o.cfg.Method == methodCNFWeighted {
			method = taps.MethodWeighted
		}
		s, err := o.satSolver()
		if err != nil {
			return nil, err
		}
		return cnf.Construct(ctx, o.rng, o.log, s, keys, cnf.Params{
			WO:       wO,
			WI:       wI,
			WA:       o.cfg.WA,
			Taps:     method,
			MaxTries: o.cfg.MaxTries,
			MaxTime:  o.cfg.MaxTime.Duration,
			Encode:   o.encodeOptions(keys),
		}, o.clock)
	}

	strategy, err := search.Lookup(o.cfg.Method)
	if err != nil {
		return nil, err
	}
	if _, ok := o.cfg.Bound(keys); ok {
		return nil, failure.Constraintf("method %s cannot bound the largest hash, use %s", o.cfg.Method, methodCNF)
	}
	s, err := search.NewSession(
		search.WithParams(o.cfg.SearchParams()),
		search.WithRand(o.rng),
		search.WithLogger(o.log.WithField("method", o.cfg.Method)),
		search.WithContext(ctx),
		search.WithClock(o.clock),
	)
	if err != nil {
		return nil, err
	}
	ev, err := s.Start(keys, o.cfg.Taps, wO, wI, o.cfg.WA)
	if err != nil {
		return nil, err
	}
	res, err := strategy(s, ev)
	if err != nil && errors.Is(err, failure.ErrBudgetExhausted) && res != nil {
		o.log.WithFields(logrus.Fields{"score": res.Score, "tries": res.Tries}).Warn("no solution within budget")
	}
	return res, err
}
