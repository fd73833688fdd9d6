package main

import (
	"github.com/spf13/cobra"

	"github.com/m8pple/fpga-perfect-hash/pkg/polish"
)

func newPolishCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "polish [hash-file]",
		Short: "Repairs a hash that almost separates its keys",
		Long: `Reads a hash followed by its key set, as printed by solve, and keeps the
selectors while re-solving the table entries involved in collisions. The
repaired hash and the keys are printed in the same form.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h, keys, name, err := readHashAndKeys(cmd, args)
			if err != nil {
				return err
			}
			r, err := o.begin(ctx, cmd, "polish")
			if err != nil {
				return err
			}
			r.describe(name, keys, h.WO, h.WI)
			r.rec.WA = 0
			for _, t := range h.Tables {
				r.rec.WA = max(r.rec.WA, len(t.Selectors))
			}

			s, err := o.satSolver()
			if err != nil {
				return r.end(err)
			}
			opts := []polish.Option{
				polish.WithSolver(s),
				polish.WithRand(o.rng),
				polish.WithLogger(o.log),
				polish.WithGroupSize(o.cfg.GroupSize),
			}
			if m, ok := o.cfg.Bound(keys); ok {
				opts = append(opts, polish.WithMaxHash(m))
			}
			res, err := polish.Polish(ctx, h, keys, opts...)
			if err == nil {
				r.result(res, 1)
				err = writeHashAndKeys(cmd.OutOrStdout(), res, keys)
			}
			return r.end(err)
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.cfg.GroupSize, "group-size", o.cfg.GroupSize, "key groups allowed to share a hash value")
	boundFlags(cmd, o)
	return cmd
}
