package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
)

func newGenerateCmd(o *options) *cobra.Command {
	ro := keyset.RandomOptions{
		WO:           8,
		WI:           32,
		LoadFactor:   0.5,
		Distribution: keyset.Uniform,
	}
	var distribution string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Prints a random key set",
		Long: `Draws non-overlapping random keys until the number of concrete keys
reaches load-factor * 2^wo.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ro.Distribution = keyset.Distribution(distribution)
			switch ro.Distribution {
			case keyset.Uniform, keyset.Exponential:
			default:
				return errors.Errorf("unknown distribution %q", distribution)
			}
			keys, err := keyset.Random(o.rng, ro)
			if err != nil {
				return err
			}
			o.log.WithField("groups", keys.Len()).WithField("distinct", keys.DistinctKeys()).Info("generated")
			return keys.Write(cmd.OutOrStdout(), "")
		},
	}
	f := cmd.Flags()
	f.IntVar(&ro.WO, "wo", ro.WO, "output width the load factor refers to")
	f.IntVar(&ro.WI, "wi", ro.WI, "key width in bits")
	f.IntVar(&ro.WV, "wv", ro.WV, "value width in bits")
	f.Float64Var(&ro.LoadFactor, "load-factor", ro.LoadFactor, "concrete keys per output value")
	f.Float64Var(&ro.ProbUndefined, "prob-undefined", ro.ProbUndefined, "probability that a key bit is a don't-care")
	f.StringVar(&distribution, "distribution", string(ro.Distribution), "key width distribution: uniform or exponential")
	return cmd
}
