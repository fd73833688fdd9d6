package main

import (
	"github.com/spf13/cobra"

	"github.com/m8pple/fpga-perfect-hash/pkg/cnf"
)

func newDimacsCmd(o *options) *cobra.Command {
	var unbind, simplify bool
	cmd := &cobra.Command{
		Use:   "dimacs [hash-file]",
		Short: "Prints the SAT problem of binding a hash's open entries in DIMACS form",
		Long: `Reads a hash followed by its key set and prints the CNF whose models are
the bindings of the hash's don't-care table entries that separate the keys.
Variables are listed as comments mapping them to (table, address).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, keys, _, err := readHashAndKeys(cmd, args)
			if err != nil {
				return err
			}
			if unbind {
				h.UnbindAll()
			}
			p, err := cnf.Encode(h, keys, o.encodeOptions(keys)...)
			if err != nil {
				return err
			}
			if simplify {
				n := p.Simplify()
				o.log.WithField("removed", n).Debug("simplified")
			}
			if reason := p.Trivial(); reason != "" {
				o.log.WithField("reason", reason).Warn("problem is trivially unsatisfiable")
			}
			return p.WriteDimacs(cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.BoolVar(&unbind, "unbind", false, "open every table entry, keeping only the selectors")
	f.BoolVar(&simplify, "simplify", true, "drop satisfied clauses and propagate units before printing")
	f.IntVar(&o.cfg.GroupSize, "group-size", o.cfg.GroupSize, "key groups allowed to share a hash value")
	f.Var(optionalUint32{&o.cfg.MaxHash}, "max-hash", "largest hash value a solution may produce")
	f.BoolVar(&o.cfg.Minimal, "minimal", o.cfg.Minimal, "use only as many hash values as needed for the key groups")
	f.IntVar(&o.cfg.PairLimit, "pair-limit", o.cfg.PairLimit, "tables beyond which key pairs are separated through gates instead of direct clauses")
	return cmd
}
