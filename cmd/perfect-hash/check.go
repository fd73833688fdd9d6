package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

func newCheckCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [hash-file]",
		Short: "Prints the hash of every key group and verifies the hash is a solution",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, keys, _, err := readHashAndKeys(cmd, args)
			if err != nil {
				return err
			}
			groups, err := h.HashGroups(keys)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			seen := map[uint32]int{}
			var m uint32
			for _, g := range groups {
				note := ""
				if !g.Consistent {
					note = " inconsistent"
				}
				fmt.Fprintf(out, "%s -> %d%s\n", g.Key, g.Hash, note)
				seen[g.Hash]++
				m = max(m, g.Hash)
			}

			ok, err := h.IsSolution(keys, o.cfg.GroupSize)
			if err != nil {
				return err
			}
			log := o.log.WithField("signature", fmt.Sprintf("%016x", h.Signature())).WithField("maxHash", m)
			if !ok {
				return failure.Constraintf("hash is not a solution for group size %d (%d distinct hashes for %d groups)", o.cfg.GroupSize, len(seen), len(groups))
			}
			if bound, has := o.cfg.Bound(keys); has && m > bound {
				return failure.Constraintf("largest hash %d exceeds %d", m, bound)
			}
			log.Info("hash is a solution")
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.cfg.GroupSize, "group-size", o.cfg.GroupSize, "key groups allowed to share a hash value")
	f.Var(optionalUint32{&o.cfg.MaxHash}, "max-hash", "largest hash value allowed")
	f.BoolVar(&o.cfg.Minimal, "minimal", o.cfg.Minimal, "require only as many hash values as needed for the key groups")
	return cmd
}
