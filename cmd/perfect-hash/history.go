package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
	"github.com/m8pple/fpga-perfect-hash/pkg/runlog"
)

func newHistoryCmd(o *options) *cobra.Command {
	limit := 20
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Lists the most recent runs stored in the results database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.cfg.ResultsDB == "" {
				return failure.Constraintf("--results-db is required")
			}
			db, err := runlog.OpenDB(cmd.Context(), o.cfg.ResultsDB)
			if err != nil {
				return err
			}
			defer db.Close()
			runs, err := db.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTARTED\tCOMMAND\tMETHOD\tWO\tWI\tWA\tGROUPS\tOUTCOME\tTRIES\tCPU")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%d\t%.2fs\n",
					r.ID, r.Started.Format("2006-01-02 15:04:05"), r.Command, r.Method,
					r.WO, r.WI, r.WA, r.Groups, r.Outcome, r.Tries, r.CPUSeconds)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", limit, "number of runs to list")
	return cmd
}
