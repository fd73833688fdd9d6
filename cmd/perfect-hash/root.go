package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/utils/ptr"

	"github.com/m8pple/fpga-perfect-hash/pkg/config"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/limits"
	"github.com/m8pple/fpga-perfect-hash/pkg/version"
)

type options struct {
	cfg        *config.Config
	configPath string
	debug      bool
	version    bool

	log   *logrus.Logger
	rng   *rand.Rand
	clock limits.Clock
}

func newRootCmd() *cobra.Command {
	return newRoot(&options{cfg: config.Default()})
}

func newRoot(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "perfect-hash",
		Short:             "Synthesizes perfect hash functions built from small lookup tables",
		SilenceUsage:      true,
		PersistentPreRunE: o.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.version {
				fmt.Fprint(cmd.OutOrStdout(), version.String())
				return nil
			}
			return cmd.Help()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "YAML file with run settings, flags given on the command line override it")
	pf.IntVarP(&o.cfg.Verbose, "verbose", "v", o.cfg.Verbose, "log verbosity: 0 warnings, 1 info, 2 debug, 3 trace")
	pf.BoolVar(&o.debug, "debug", false, "use debug log level")
	pf.Var(optionalInt64{&o.cfg.Seed}, "seed", "random seed (default: derived from the clock and logged)")
	pf.DurationVar(&o.cfg.MaxTime.Duration, "max-time", o.cfg.MaxTime.Duration, "CPU time budget, 0 for none")
	pf.IntVar(&o.cfg.MaxMemMB, "max-mem", o.cfg.MaxMemMB, "address space limit in MB, 0 for none")
	pf.StringVar(&o.cfg.MetricsFile, "metrics-file", "", "write search metrics in the prometheus text format to this file")
	pf.StringVar(&o.cfg.Report, "report", "", "write a JSON run report to this file")
	pf.StringVar(&o.cfg.ResultsDB, "results-db", "", "SQLite database to append a row per run to")
	pf.StringVar(&o.cfg.CSVLog, "csv-log", "", "file to append a CSV line per run to, - for stdout")
	pf.StringVar(&o.cfg.CSVPrefix, "csv-prefix", "", "first column of each CSV line")
	pf.StringVar(&o.cfg.DebugAddr, "debug-addr", "", "serve metrics and pprof on this address while solving")

	cmd.Flags().BoolVar(&o.version, "version", false, "displays the perfect-hash version")

	cmd.AddCommand(
		newSolveCmd(o),
		newPolishCmd(o),
		newCheckCmd(o),
		newGenerateCmd(o),
		newDimacsCmd(o),
		newHistoryCmd(o),
	)
	return cmd
}

// setup merges the config file under the command line flags and creates
// the logger and random source.
func (o *options) setup(cmd *cobra.Command, _ []string) error {
	o.clock = limits.Since()
	if o.configPath != "" {
		if err := o.cfg.LoadFile(o.configPath); err != nil {
			return err
		}
		var err error
		cmd.Flags().Visit(func(f *pflag.Flag) {
			if err == nil {
				err = f.Value.Set(f.Value.String())
			}
		})
		if err != nil {
			return err
		}
	}

	o.log = logrus.New()
	o.log.SetOutput(cmd.ErrOrStderr())
	o.log.SetLevel(level(o.cfg.Verbose))
	if o.debug {
		o.log.SetLevel(logrus.DebugLevel)
	}

	if err := o.cfg.Validate(); err != nil {
		return err
	}

	if o.cfg.Seed == nil {
		o.cfg.Seed = ptr.To(time.Now().UnixNano())
	}
	o.rng = rand.New(rand.NewSource(*o.cfg.Seed))
	o.log.WithField("seed", *o.cfg.Seed).Debug("random source")
	return nil
}

func level(verbose int) logrus.Level {
	switch {
	case verbose <= 0:
		return logrus.WarnLevel
	case verbose == 1:
		return logrus.InfoLevel
	case verbose == 2:
		return logrus.DebugLevel
	}
	return logrus.TraceLevel
}
