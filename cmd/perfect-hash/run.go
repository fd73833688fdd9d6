package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/m8pple/fpga-perfect-hash/pkg/bithash"
	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/limits"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/server"
	"github.com/m8pple/fpga-perfect-hash/pkg/metrics"
	"github.com/m8pple/fpga-perfect-hash/pkg/runlog"
)

// run tracks one solving command from its limits to its records.
type run struct {
	o      *options
	rec    *runlog.Record
	sinks  runlog.Multi
	start  time.Time
	method string
	stop   func()
	debug  func()
}

// begin opens the configured run logs and applies the hard resource
// limits. A run that hits the CPU limit is recorded as OutOfTime before
// the process exits.
func (o *options) begin(ctx context.Context, cmd *cobra.Command, method string) (*run, error) {
	r := &run{o: o, rec: runlog.NewRecord(cmd.Name()), start: time.Now(), method: method}
	r.rec.Method = method
	r.rec.Seed = *o.cfg.Seed
	r.rec.WA = o.cfg.WA
	r.rec.GroupSize = o.cfg.GroupSize

	if o.cfg.CSVLog != "" {
		c, err := runlog.OpenCSV(o.cfg.CSVLog, o.cfg.CSVPrefix)
		if err != nil {
			return nil, err
		}
		r.sinks = append(r.sinks, c)
	}
	if o.cfg.ResultsDB != "" {
		db, err := runlog.OpenDB(ctx, o.cfg.ResultsDB)
		if err != nil {
			r.sinks.Close()
			return nil, err
		}
		r.sinks = append(r.sinks, db)
	}

	if o.cfg.DebugAddr != "" {
		_, stop, err := server.Start(ctx, server.WithAddress(o.cfg.DebugAddr), server.WithLogger(o.log))
		if err != nil {
			r.sinks.Close()
			return nil, err
		}
		r.debug = stop
	}

	if err := limits.Apply(o.cfg.MaxTime.Duration, uint64(o.cfg.MaxMemMB)<<20); err != nil {
		o.log.WithError(err).Warn("could not apply resource limits")
	}
	r.stop = limits.Watch(ctx, o.log, failure.ExitResourceExhausted, func() {
		rec := *r.rec
		rec.Outcome = runlog.OutOfTime
		rec.CPUSeconds = o.clock().Seconds()
		r.write(&rec)
	})
	return r, nil
}

// describe fills in the widths and the key statistics of the record.
func (r *run) describe(input string, keys *keyset.Set, wO, wI int) {
	r.rec.Input = input
	r.rec.WO, r.rec.WI = wO, wI
	r.rec.Groups = keys.Len()
	r.rec.Distinct = keys.DistinctKeys()
}

// result stores a found structure.
func (r *run) result(h *bithash.Hash, tries int) {
	r.rec.Tries = tries
	r.rec.Signature = h.Signature()
	r.rec.Hash = h.String()
}

// end records the outcome of err and returns err, or the first error met
// while recording.
func (r *run) end(err error) error {
	r.stop()
	if r.debug != nil {
		r.debug()
	}
	tries := r.rec.Tries
	r.rec.Finish(err, r.o.clock())
	if r.rec.Tries == 0 {
		r.rec.Tries = tries
	}
	metrics.RegisterSolveDuration(r.method, outcomeLabel(err), time.Since(r.start))

	werr := r.write(r.rec)
	if cerr := r.sinks.Close(); werr == nil {
		werr = cerr
	}
	if r.o.cfg.MetricsFile != "" {
		if merr := metrics.WriteTextfile(r.o.cfg.MetricsFile); werr == nil {
			werr = errors.Wrap(merr, "writing metrics")
		}
	}

	log := r.o.log.WithFields(logrus.Fields{
		"run":     r.rec.ID,
		"outcome": r.rec.Outcome,
		"tries":   r.rec.Tries,
		"cpu":     r.rec.CPUSeconds,
	})
	if err != nil {
		log.WithError(err).Warn("run failed")
		return err
	}
	log.Info("run finished")
	return werr
}

func (r *run) write(rec *runlog.Record) error {
	err := r.sinks.Write(rec)
	if r.o.cfg.Report != "" {
		if rerr := runlog.WriteReport(r.o.cfg.Report, rec); err == nil {
			err = rerr
		}
	}
	if err != nil {
		r.o.log.WithError(err).Error("recording run")
	}
	return err
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return metrics.Solved
	case errors.Is(err, failure.ErrBudgetExhausted):
		return metrics.Exhausted
	case failure.IsUnsatisfiable(err):
		return metrics.Unsatisfied
	}
	return metrics.Failed
}
