// Package runlog records the outcome of each run as a CSV line, a row in a
// SQLite history database, or a JSON report.
package runlog

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sugawarayuuta/sonnet"

	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

// Outcome is the coarse result of a run.
type Outcome string

const (
	Success        Outcome = "Success"
	OutOfAttempts  Outcome = "OutOfAttempts"
	OutOfTime      Outcome = "OutOfTime"
	OutOfResources Outcome = "OutOfResources"
	Unsatisfiable  Outcome = "Unsatisfiable"
	Exception      Outcome = "Exception"
)

// OutcomeOf classifies the error a run ended with.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, failure.ErrBudgetExhausted):
		return OutOfAttempts
	case failure.IsUnsatisfiable(err):
		return Unsatisfiable
	case failure.IsResourceExhausted(err):
		return OutOfResources
	}
	return Exception
}

// Record describes one run.
type Record struct {
	ID        uuid.UUID `json:"id"`
	Started   time.Time `json:"started"`
	Command   string    `json:"command"`
	Method    string    `json:"method,omitempty"`
	Input     string    `json:"input,omitempty"`
	WO        int       `json:"wO"`
	WI        int       `json:"wI"`
	WA        int       `json:"wA"`
	GroupSize int       `json:"groupSize"`
	Groups    int       `json:"groups"`
	Distinct  int       `json:"distinct"`
	Seed      int64     `json:"seed"`

	Outcome    Outcome `json:"outcome"`
	Error      string  `json:"error,omitempty"`
	Tries      int     `json:"tries"`
	Score      int     `json:"score"`
	CPUSeconds float64 `json:"cpuSeconds"`
	Signature  uint64  `json:"signature,omitempty"`
	Hash       string  `json:"hash,omitempty"`
}

// NewRecord starts a record for command with a fresh run id.
func NewRecord(command string) *Record {
	return &Record{
		ID:      uuid.New(),
		Started: time.Now().UTC(),
		Command: command,
	}
}

// Finish stores the outcome of err.
func (r *Record) Finish(err error, cpu time.Duration) {
	r.Outcome = OutcomeOf(err)
	r.CPUSeconds = cpu.Seconds()
	if err != nil {
		r.Error = err.Error()
	}
	var be *failure.BudgetExhausted
	if errors.As(err, &be) {
		r.Tries = be.Tries
		r.Score = be.BestScore
	}
}

// Sink receives finished records.
type Sink interface {
	Write(r *Record) error
	Close() error
}

// Multi writes to every sink and returns the first error.
type Multi []Sink

func (m Multi) Write(r *Record) error {
	var first error
	for _, s := range m {
		if err := s.Write(r); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// WriteReport writes r as JSON to path.
func WriteReport(path string, r *Record) error {
	b, err := sonnet.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encoding report")
	}
	return errors.Wrapf(os.WriteFile(path, append(b, '\n'), 0o644), "writing report %s", path)
}

// ReadReport reads a report written by WriteReport.
func ReadReport(path string) (*Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading report %s", path)
	}
	var r Record
	if err := sonnet.Unmarshal(b, &r); err != nil {
		return nil, failure.Formatf("report %s: %v", path, err)
	}
	return &r, nil
}
