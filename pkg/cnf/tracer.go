package cnf

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Stats describes one solver call.
type Stats struct {
	Vars     int
	Clauses  int
	Outcome  string
	Duration time.Duration
}

type Tracer interface {
	Trace(s Stats)
}

type DefaultTracer struct{}

func (DefaultTracer) Trace(_ Stats) {
}

type LoggingTracer struct {
	Log logrus.FieldLogger
}

func (t LoggingTracer) Trace(s Stats) {
	t.Log.WithFields(logrus.Fields{
		"vars":     s.Vars,
		"clauses":  s.Clauses,
		"outcome":  s.Outcome,
		"duration": s.Duration,
	}).Debug("sat call")
}
