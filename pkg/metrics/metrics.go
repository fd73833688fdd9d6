package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MethodLabel = "method"
	Outcome     = "outcome"

	Solved      = "solved"
	Exhausted   = "exhausted"
	Unsatisfied = "unsatisfiable"
	Failed      = "failed"
)

var (
	triesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfect_hash_tries_total",
			Help: "Number of search tries (moves or solver calls) made",
		},
		[]string{MethodLabel},
	)

	restartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfect_hash_restarts_total",
			Help: "Number of times a search restarted from an elite or fresh structure",
		},
		[]string{MethodLabel},
	)

	bestScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "perfect_hash_best_score",
			Help: "Lowest collision score seen so far",
		},
		[]string{MethodLabel},
	)

	satCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfect_hash_sat_calls_total",
			Help: "Number of SAT solver invocations by outcome",
		},
		[]string{Outcome},
	)

	solveSummary = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "perfect_hash_solve_duration_seconds",
			Help:       "The duration of a complete solve attempt",
			Objectives: map[float64]float64{0.95: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{MethodLabel, Outcome},
	)
)

// Register adds the search collectors to the default registry.
func Register() {
	prometheus.MustRegister(triesTotal)
	prometheus.MustRegister(restartsTotal)
	prometheus.MustRegister(bestScore)
	prometheus.MustRegister(satCallsTotal)
	prometheus.MustRegister(solveSummary)
}

// WriteTextfile dumps the default registry in the text exposition format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

func AddTries(method string, n int) {
	triesTotal.WithLabelValues(method).Add(float64(n))
}

func EmitRestart(method string) {
	restartsTotal.WithLabelValues(method).Inc()
}

func SetBestScore(method string, score int) {
	bestScore.WithLabelValues(method).Set(float64(score))
}

func EmitSATCall(outcome string) {
	satCallsTotal.WithLabelValues(outcome).Inc()
}

func RegisterSolveDuration(method, outcome string, duration time.Duration) {
	solveSummary.WithLabelValues(method, outcome).Observe(duration.Seconds())
}
