// Package server runs the optional debug endpoint of a long search:
// health, prometheus metrics and pprof.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/m8pple/fpga-perfect-hash/pkg/lib/profile"
)

// Option applies a configuration option to the given config.
type Option func(s *serverConfig)

func WithAddress(addr string) Option {
	return func(sc *serverConfig) {
		sc.addr = addr
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(sc *serverConfig) {
		sc.logger = logger
	}
}

// WithProfiling mounts the pprof handlers next to the metrics.
func WithProfiling(enabled bool) Option {
	return func(sc *serverConfig) {
		sc.profiling = enabled
	}
}

type serverConfig struct {
	logger    logrus.FieldLogger
	addr      string
	profiling bool
}

func (sc *serverConfig) apply(options []Option) {
	for _, o := range options {
		o(sc)
	}
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		logger:    logrus.New(),
		addr:      "localhost:8080",
		profiling: true,
	}
}

// Handler builds the mux served by Start.
func Handler(options ...Option) http.Handler {
	sc := defaultServerConfig()
	sc.apply(options)
	return sc.handler()
}

func (sc *serverConfig) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())
	if sc.profiling {
		profile.RegisterHandlers(mux)
	}
	return mux
}

// Start listens on the configured address and serves until ctx is done or
// stop is called. The listening address is returned so ":0" can be used.
func Start(ctx context.Context, options ...Option) (addr string, stop func(), err error) {
	sc := defaultServerConfig()
	sc.apply(options)

	l, err := net.Listen("tcp", sc.addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listening on %s", sc.addr)
	}
	s := &http.Server{Handler: sc.handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := s.Serve(l); err != nil && err != http.ErrServerClosed {
			sc.logger.WithError(err).Error("debug server stopped")
		}
	}()
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-ctx.Done()
		shutdown, done := context.WithTimeout(context.Background(), time.Second)
		defer done()
		s.Shutdown(shutdown)
	}()
	sc.logger.WithField("addr", l.Addr().String()).Info("debug server listening")
	return l.Addr().String(), cancel, nil
}
