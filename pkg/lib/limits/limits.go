// Package limits reads the process CPU clock and applies hard operating
// system limits on CPU time and address space.
package limits

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Clock reports elapsed CPU time.
type Clock func() time.Duration

// CPUTime is the user plus system CPU time consumed by the process.
func CPUTime() time.Duration {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	return time.Duration(ru.Utime.Nano() + ru.Stime.Nano())
}

// Since returns a Clock measuring CPU time from now.
func Since() Clock {
	start := CPUTime()
	return func() time.Duration {
		return CPUTime() - start
	}
}

// Apply lowers RLIMIT_CPU and RLIMIT_AS. The CPU limit is set with some
// headroom over cpu so the cooperative budget fires first. Zero leaves the
// corresponding limit untouched.
func Apply(cpu time.Duration, memBytes uint64) error {
	if cpu > 0 {
		secs := uint64((cpu + cpu/10 + time.Second).Seconds())
		if err := lower(unix.RLIMIT_CPU, secs); err != nil {
			return errors.Wrap(err, "setting cpu limit")
		}
	}
	if memBytes > 0 {
		if err := lower(unix.RLIMIT_AS, memBytes); err != nil {
			return errors.Wrap(err, "setting address space limit")
		}
	}
	return nil
}

func lower(resource int, soft uint64) error {
	var rl unix.Rlimit
	if err := unix.Getrlimit(resource, &rl); err != nil {
		return err
	}
	if rl.Max != unix.RLIM_INFINITY && soft > rl.Max {
		soft = rl.Max
	}
	rl.Cur = soft
	return unix.Setrlimit(resource, &rl)
}

// Watch handles SIGXCPU, raised once the soft CPU limit passes: it calls
// onExceeded so the caller can log its partial outcome, then exits with
// code. The returned function stops watching.
func Watch(ctx context.Context, log logrus.FieldLogger, code int, onExceeded func()) (stop func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, unix.SIGXCPU)
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-c:
			log.Error("cpu time limit exceeded")
			if onExceeded != nil {
				onExceeded()
			}
			os.Exit(code)
		case <-ctx.Done():
		}
	}()
	return func() {
		signal.Stop(c)
		cancel()
	}
}
