package main

import (
	"os"

	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/signals"
	"github.com/m8pple/fpga-perfect-hash/pkg/metrics"
)

func main() {
	metrics.Register()
	if err := newRootCmd().ExecuteContext(signals.Context()); err != nil {
		os.Exit(failure.ExitCode(err))
	}
}
