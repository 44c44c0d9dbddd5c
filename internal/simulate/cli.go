package simulate

import (
	"fmt"
	"os"

	"github.com/okian/pairrank/pkg/logger"
)

// SetupLogging initializes the logger for the simulator. verbose enables
// per-pair debug output.
func SetupLogging(verbose bool) error {
	if err := logger.InitWith(os.Stderr, logger.FormatText); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`pairrank simulator
==================

Plays a ranking session against a running server with a judge that holds a
hidden order, then reports how closely the final ranking matches it.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -rounds int        Presentations to resolve, human or inferred (default 60)
  -noise float       Probability of answering against the hidden order (default 0)
  -min-latency dur   Lower bound of simulated think time (default 0)
  -max-latency dur   Upper bound of simulated think time (default 0)
  -seed int          Seed for the hidden order and noise (default: current time)
  -top int           Head size compared by the top-k overlap (default 5)
  -reset             Reset the session before playing
  -min-tau float     Exit non-zero when Kendall tau ends below this
  -timeout dur       HTTP request timeout (default 10s)
  -output string     Write the JSON report to this file
  -verbose           Enable debug logging
  -help              Show this help message

Examples:
  # Replay a fresh session with a slightly unreliable judge
  go run ./cmd/simulate -reset -noise 0.1 -rounds 120 -output report.json
`)
}
