package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/pairrank/internal/simulate"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		rounds     = flag.Int("rounds", simulate.DefaultRounds, "Presentations to resolve, human or inferred")
		noise      = flag.Float64("noise", 0, "Probability of answering against the hidden order")
		minLatency = flag.Duration("min-latency", 0, "Lower bound of simulated think time")
		maxLatency = flag.Duration("max-latency", 0, "Upper bound of simulated think time")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "Seed for the hidden order and noise")
		topK       = flag.Int("top", simulate.DefaultTopK, "Head size compared by the top-k overlap")
		reset      = flag.Bool("reset", false, "Reset the session before playing")
		minTau     = flag.Float64("min-tau", 0, "Exit non-zero when Kendall tau ends below this")
		timeout    = flag.Duration("timeout", simulate.DefaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write the JSON report to this file")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := simulate.SetupLogging(*verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	runner := simulate.NewRunner(simulate.Config{
		BaseURL:    *baseURL,
		Rounds:     *rounds,
		Noise:      *noise,
		MinLatency: *minLatency,
		MaxLatency: *maxLatency,
		Seed:       *seed,
		TopK:       *topK,
		Reset:      *reset,
		MinTau:     *minTau,
		Timeout:    *timeout,
		OutputFile: *outputFile,
	})
	if _, err := runner.Run(ctx); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
