package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/okian/pairrank/internal/domain/model"
	"github.com/okian/pairrank/pkg/logger"
)

// Runner plays a session against a server with a simulated judge.
type Runner struct {
	config Config
	client *Client
	stats  Report
}

// NewRunner creates a new runner.
func NewRunner(config Config) *Runner {
	if config.PollEvery <= 0 {
		config.PollEvery = DefaultPollEvery
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	return &Runner{
		config: config,
		client: NewClient(config.BaseURL, config.Timeout),
	}
}

// Run executes the simulation and returns its report.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	log := logger.Get()
	r.stats = Report{StartTime: time.Now(), TopK: r.config.TopK}

	if err := r.client.Health(ctx); err != nil {
		return r.stats, fmt.Errorf("service health check failed: %w", err)
	}
	log.Info(ctx, "service is healthy", logger.String("url", r.config.BaseURL))

	if r.config.Reset {
		if err := r.client.Reset(ctx); err != nil {
			return r.stats, fmt.Errorf("reset session: %w", err)
		}
		log.Info(ctx, "session reset")
	}

	initial, err := r.client.Ranking(ctx)
	if err != nil {
		return r.stats, fmt.Errorf("fetch ranking: %w", err)
	}
	judge := NewJudge(names(initial), r.config.Noise, r.config.Seed).
		WithLatency(r.config.MinLatency, r.config.MaxLatency)
	r.stats.Items = len(initial)
	r.stats.Truth = judge.Truth()

	log.Info(ctx, "starting simulation",
		logger.Int("items", len(initial)),
		logger.Int("rounds", r.config.Rounds),
		logger.Float64("noise", r.config.Noise),
		logger.Int64("seed", r.config.Seed))

	for r.stats.Human+r.stats.Auto < r.config.Rounds {
		if err := ctx.Err(); err != nil {
			return r.stats, err
		}
		if err := r.step(ctx, judge); err != nil {
			return r.stats, err
		}
	}

	final, err := r.client.Ranking(ctx)
	if err != nil {
		return r.stats, fmt.Errorf("fetch final ranking: %w", err)
	}
	r.stats.Observed = names(final)
	r.stats.KendallTau = KendallTau(r.stats.Truth, r.stats.Observed)
	r.stats.TopKOverlap = TopKOverlap(r.stats.Truth, r.stats.Observed, r.config.TopK)
	r.stats.Duration = time.Since(r.stats.StartTime)

	r.displayFinalStats(ctx)
	if err := r.writeReport(); err != nil {
		return r.stats, err
	}
	if r.config.MinTau != 0 && r.stats.KendallTau < r.config.MinTau {
		return r.stats, fmt.Errorf("%w: tau %.3f < %.3f", ErrRankingTooLow, r.stats.KendallTau, r.config.MinTau)
	}
	return r.stats, nil
}

// step handles one presentation: either waits out an inferred pair or
// answers it.
func (r *Runner) step(ctx context.Context, judge *Judge) error {
	p, err := r.client.Pair(ctx)
	if err != nil {
		return fmt.Errorf("fetch pair: %w", err)
	}

	if p.Auto != nil {
		logger.Get().Debug(ctx, "pair resolves itself", logger.String("reason", p.Auto.Reason))
		if err := r.awaitNext(ctx, p.ID); err != nil {
			return err
		}
		r.stats.Auto++
		return nil
	}

	if d := judge.ThinkTime(); d > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}

	idx, flipped := judge.Decide(p.Pair)
	_, _, err = r.client.Choose(ctx, p.ID, idx)
	switch {
	case errors.Is(err, ErrConflict):
		// The pair moved on underneath us; fetch the new one.
		r.stats.Rejected++
		return nil
	case err != nil:
		return fmt.Errorf("submit choice: %w", err)
	}
	r.stats.Human++
	if flipped {
		r.stats.Flipped++
	}
	return nil
}

// awaitNext polls until the presentation changes.
func (r *Runner) awaitNext(ctx context.Context, id string) error {
	deadline := time.NewTimer(settleGrace)
	defer deadline.Stop()
	tick := time.NewTicker(r.config.PollEvery)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: %s", ErrStuck, id)
		case <-tick.C:
			p, err := r.client.Pair(ctx)
			if err != nil {
				return fmt.Errorf("poll pair: %w", err)
			}
			if p.ID != id {
				return nil
			}
		}
	}
}

func (r *Runner) displayFinalStats(ctx context.Context) {
	logger.Get().Info(ctx, "simulation complete",
		logger.Int("human", r.stats.Human),
		logger.Int("auto", r.stats.Auto),
		logger.Int("rejected", r.stats.Rejected),
		logger.Int("flipped", r.stats.Flipped),
		logger.Float64("kendall_tau", r.stats.KendallTau),
		logger.Float64("top_k_overlap", r.stats.TopKOverlap),
		logger.Duration("duration", r.stats.Duration))
}

func (r *Runner) writeReport() error {
	if r.config.OutputFile == "" {
		return nil
	}
	data, err := json.MarshalIndent(r.stats, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(r.config.OutputFile, data, 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func names(standings []model.Standing) []string {
	out := make([]string, len(standings))
	for i, s := range standings {
		out[i] = s.Name
	}
	return out
}
