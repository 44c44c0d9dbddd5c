// Package service assembles the ranking engine: persisted state, the session
// controller, notification delivery and duplicate-choice handling. It is the
// dependency bundle behind both the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	eventqueue "github.com/okian/pairrank/internal/adapters/mq/queue"
	"github.com/okian/pairrank/internal/adapters/mq/worker"
	"github.com/okian/pairrank/internal/adapters/repository"
	"github.com/okian/pairrank/internal/config"
	"github.com/okian/pairrank/internal/domain/catalog"
	"github.com/okian/pairrank/internal/domain/dedupe"
	"github.com/okian/pairrank/internal/domain/matchmaker"
	"github.com/okian/pairrank/internal/domain/model"
	"github.com/okian/pairrank/internal/domain/rating"
	"github.com/okian/pairrank/internal/domain/session"
	"github.com/okian/pairrank/pkg/logger"
	"github.com/okian/pairrank/pkg/metrics"
	"go.opentelemetry.io/otel/trace"
)

const shutdownTimeout = 5 * time.Second

// Service implements the API dependencies for the ranking engine.
type Service struct {
	mu sync.RWMutex

	cfg     *config.Config
	catalog *catalog.Catalog

	// Core components
	backend    repository.Backend
	store      repository.Store
	controller *session.Controller
	deduper    dedupe.Deduper
	queue      *eventqueue.InMemoryQueue
	dispatcher *worker.Dispatcher
	sinks      []worker.Sink

	tracer trace.Tracer
	clock  session.Clock

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc
	runDone   chan struct{}

	logger logger.Logger
}

// New constructs a Service. Nothing is opened until Start.
func New(opts ...Option) *Service {
	s := &Service{
		cfg: config.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store, restores or seeds the session, starts notification
// delivery and presents the first pair.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	cfg := s.cfg

	s.logger.Info(ctx, "starting ranking service...")

	if s.catalog == nil {
		cat, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		s.catalog = cat
	}

	if s.backend == nil {
		b, err := repository.OpenBackend(ctx, repository.BackendConfig{
			Kind:       cfg.StoreBackend,
			FileDir:    cfg.StorePath,
			SQLitePath: cfg.SQLitePath,
			RedisAddr:  cfg.RedisAddr,
			RedisDB:    cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
		}
		s.backend = b
	}
	s.store = repository.New(s.backend,
		repository.WithStateKey(cfg.StateKey),
		repository.WithWelcomeKey(cfg.WelcomeKey),
		repository.WithMinUncertainty(cfg.RatingMinUncertainty),
		repository.WithLogger(logger.Named("repository")),
	)

	snap, err := s.store.Load(ctx)
	switch {
	case err == nil:
		s.logger.Info(ctx, "restored saved session",
			logger.Int("items", len(snap.Items)),
			logger.Int("judgments", len(snap.History)),
		)
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Info(ctx, "no saved session, starting from the catalog")
	case errors.Is(err, repository.ErrCorrupt):
		s.logger.Warn(ctx, "saved session is unreadable, starting from the catalog", logger.Error(err))
		metrics.RecordErrorByComponent("service", "corrupt_state")
	default:
		_ = s.store.Close()
		s.backend, s.store = nil, nil
		return fmt.Errorf("load session: %w", err)
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(cfg.NotifyQueueSize))
	s.dispatcher = worker.NewDispatcher(s.queue,
		worker.WithName("notifications"),
		worker.WithLogger(logger.Named("dispatcher")),
		worker.WithSinks(s.sinks...),
	)

	sessionOpts := []session.Option{
		session.WithLogger(logger.Named("session")),
		session.WithPersister(s.store),
		session.WithNotifier(s.queue),
		session.WithRatingModel(rating.New(
			rating.WithKBase(cfg.RatingKBase),
			rating.WithConfidentMultiplier(cfg.RatingConfidentMultiplier),
			rating.WithInferredMultiplier(cfg.RatingInferredMultiplier),
			rating.WithMinUncertainty(cfg.RatingMinUncertainty),
			rating.WithUncertaintyDecay(cfg.RatingUncertaintyDecay),
		)),
		session.WithMatchmaker(matchmaker.New(matchmaker.WithDiscoveryRounds(cfg.DiscoveryRounds))),
		session.WithAutoResolveDelay(cfg.AutoResolveDelay()),
		session.WithConfidentThreshold(cfg.ConfidentThreshold()),
		session.WithHardChoiceThreshold(cfg.HardChoiceThreshold()),
		session.WithProgressTarget(cfg.ProgressTarget),
		session.WithBoostAmount(cfg.BoostAmount),
	}
	if s.tracer != nil {
		sessionOpts = append(sessionOpts, session.WithTracer(s.tracer))
	}
	if s.clock != nil {
		sessionOpts = append(sessionOpts, session.WithClock(s.clock))
	}
	s.controller = session.New(s.catalog, snap, sessionOpts...)

	// Delivery outlives the Start context; Stop ends it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.runDone = make(chan struct{})
	go func() {
		defer close(s.runDone)
		s.dispatcher.Run(runCtx)
	}()

	if err := s.controller.Start(ctx); err != nil {
		s.logger.Warn(ctx, "no pair to present", logger.Error(err))
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "ranking service started",
		logger.String("backend", s.store.Backend()),
		logger.Int("items", len(s.catalog.Items)),
		logger.Int("queueSize", cfg.NotifyQueueSize),
		logger.Int("dedupeSize", cfg.DedupeSize),
	)
	return nil
}

// Stop cancels pending timers, drains notifications and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service...")

	s.controller.Close()

	sctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	if err := s.dispatcher.Shutdown(sctx); err != nil {
		s.logger.Warn(ctx, "notification dispatcher did not drain", logger.Error(err))
	}
	cancel()
	s.cancel()
	<-s.runDone

	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "failed to close store", logger.Error(err))
	}
	s.backend = nil

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

// AddSink registers a notification sink. Sinks added after Start receive
// notifications published from then on.
func (s *Service) AddSink(sink worker.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
	if s.started {
		s.dispatcher.AddSink(sink)
	}
}

func (s *Service) running() (*session.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.controller, nil
}

// Title returns the catalog title.
func (s *Service) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.catalog == nil {
		return ""
	}
	return s.catalog.Title
}

// AutoResolveDelay returns the configured pause before an inferred pair
// resolves itself.
func (s *Service) AutoResolveDelay() time.Duration {
	return s.cfg.AutoResolveDelay()
}

// CurrentPair returns the presentation awaiting a decision.
func (s *Service) CurrentPair(_ context.Context) (model.Presentation, error) {
	c, err := s.running()
	if err != nil {
		return model.Presentation{}, err
	}
	return c.CurrentPair()
}

// SubmitChoice resolves presentationID with the item at winnerIndex. A
// repeated submission for an already resolved presentation returns the
// original judgment with duplicate set.
func (s *Service) SubmitChoice(ctx context.Context, presentationID string, winnerIndex int) (j model.Judgment, duplicate bool, err error) {
	c, err := s.running()
	if err != nil {
		return model.Judgment{}, false, err
	}

	if prev, ok := s.deduper.Lookup(ctx, presentationID); ok {
		metrics.RecordChoiceDuplicate()
		return prev, true, nil
	}

	j, err = c.SubmitChoiceFor(ctx, presentationID, winnerIndex)
	if err != nil {
		// A concurrent submission for the same presentation may have won.
		if errors.Is(err, session.ErrStalePair) {
			if prev, ok := s.deduper.Lookup(ctx, presentationID); ok {
				metrics.RecordChoiceDuplicate()
				return prev, true, nil
			}
		}
		return model.Judgment{}, false, err
	}
	s.deduper.Record(ctx, presentationID, j)
	return j, false, nil
}

// Ranking returns the standings, best first.
func (s *Service) Ranking(_ context.Context) ([]model.Standing, error) {
	c, err := s.running()
	if err != nil {
		return nil, err
	}
	return c.Ranking(), nil
}

// Progress returns the progress view.
func (s *Service) Progress(_ context.Context) (model.Progress, error) {
	c, err := s.running()
	if err != nil {
		return model.Progress{}, err
	}
	return c.Progress(), nil
}

// Boost applies the manual rating bonus to name.
func (s *Service) Boost(ctx context.Context, name string) (model.Item, error) {
	c, err := s.running()
	if err != nil {
		return model.Item{}, err
	}
	return c.Boost(ctx, name)
}

// Reset discards the session, the welcome flag and remembered submissions.
func (s *Service) Reset(ctx context.Context) error {
	c, err := s.running()
	if err != nil {
		return err
	}
	s.deduper.Forget(ctx)
	return c.Reset(ctx)
}

// Conflicts returns the recorded hard choices, newest first.
func (s *Service) Conflicts(_ context.Context) ([]model.Conflict, error) {
	c, err := s.running()
	if err != nil {
		return nil, err
	}
	out := c.Conflicts()
	slices.Reverse(out)
	return out, nil
}

// History returns every judgment in the order it was made.
func (s *Service) History(_ context.Context) ([]model.Judgment, error) {
	c, err := s.running()
	if err != nil {
		return nil, err
	}
	return c.History(), nil
}

// Export returns the shareable ranking text; ok is false with fewer than
// three items.
func (s *Service) Export(_ context.Context) (text string, ok bool, err error) {
	c, err := s.running()
	if err != nil {
		return "", false, err
	}
	text, ok = c.Export()
	return text, ok, nil
}

// WelcomeSeen reports whether the introduction was dismissed.
func (s *Service) WelcomeSeen(ctx context.Context) (bool, error) {
	if _, err := s.running(); err != nil {
		return false, err
	}
	return s.store.WelcomeSeen(ctx)
}

// MarkWelcomeSeen records that the introduction was dismissed.
func (s *Service) MarkWelcomeSeen(ctx context.Context) error {
	if _, err := s.running(); err != nil {
		return err
	}
	return s.store.MarkWelcomeSeen(ctx)
}

// Greeting returns the notifications a newly connected client needs to
// render the current state.
func (s *Service) Greeting() []model.Notification {
	c, err := s.running()
	if err != nil {
		return nil
	}
	now := time.Now()
	var out []model.Notification
	if p, err := c.CurrentPair(); err == nil {
		out = append(out, model.Notification{Kind: model.PairPresented, At: now, Presentation: &p})
	}
	progress := c.Progress()
	out = append(out, model.Notification{
		Kind:     model.RankingUpdated,
		At:       now,
		Ranking:  c.Ranking(),
		Progress: &progress,
	})
	return out
}

// GetStats returns service statistics.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
	}
	if !s.started {
		return stats
	}

	snap := s.controller.Snapshot()
	stats["backend"] = s.store.Backend()
	stats["phase"] = s.controller.Phase().String()
	stats["items"] = len(snap.Items)
	stats["judgments"] = len(snap.History)
	stats["conflicts"] = len(snap.Conflicts)
	stats["progress"] = s.controller.ProgressFraction()
	stats["queue_size"] = s.queue.Len(context.Background())
	stats["dedupe_size"] = s.deduper.Size()
	stats["sinks"] = len(s.sinks)
	stats["uptime_seconds"] = int64(time.Since(s.startedAt).Seconds())
	return stats
}
