// Package session implements the comparison state machine. A Controller owns
// the items, the judgment history and the current presentation, and is the
// only writer of that state.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/pairrank/internal/domain/catalog"
	"github.com/okian/pairrank/internal/domain/graph"
	"github.com/okian/pairrank/internal/domain/matchmaker"
	"github.com/okian/pairrank/internal/domain/model"
	"github.com/okian/pairrank/internal/domain/rating"
	"github.com/okian/pairrank/pkg/logger"
	"github.com/okian/pairrank/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Phase is the state of the comparison loop.
type Phase int

// Phases of the comparison loop.
const (
	AwaitingPair Phase = iota
	Presenting
	AutoResolving
	AwaitingHumanChoice
	Resolved
)

func (p Phase) String() string {
	switch p {
	case AwaitingPair:
		return "awaiting_pair"
	case Presenting:
		return "presenting"
	case AutoResolving:
		return "auto_resolving"
	case AwaitingHumanChoice:
		return "awaiting_human_choice"
	case Resolved:
		return "resolved"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Persister stores the full session snapshot.
type Persister interface {
	Save(ctx context.Context, snap model.Snapshot) error
	// Reset removes the saved session and the welcome flag.
	Reset(ctx context.Context) error
}

// Notifier receives state change notifications. Implementations must not
// block; they are called with the controller lock held.
type Notifier interface {
	Notify(n model.Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(model.Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n model.Notification) { f(n) }

// Controller serializes every transition of one ranking session.
type Controller struct {
	mu sync.Mutex

	catalog    *catalog.Catalog
	rating     *rating.Model
	matchmaker *matchmaker.Matchmaker
	graph      *graph.Graph
	clock      Clock
	persister  Persister
	notifier   Notifier
	tracer     trace.Tracer
	log        logger.Logger
	newID      func() string

	autoResolveDelay    time.Duration
	confidentThreshold  time.Duration
	hardChoiceThreshold time.Duration
	progressTarget      int
	boostAmount         float64

	snap     model.Snapshot
	index    map[string]int
	phase    Phase
	current  *model.Presentation
	previous *model.Pair
	timer    Timer
}

// New creates a Controller over snap. An empty snapshot is seeded from cat.
// Start must be called to present the first pair.
func New(cat *catalog.Catalog, snap model.Snapshot, opts ...Option) *Controller {
	c := &Controller{
		catalog:             cat,
		rating:              rating.New(),
		matchmaker:          matchmaker.New(),
		graph:               graph.New(),
		clock:               systemClock{},
		tracer:              otel.Tracer("pairrank/session"),
		log:                 logger.Nop(),
		newID:               uuid.NewString,
		autoResolveDelay:    DefaultAutoResolveDelay,
		confidentThreshold:  DefaultConfidentThreshold,
		hardChoiceThreshold: DefaultHardChoiceThreshold,
		progressTarget:      DefaultProgressTarget,
		boostAmount:         DefaultBoostAmount,
	}
	for _, opt := range opts {
		opt(c)
	}

	if len(snap.Items) == 0 {
		snap = model.NewSnapshot(cat.Names())
	}
	c.load(snap.Clone())
	return c
}

func (c *Controller) load(snap model.Snapshot) {
	c.snap = snap
	c.index = snap.Index()
	c.graph.Rebuild(snap.History)
	c.phase = AwaitingPair
	c.current = nil
	c.previous = nil
	c.updateGauges()
}

// Start presents the first pair.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return nil
	}
	return c.advance(ctx)
}

// Close stops a pending auto-resolve timer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimer()
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// CurrentPair returns the presentation awaiting resolution.
func (c *Controller) CurrentPair() (model.Presentation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return model.Presentation{}, ErrNoPair
	}
	return *c.current, nil
}

// SubmitChoice resolves the current pair with a human decision.
func (c *Controller) SubmitChoice(ctx context.Context, winnerIndex int) (model.Judgment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkChoice(winnerIndex); err != nil {
		return model.Judgment{}, err
	}
	return c.humanChoice(ctx, winnerIndex), nil
}

// SubmitChoiceFor is SubmitChoice guarded by the presentation id the
// decision was made against.
func (c *Controller) SubmitChoiceFor(ctx context.Context, presentationID string, winnerIndex int) (model.Judgment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if winnerIndex != 0 && winnerIndex != 1 {
		return model.Judgment{}, ErrInvalidChoice
	}
	if c.current == nil || c.current.ID != presentationID {
		return model.Judgment{}, ErrStalePair
	}
	if err := c.checkChoice(winnerIndex); err != nil {
		return model.Judgment{}, err
	}
	return c.humanChoice(ctx, winnerIndex), nil
}

func (c *Controller) checkChoice(winnerIndex int) error {
	if winnerIndex != 0 && winnerIndex != 1 {
		return ErrInvalidChoice
	}
	if c.current == nil {
		return ErrNoPair
	}
	if c.phase == AutoResolving {
		return ErrAutoResolving
	}
	return nil
}

func (c *Controller) humanChoice(ctx context.Context, winnerIndex int) model.Judgment {
	latency := c.clock.Now().Sub(c.current.PresentedAt)
	if latency < 0 {
		latency = 0
	}
	return c.resolve(ctx, winnerIndex, false, latency)
}

// autoResolve is the timer callback for inferred pairs.
func (c *Controller) autoResolve(presentationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != AutoResolving || c.current == nil || c.current.ID != presentationID || c.current.Auto == nil {
		return
	}
	c.timer = nil
	c.resolve(context.Background(), c.current.Auto.WinnerIndex, true, 0)
}

// advance selects and presents the next pair. Must be called with c.mu held.
func (c *Controller) advance(ctx context.Context) error {
	c.phase = AwaitingPair
	sel, err := c.matchmaker.Select(c.snap.Items, len(c.snap.History), c.previous)
	if err != nil {
		c.current = nil
		return fmt.Errorf("select pair: %w", err)
	}
	metrics.RecordSelection(sel.Phase)

	c.phase = Presenting
	p := &model.Presentation{
		ID:          c.newID(),
		Pair:        sel.Pair,
		Definitions: [2]string{c.catalog.Definition(sel.Pair.A), c.catalog.Definition(sel.Pair.B)},
		Rematch:     sel.Rematch,
		Phase:       sel.Phase,
		PresentedAt: c.clock.Now(),
	}
	if inf, ok := c.matchmaker.Infer(c.graph, sel.Pair); ok {
		p.Auto = &inf
	}
	c.current = p

	c.log.Debug(ctx, "pair presented",
		logger.String("presentation_id", p.ID),
		logger.String("a", p.Pair.A),
		logger.String("b", p.Pair.B),
		logger.String("phase", p.Phase),
		logger.Int("candidates", sel.Candidates),
		logger.Bool("auto", p.Auto != nil),
	)
	pres := *p
	c.publish(model.Notification{Kind: model.PairPresented, Presentation: &pres})

	if p.Auto != nil {
		c.phase = AutoResolving
		id := p.ID
		c.timer = c.clock.AfterFunc(c.autoResolveDelay, func() { c.autoResolve(id) })
		return nil
	}
	c.phase = AwaitingHumanChoice
	return nil
}

// resolve applies a decision for the current pair and moves on to the next
// one. Must be called with c.mu held and c.current set.
func (c *Controller) resolve(ctx context.Context, winnerIndex int, auto bool, latency time.Duration) model.Judgment {
	ctx, span := c.tracer.Start(ctx, "session.resolve")
	defer span.End()

	c.phase = Resolved
	pair := c.current.Pair
	winnerName := pair.At(winnerIndex)
	loserName := pair.At(1 - winnerIndex)
	confident := !auto && latency < c.confidentThreshold

	winner := &c.snap.Items[c.index[winnerName]]
	loser := &c.snap.Items[c.index[loserName]]
	out := c.rating.Apply(winner, loser, confident, auto)

	winner.MatchCount++
	loser.MatchCount++
	winner.Opponents = append(winner.Opponents, loserName)
	loser.Opponents = append(loser.Opponents, winnerName)
	if confident {
		winner.LegacyScore += 2
	} else {
		winner.LegacyScore++
	}

	var latencyMS int64
	if !auto {
		latencyMS = latency.Milliseconds()
	}
	j := model.Judgment{
		ID:        c.newID(),
		Winner:    winnerName,
		Loser:     loserName,
		Timestamp: c.clock.Now(),
		LatencyMS: latencyMS,
		Auto:      auto,
	}
	c.snap.History = append(c.snap.History, j)
	c.graph.Add(winnerName, loserName)

	if !auto && latency > c.hardChoiceThreshold {
		c.snap.Conflicts = append(c.snap.Conflicts, model.Conflict{
			Pair:      [2]string{winnerName, loserName},
			Winner:    winnerName,
			LatencyMS: latencyMS,
		})
		metrics.RecordConflict()
	}

	span.SetAttributes(
		attribute.String("winner", winnerName),
		attribute.String("loser", loserName),
		attribute.Bool("auto", auto),
		attribute.Bool("confident", confident),
		attribute.Float64("delta", out.Delta),
	)
	kind := "human"
	if auto {
		kind = "auto"
	} else {
		metrics.RecordDecisionLatency(float64(latencyMS))
	}
	metrics.RecordJudgment(kind)
	metrics.RecordRatingDelta(out.Delta)
	c.updateGauges()

	c.log.Info(ctx, "comparison resolved",
		logger.String("winner", winnerName),
		logger.String("loser", loserName),
		logger.Bool("auto", auto),
		logger.Bool("confident", confident),
		logger.Duration("latency", latency),
		logger.Float64("delta", out.Delta),
		logger.Int("judgments", len(c.snap.History)),
	)

	if err := c.persist(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
	}

	jc := j
	c.publish(model.Notification{Kind: model.ComparisonResolved, Judgment: &jc})
	c.publishRanking()

	c.previous = &pair
	c.current = nil
	if err := c.advance(ctx); err != nil {
		c.log.Error(ctx, "failed to present next pair", logger.Error(err))
	}
	return j
}

// Boost adds the configured amount to name's rating without touching any
// other item or the uncertainty.
func (c *Controller) Boost(ctx context.Context, name string) (model.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "session.boost", trace.WithAttributes(attribute.String("item", name)))
	defer span.End()

	i, ok := c.index[name]
	if !ok {
		span.SetStatus(codes.Error, "unknown item")
		return model.Item{}, fmt.Errorf("boost %q: %w", name, ErrUnknownItem)
	}
	c.snap.Items[i].Rating += c.boostAmount
	metrics.RecordBoost()
	c.updateGauges()

	c.log.Info(ctx, "item boosted",
		logger.String("item", name),
		logger.Float64("rating", c.snap.Items[i].Rating),
	)
	if err := c.persist(ctx); err != nil {
		span.RecordError(err)
	}
	c.publishRanking()
	return c.snap.Items[i].Clone(), nil
}

// Reset discards all progress, clears persisted state and starts over from
// the catalog.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "session.reset")
	defer span.End()

	c.stopTimer()
	var resetErr error
	if c.persister != nil {
		if err := c.persister.Reset(ctx); err != nil {
			resetErr = fmt.Errorf("clear persisted state: %w", err)
			span.RecordError(err)
			metrics.RecordErrorByComponent("session", "reset")
			c.log.Error(ctx, "failed to clear persisted state", logger.Error(err))
		}
	}

	c.load(model.NewSnapshot(c.catalog.Names()))
	metrics.RecordReset()
	c.log.Info(ctx, "session reset", logger.Int("items", len(c.snap.Items)))
	c.publish(model.Notification{Kind: model.SessionReset})

	if err := c.advance(ctx); err != nil {
		c.log.Warn(ctx, "no pair after reset", logger.Error(err))
	}
	return resetErr
}

// Snapshot returns a deep copy of the persisted part of the session.
func (c *Controller) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.Clone()
}

// History returns the judgments in the order they were made.
func (c *Controller) History() []model.Judgment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Judgment, len(c.snap.History))
	copy(out, c.snap.History)
	return out
}

// Conflicts returns the recorded hard choices in the order they were made.
func (c *Controller) Conflicts() []model.Conflict {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Conflict, len(c.snap.Conflicts))
	copy(out, c.snap.Conflicts)
	return out
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) persist(ctx context.Context) error {
	if c.persister == nil {
		return nil
	}
	if err := c.persister.Save(ctx, c.snap.Clone()); err != nil {
		metrics.RecordErrorByComponent("session", "persist")
		c.log.Error(ctx, "failed to persist session", logger.Error(err))
		return err
	}
	return nil
}

func (c *Controller) publish(n model.Notification) {
	if c.notifier == nil {
		return
	}
	n.At = c.clock.Now()
	c.notifier.Notify(n)
}

func (c *Controller) publishRanking() {
	prog := c.progress()
	c.publish(model.Notification{
		Kind:     model.RankingUpdated,
		Ranking:  c.ranking(),
		Progress: &prog,
	})
}

func (c *Controller) updateGauges() {
	leader := 0.0
	if r := c.ranking(); len(r) > 0 {
		leader = r[0].Rating
	}
	metrics.UpdateSessionGauges(len(c.snap.Items), len(c.snap.History), c.fraction(), leader)
}
