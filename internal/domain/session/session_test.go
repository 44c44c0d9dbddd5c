package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/pairrank/internal/domain/catalog"
	"github.com/okian/pairrank/internal/domain/matchmaker"
	"github.com/okian/pairrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeTimer struct {
	clk     *fakeClock
	at      time.Time
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clk: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs due callbacks outside the clock lock.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due, keep []*fakeTimer
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case !t.at.After(c.now):
			t.stopped = true
			due = append(due, t)
		default:
			keep = append(keep, t)
		}
	}
	c.timers = keep
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

type fakePersister struct {
	saves  []model.Snapshot
	resets int
	fail   error
}

func (p *fakePersister) Save(_ context.Context, snap model.Snapshot) error {
	if p.fail != nil {
		return p.fail
	}
	p.saves = append(p.saves, snap)
	return nil
}

func (p *fakePersister) Reset(context.Context) error {
	p.resets++
	return p.fail
}

type recorder struct {
	mu    sync.Mutex
	notes []model.Notification
}

func (r *recorder) Notify(n model.Notification) {
	r.mu.Lock()
	r.notes = append(r.notes, n)
	r.mu.Unlock()
}

func (r *recorder) kinds() []model.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.NotificationKind, len(r.notes))
	for i, n := range r.notes {
		out[i] = n.Kind
	}
	return out
}

func testCatalog(doc string) *catalog.Catalog {
	c, err := catalog.Parse([]byte(doc))
	if err != nil {
		panic(err)
	}
	return c
}

const threeItems = `title: Test
encouragements:
  - {judgments: 0, text: start}
  - {judgments: 2, text: going}
items:
  - {name: A, desc: alpha}
  - {name: B, desc: beta}
  - {name: C, desc: gamma}
`

type harness struct {
	ctl   *Controller
	clock *fakeClock
	store *fakePersister
	notes *recorder
}

func newHarness(doc string, snap model.Snapshot, opts ...Option) harness {
	h := harness{clock: newFakeClock(), store: &fakePersister{}, notes: &recorder{}}
	all := append([]Option{
		WithClock(h.clock),
		WithPersister(h.store),
		WithNotifier(h.notes),
	}, opts...)
	h.ctl = New(testCatalog(doc), snap, all...)
	return h
}

func TestPresentation(t *testing.T) {
	Convey("Given a fresh three item session", t, func() {
		h := newHarness(threeItems, model.Snapshot{})
		ctx := context.Background()

		Convey("When no pair has been presented yet", func() {
			_, err := h.ctl.CurrentPair()
			So(err, ShouldEqual, ErrNoPair)
			So(h.ctl.Phase(), ShouldEqual, AwaitingPair)
		})

		Convey("When the session starts", func() {
			So(h.ctl.Start(ctx), ShouldBeNil)
			p, err := h.ctl.CurrentPair()

			Convey("Then the first pair awaits a human choice", func() {
				So(err, ShouldBeNil)
				So(p.Pair, ShouldResemble, model.Pair{A: "A", B: "B"})
				So(p.Definitions, ShouldResemble, [2]string{"alpha", "beta"})
				So(p.ID, ShouldNotBeEmpty)
				So(p.Auto, ShouldBeNil)
				So(p.Phase, ShouldEqual, matchmaker.PhaseDiscovery)
				So(h.ctl.Phase(), ShouldEqual, AwaitingHumanChoice)
				So(h.notes.kinds(), ShouldResemble, []model.NotificationKind{model.PairPresented})
			})

			Convey("Then starting again keeps the same presentation", func() {
				So(h.ctl.Start(ctx), ShouldBeNil)
				again, _ := h.ctl.CurrentPair()
				So(again.ID, ShouldEqual, p.ID)
			})
		})
	})

	Convey("Given a catalog with a single item", t, func() {
		h := newHarness("title: Solo\nitems:\n  - {name: only}\n", model.Snapshot{})

		Convey("Then starting fails and nothing is presented", func() {
			err := h.ctl.Start(context.Background())
			So(errors.Is(err, matchmaker.ErrNotEnoughItems), ShouldBeTrue)
			_, err = h.ctl.CurrentPair()
			So(err, ShouldEqual, ErrNoPair)
		})
	})
}

func TestHumanChoice(t *testing.T) {
	Convey("Given a started session", t, func() {
		h := newHarness(threeItems, model.Snapshot{})
		ctx := context.Background()
		So(h.ctl.Start(ctx), ShouldBeNil)
		first, _ := h.ctl.CurrentPair()

		Convey("When the winner index is out of range", func() {
			_, err := h.ctl.SubmitChoice(ctx, 2)
			So(err, ShouldEqual, ErrInvalidChoice)
			_, err = h.ctl.SubmitChoiceFor(ctx, first.ID, -1)
			So(err, ShouldEqual, ErrInvalidChoice)
		})

		Convey("When a quick decision is made", func() {
			h.clock.Advance(time.Second)
			j, err := h.ctl.SubmitChoice(ctx, 0)
			So(err, ShouldBeNil)
			snap := h.ctl.Snapshot()

			Convey("Then the judgment is recorded as confident", func() {
				So(j.Winner, ShouldEqual, "A")
				So(j.Loser, ShouldEqual, "B")
				So(j.LatencyMS, ShouldEqual, 1000)
				So(j.Auto, ShouldBeFalse)
				So(snap.History, ShouldHaveLength, 1)
				So(snap.Items[0].Rating, ShouldAlmostEqual, 1530)
				So(snap.Items[1].Rating, ShouldAlmostEqual, 1470)
				So(snap.Items[0].LegacyScore, ShouldEqual, 2)
				So(snap.Items[1].LegacyScore, ShouldEqual, 0)
				So(snap.Items[0].MatchCount, ShouldEqual, 1)
				So(snap.Items[0].Opponents, ShouldResemble, []string{"B"})
				So(snap.Items[1].Opponents, ShouldResemble, []string{"A"})
				So(snap.Conflicts, ShouldBeEmpty)
			})

			Convey("Then the snapshot is persisted", func() {
				So(h.store.saves, ShouldHaveLength, 1)
				So(h.store.saves[0].History, ShouldHaveLength, 1)
			})

			Convey("Then notifications follow the transition order", func() {
				So(h.notes.kinds(), ShouldResemble, []model.NotificationKind{
					model.PairPresented,
					model.ComparisonResolved,
					model.RankingUpdated,
					model.PairPresented,
				})
			})

			Convey("Then the next pair is presented", func() {
				next, err := h.ctl.CurrentPair()
				So(err, ShouldBeNil)
				So(next.ID, ShouldNotEqual, first.ID)
				So(next.Pair, ShouldResemble, model.Pair{A: "A", B: "C"})
			})

			Convey("Then the ranking reflects the result", func() {
				r := h.ctl.Ranking()
				So(r[0].Name, ShouldEqual, "A")
				So(r[0].Rank, ShouldEqual, 1)
				So(r[1].Name, ShouldEqual, "C")
				So(r[2].Name, ShouldEqual, "B")
			})

			Convey("Then the previous presentation is stale", func() {
				_, err := h.ctl.SubmitChoiceFor(ctx, first.ID, 0)
				So(err, ShouldEqual, ErrStalePair)
			})
		})

		Convey("When a decision takes longer than the hard choice threshold", func() {
			h.clock.Advance(12 * time.Second)
			j, err := h.ctl.SubmitChoiceFor(ctx, first.ID, 1)
			So(err, ShouldBeNil)
			snap := h.ctl.Snapshot()

			Convey("Then a conflict is logged and the win is not confident", func() {
				So(j.Winner, ShouldEqual, "B")
				So(j.LatencyMS, ShouldEqual, 12000)
				So(snap.Conflicts, ShouldResemble, []model.Conflict{{Pair: [2]string{"B", "A"}, Winner: "B", LatencyMS: 12000}})
				So(snap.Items[1].LegacyScore, ShouldEqual, 1)
				So(snap.Items[1].Rating, ShouldAlmostEqual, 1520)
			})
		})

		Convey("When persistence fails", func() {
			h.store.fail = errors.New("disk full")
			_, err := h.ctl.SubmitChoice(ctx, 0)

			Convey("Then the session carries on", func() {
				So(err, ShouldBeNil)
				So(h.ctl.History(), ShouldHaveLength, 1)
				_, err := h.ctl.CurrentPair()
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestAutoResolution(t *testing.T) {
	Convey("Given a session where C > A and A > B are known", t, func() {
		h := newHarness(threeItems, model.Snapshot{})
		ctx := context.Background()
		So(h.ctl.Start(ctx), ShouldBeNil)

		_, err := h.ctl.SubmitChoice(ctx, 0) // A beats B
		So(err, ShouldBeNil)
		p, _ := h.ctl.CurrentPair()
		So(p.Pair, ShouldResemble, model.Pair{A: "A", B: "C"})
		_, err = h.ctl.SubmitChoice(ctx, 1) // C beats A
		So(err, ShouldBeNil)

		Convey("When the remaining pair (B, C) is presented", func() {
			p, err := h.ctl.CurrentPair()
			So(err, ShouldBeNil)

			Convey("Then it is inferred from the chain", func() {
				So(p.Pair, ShouldResemble, model.Pair{A: "B", B: "C"})
				So(p.Auto, ShouldNotBeNil)
				So(p.Auto.WinnerIndex, ShouldEqual, 1)
				So(p.Auto.Reason, ShouldEqual, "Logic: C > A > B")
				So(h.ctl.Phase(), ShouldEqual, AutoResolving)
			})

			Convey("Then human choices are rejected", func() {
				_, err := h.ctl.SubmitChoice(ctx, 0)
				So(err, ShouldEqual, ErrAutoResolving)
				_, err = h.ctl.SubmitChoiceFor(ctx, p.ID, 0)
				So(err, ShouldEqual, ErrAutoResolving)
			})

			Convey("Then nothing happens before the delay", func() {
				h.clock.Advance(500 * time.Millisecond)
				So(h.ctl.History(), ShouldHaveLength, 2)
			})

			Convey("When the delay elapses", func() {
				h.clock.Advance(DefaultAutoResolveDelay)
				history := h.ctl.History()

				Convey("Then the implied winner is recorded automatically", func() {
					So(history, ShouldHaveLength, 3)
					last := history[2]
					So(last.Winner, ShouldEqual, "C")
					So(last.Loser, ShouldEqual, "B")
					So(last.Auto, ShouldBeTrue)
					So(last.LatencyMS, ShouldEqual, 0)
					So(h.ctl.Conflicts(), ShouldBeEmpty)
				})

				Convey("Then every pair was played and a rematch follows", func() {
					next, err := h.ctl.CurrentPair()
					So(err, ShouldBeNil)
					So(next.Rematch, ShouldBeTrue)
				})
			})

			Convey("When the session is reset before the delay", func() {
				So(h.ctl.Reset(ctx), ShouldBeNil)
				h.clock.Advance(DefaultAutoResolveDelay)

				Convey("Then the stale timer does nothing", func() {
					So(h.ctl.History(), ShouldBeEmpty)
					So(h.ctl.Phase(), ShouldEqual, AwaitingHumanChoice)
				})
			})
		})
	})

	Convey("Given a persisted history X > Y, Y > Z", t, func() {
		doc := "title: T\nitems:\n  - {name: X}\n  - {name: Y}\n  - {name: Z}\n"
		snap := model.NewSnapshot([]string{"X", "Y", "Z"})
		snap.Items[0].Opponents = []string{"Y"}
		snap.Items[1].Opponents = []string{"X", "Z"}
		snap.Items[2].Opponents = []string{"Y"}
		snap.History = []model.Judgment{{ID: "1", Winner: "X", Loser: "Y"}, {ID: "2", Winner: "Y", Loser: "Z"}}
		h := newHarness(doc, snap)

		Convey("When the session starts", func() {
			So(h.ctl.Start(context.Background()), ShouldBeNil)
			p, _ := h.ctl.CurrentPair()

			Convey("Then (X, Z) is auto-resolvable with winner X", func() {
				So(p.Pair, ShouldResemble, model.Pair{A: "X", B: "Z"})
				So(p.Auto, ShouldNotBeNil)
				So(p.Auto.Winner, ShouldEqual, "X")
				So(p.Auto.WinnerIndex, ShouldEqual, 0)
			})
		})
	})
}

func TestBoost(t *testing.T) {
	Convey("Given a started session", t, func() {
		h := newHarness(threeItems, model.Snapshot{})
		ctx := context.Background()
		So(h.ctl.Start(ctx), ShouldBeNil)

		Convey("When an item is boosted twice", func() {
			_, err := h.ctl.Boost(ctx, "C")
			So(err, ShouldBeNil)
			it, err := h.ctl.Boost(ctx, "C")
			So(err, ShouldBeNil)
			snap := h.ctl.Snapshot()

			Convey("Then only that item gains exactly 30", func() {
				So(it.Rating, ShouldAlmostEqual, 1530)
				So(snap.Items[2].Rating, ShouldAlmostEqual, 1530)
				So(snap.Items[2].Uncertainty, ShouldEqual, model.DefaultUncertainty)
				So(snap.Items[0].Rating, ShouldEqual, model.DefaultRating)
				So(snap.Items[1].Rating, ShouldEqual, model.DefaultRating)
				So(snap.History, ShouldBeEmpty)
			})

			Convey("Then each boost is persisted and published", func() {
				So(h.store.saves, ShouldHaveLength, 2)
				kinds := h.notes.kinds()
				So(kinds[len(kinds)-1], ShouldEqual, model.RankingUpdated)
			})

			Convey("Then the ranking leads with the boosted item", func() {
				So(h.ctl.Ranking()[0].Name, ShouldEqual, "C")
			})
		})

		Convey("When an unknown item is boosted", func() {
			_, err := h.ctl.Boost(ctx, "nope")
			So(errors.Is(err, ErrUnknownItem), ShouldBeTrue)
			So(h.store.saves, ShouldBeEmpty)
		})
	})
}

func TestResetProgressExport(t *testing.T) {
	Convey("Given a session with a progress target of four", t, func() {
		h := newHarness(threeItems, model.Snapshot{}, WithProgressTarget(4))
		ctx := context.Background()
		So(h.ctl.Start(ctx), ShouldBeNil)

		Convey("Then progress starts at zero", func() {
			p := h.ctl.Progress()
			So(p.Percent, ShouldEqual, 0)
			So(p.Encouragement, ShouldEqual, "start")
			So(p.ShareUnlocked, ShouldBeFalse)
		})

		Convey("When two choices were made", func() {
			h.ctl.SubmitChoice(ctx, 0)
			h.ctl.SubmitChoice(ctx, 0)

			Convey("Then progress reflects half the target", func() {
				So(h.ctl.ProgressFraction(), ShouldAlmostEqual, 0.5)
				p := h.ctl.Progress()
				So(p.Percent, ShouldEqual, 50)
				So(p.Judgments, ShouldEqual, 2)
				So(p.Encouragement, ShouldEqual, "going")
			})

			Convey("When the session is reset", func() {
				So(h.ctl.Reset(ctx), ShouldBeNil)

				Convey("Then everything starts over from the catalog", func() {
					snap := h.ctl.Snapshot()
					So(snap.History, ShouldBeEmpty)
					So(snap.Conflicts, ShouldBeEmpty)
					for _, it := range snap.Items {
						So(it.Rating, ShouldEqual, model.DefaultRating)
						So(it.Opponents, ShouldBeEmpty)
					}
					So(h.store.resets, ShouldEqual, 1)
					So(h.ctl.Progress().Percent, ShouldEqual, 0)
					p, err := h.ctl.CurrentPair()
					So(err, ShouldBeNil)
					So(p.Pair, ShouldResemble, model.Pair{A: "A", B: "B"})
				})

				Convey("Then a session_reset notification precedes the new pair", func() {
					kinds := h.notes.kinds()
					So(kinds[len(kinds)-2], ShouldEqual, model.SessionReset)
					So(kinds[len(kinds)-1], ShouldEqual, model.PairPresented)
				})
			})
		})

		Convey("When more choices than the target were made", func() {
			for i := 0; i < 5; i++ {
				h.clock.Advance(DefaultAutoResolveDelay)
				h.ctl.SubmitChoice(ctx, 0)
			}
			p := h.ctl.Progress()
			So(p.Fraction, ShouldEqual, 1)
			So(p.Percent, ShouldEqual, 100)
			So(p.ShareUnlocked, ShouldBeTrue)
		})

		Convey("Then the export lists items under the catalog title", func() {
			text, ok := h.ctl.Export()
			So(ok, ShouldBeTrue)
			So(text, ShouldEqual, "Test:\n1. A\n2. B\n3. C")
		})
	})

	Convey("Given only two items", t, func() {
		h := newHarness("title: Pair\nitems:\n  - {name: A}\n  - {name: B}\n", model.Snapshot{})

		Convey("Then export is a no-op", func() {
			text, ok := h.ctl.Export()
			So(ok, ShouldBeFalse)
			So(text, ShouldBeEmpty)
		})
	})
}
