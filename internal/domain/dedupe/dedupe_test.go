package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/pairrank/internal/domain/dedupe"
	"github.com/okian/pairrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func judgment(id string) model.Judgment {
	return model.Judgment{ID: id, Winner: "a", Loser: "b"}
}

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("Then it starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
			_, ok := d.Lookup(ctx, "p-1")
			So(ok, ShouldBeFalse)
		})

		Convey("When a presentation is recorded", func() {
			So(d.Record(ctx, "p-1", judgment("j-1")), ShouldBeTrue)

			Convey("Then the judgment is returned on lookup", func() {
				j, ok := d.Lookup(ctx, "p-1")
				So(ok, ShouldBeTrue)
				So(j.ID, ShouldEqual, "j-1")
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("Then a second record keeps the first judgment", func() {
				So(d.Record(ctx, "p-1", judgment("j-2")), ShouldBeFalse)
				j, _ := d.Lookup(ctx, "p-1")
				So(j.ID, ShouldEqual, "j-1")
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("Then Forget clears everything", func() {
				d.Forget(ctx)
				So(d.Size(), ShouldEqual, 0)
				_, ok := d.Lookup(ctx, "p-1")
				So(ok, ShouldBeFalse)
				So(d.Record(ctx, "p-1", judgment("j-3")), ShouldBeTrue)
			})
		})
	})

	Convey("Given a bounded deduper at capacity", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for i := 1; i <= 3; i++ {
			d.Record(ctx, fmt.Sprintf("p-%d", i), judgment(fmt.Sprintf("j-%d", i)))
		}

		Convey("When one more presentation is recorded", func() {
			d.Record(ctx, "p-4", judgment("j-4"))

			Convey("Then the oldest is evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				_, ok := d.Lookup(ctx, "p-1")
				So(ok, ShouldBeFalse)
				for _, id := range []string{"p-2", "p-3", "p-4"} {
					_, ok := d.Lookup(ctx, id)
					So(ok, ShouldBeTrue)
				}
			})
		})
	})

	Convey("Given a deduper of size one", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1))
		d.Record(ctx, "p-1", judgment("j-1"))
		d.Record(ctx, "p-2", judgment("j-2"))

		So(d.Size(), ShouldEqual, 1)
		_, ok := d.Lookup(ctx, "p-1")
		So(ok, ShouldBeFalse)
		j, ok := d.Lookup(ctx, "p-2")
		So(ok, ShouldBeTrue)
		So(j.ID, ShouldEqual, "j-2")
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		const n = 2000
		for i := 0; i < n; i++ {
			d.Record(ctx, fmt.Sprintf("p-%d", i), judgment("j"))
		}
		So(d.Size(), ShouldEqual, n)
		_, ok := d.Lookup(ctx, "p-0")
		So(ok, ShouldBeTrue)
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given concurrent submissions", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		const goroutines = 10
		const perGoroutine = 100

		var wg sync.WaitGroup
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < perGoroutine; i++ {
					id := fmt.Sprintf("p-%d-%d", g, i)
					d.Record(context.Background(), id, judgment(id))
					d.Lookup(context.Background(), id)
				}
			}(g)
		}
		wg.Wait()

		So(d.Size(), ShouldEqual, goroutines*perGoroutine)
	})
}
