package rating_test

import (
	"math"
	"testing"

	"github.com/okian/pairrank/internal/domain/model"
	"github.com/okian/pairrank/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func TestApply(t *testing.T) {
	Convey("Given two fresh items and the default model", t, func() {
		m := rating.New()
		a := model.NewItem("a")
		b := model.NewItem("b")

		Convey("When a neutral human decision is applied", func() {
			out := m.Apply(&a, &b, false, false)

			Convey("Then the winner gains half of K", func() {
				So(out.Expected, ShouldAlmostEqual, 0.5)
				So(out.K, ShouldAlmostEqual, 40)
				So(out.Delta, ShouldAlmostEqual, 20)
				So(a.Rating, ShouldAlmostEqual, 1520)
				So(b.Rating, ShouldAlmostEqual, 1480)
			})

			Convey("Then both uncertainties decay", func() {
				So(a.Uncertainty, ShouldAlmostEqual, 332.5)
				So(b.Uncertainty, ShouldAlmostEqual, 332.5)
			})
		})

		Convey("When the decision is confident", func() {
			out := m.Apply(&a, &b, true, false)
			So(out.K, ShouldAlmostEqual, 60)
			So(a.Rating, ShouldAlmostEqual, 1530)
		})

		Convey("When the decision is inferred", func() {
			out := m.Apply(&a, &b, false, true)
			So(out.K, ShouldAlmostEqual, 20)
			So(a.Rating, ShouldAlmostEqual, 1510)
		})
	})

	Convey("Given an underdog beating a favourite", t, func() {
		m := rating.New()
		fav := model.Item{Name: "fav", Rating: 1700, Uncertainty: 100}
		dog := model.Item{Name: "dog", Rating: 1300, Uncertainty: 250}

		out := m.Apply(&dog, &fav, false, false)

		Convey("Then the expectation and K use pre-update values", func() {
			So(out.Expected, ShouldAlmostEqual, 1/(1+math.Pow(10, 1)))
			So(out.K, ShouldAlmostEqual, 40*350.0/700.0)
			So(dog.Rating, ShouldAlmostEqual, 1300+out.Delta)
			So(fav.Rating, ShouldAlmostEqual, 1700-out.Delta)
		})
	})
}

func TestZeroSumAndFloor(t *testing.T) {
	Convey("Given a long sequence of resolutions", t, func() {
		m := rating.New()
		items := []model.Item{model.NewItem("a"), model.NewItem("b"), model.NewItem("c")}
		total := 0.0
		for _, it := range items {
			total += it.Rating
		}

		prev := make([]float64, len(items))
		for i, it := range items {
			prev[i] = it.Uncertainty
		}

		monotone := true
		for i := 0; i < 200; i++ {
			w, l := i%3, (i+1+i/7)%3
			if w == l {
				l = (l + 1) % 3
			}
			m.Apply(&items[w], &items[l], i%2 == 0, i%5 == 0)
			for j := range items {
				if items[j].Uncertainty > prev[j] {
					monotone = false
				}
				prev[j] = items[j].Uncertainty
			}
		}

		Convey("Then the rating sum is preserved", func() {
			sum := 0.0
			for _, it := range items {
				sum += it.Rating
			}
			So(sum, ShouldAlmostEqual, total, 1e-6)
		})

		Convey("Then uncertainty never increases and stops at the floor", func() {
			So(monotone, ShouldBeTrue)
			for _, it := range items {
				So(it.Uncertainty, ShouldEqual, rating.DefaultMinUncertainty)
			}
		})
	})
}

func TestOptions(t *testing.T) {
	Convey("Given custom options", t, func() {
		m := rating.New(
			rating.WithKBase(32),
			rating.WithConfidentMultiplier(2),
			rating.WithInferredMultiplier(0.25),
			rating.WithMinUncertainty(80),
			rating.WithUncertaintyDecay(0.5),
		)
		a := model.NewItem("a")
		b := model.NewItem("b")
		out := m.Apply(&a, &b, true, true)

		So(out.K, ShouldAlmostEqual, 32*2*0.25)
		So(a.Uncertainty, ShouldAlmostEqual, 175)
		So(m.MinUncertainty(), ShouldEqual, 80)

		Convey("Invalid values keep the defaults", func() {
			d := rating.New(rating.WithKBase(-1), rating.WithUncertaintyDecay(2))
			x := model.NewItem("x")
			y := model.NewItem("y")
			So(d.Apply(&x, &y, false, false).K, ShouldAlmostEqual, rating.DefaultKBase)
			So(x.Uncertainty, ShouldAlmostEqual, 332.5)
		})
	})
}
