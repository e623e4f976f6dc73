package regression_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/okian/compass/internal/domain/linalg"
	"github.com/okian/compass/internal/domain/model"
	"github.com/okian/compass/internal/domain/regression"
	. "github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/gonum/mat"
)

func sample(label float64, fs ...float64) regression.Sample {
	var s regression.Sample
	copy(s.Features[:], fs)
	s.Label = label
	return s
}

func countingInverter(calls *int) regression.InvertFunc {
	return func(a linalg.Matrix, opts ...linalg.Option) (linalg.Matrix, error) {
		*calls++
		return linalg.Invert(a, opts...)
	}
}

func TestFit_ExactlyDetermined(t *testing.T) {
	Convey("Given seven linearly independent rows", t, func() {
		labels := []float64{2, 3, 4, 1, 5, 2.5, 3.5}
		samples := []regression.Sample{sample(labels[0])}
		for i := 0; i < model.ActiveFeatures; i++ {
			fs := make([]float64, model.ActiveFeatures)
			fs[i] = 1
			samples = append(samples, sample(labels[i+1], fs...))
		}

		Convey("When fitting", func() {
			m, err := regression.New().Fit(samples)
			So(err, ShouldBeNil)

			Convey("Then β reproduces every label", func() {
				for _, s := range samples {
					fv := model.FeatureVector{
						Timing: s.Features[0], Structure: s.Features[1], Incentives: s.Features[2],
						Location: s.Features[3], Registration: s.Features[4], Budgeting: s.Features[5],
					}
					So(math.Abs(m.Apply(fv)-s.Label), ShouldBeLessThanOrEqualTo, 1e-6)
				}
			})

			Convey("And the coefficients are the label offsets", func() {
				So(m.SampleSize, ShouldEqual, 7)
				So(m.Intercept, ShouldAlmostEqual, 2, 1e-9)
				for i := range m.Coefficients {
					So(m.Coefficients[i], ShouldAlmostEqual, labels[i+1]-labels[0], 1e-9)
				}
			})
		})
	})
}

func TestFit_MatchesLeastSquares(t *testing.T) {
	Convey("Given an overdetermined noisy data set", t, func() {
		rng := rand.New(rand.NewSource(7))
		const n = 60
		samples := make([]regression.Sample, n)
		xd := mat.NewDense(n, regression.Parameters, nil)
		yd := mat.NewDense(n, 1, nil)
		for i := range samples {
			var fs [model.ActiveFeatures]float64
			xd.Set(i, 0, 1)
			label := 1.5
			for j := range fs {
				fs[j] = rng.Float64()
				xd.Set(i, j+1, fs[j])
				label += float64(j+1) * 0.3 * fs[j]
			}
			label += rng.NormFloat64() * 0.05
			samples[i] = regression.Sample{Features: fs, Label: label}
			yd.Set(i, 0, label)
		}

		Convey("Then the normal-equation fit matches a QR least squares solve", func() {
			m, err := regression.New().Fit(samples)
			So(err, ShouldBeNil)

			var want mat.Dense
			So(want.Solve(xd, yd), ShouldBeNil)
			So(m.Intercept, ShouldAlmostEqual, want.At(0, 0), 1e-8)
			for i, c := range m.Coefficients {
				So(c, ShouldAlmostEqual, want.At(i+1, 0), 1e-8)
			}
			So(m.SampleSize, ShouldEqual, n)
		})
	})
}

func TestFit_InsufficientData(t *testing.T) {
	Convey("Given five usable rows", t, func() {
		samples := []regression.Sample{
			sample(1, 0.1), sample(2, 0.2), sample(3, 0.3), sample(4, 0.4), sample(5, 0.5),
		}
		calls := 0
		engine := regression.New(regression.WithInverter(countingInverter(&calls)))

		Convey("When fitting", func() {
			_, err := engine.Fit(samples)

			Convey("Then InsufficientData reports the minimum and the sample size", func() {
				So(errors.Is(err, regression.ErrInsufficientData), ShouldBeTrue)
				var ide *regression.InsufficientDataError
				So(errors.As(err, &ide), ShouldBeTrue)
				So(ide.MinRequired, ShouldEqual, 7)
				So(ide.SampleSize, ShouldEqual, 5)
			})

			Convey("And no inversion is attempted", func() {
				So(calls, ShouldEqual, 0)
			})
		})
	})

	Convey("Given no rows at all", t, func() {
		_, err := regression.New().Fit(nil)
		So(errors.Is(err, regression.ErrInsufficientData), ShouldBeTrue)
	})
}

func TestFit_Singular(t *testing.T) {
	Convey("Given rows whose location and registration columns coincide", t, func() {
		// duplicated first row plus a collinear column pair
		samples := []regression.Sample{
			sample(3, 0.5, 0.5, 1, 0.25, 0.25, 1),
			sample(3, 0.5, 0.5, 1, 0.25, 0.25, 1),
			sample(2, 0.25, 1, 0, 0.5, 0.5, 0.5),
			sample(4, 1, 0, 0.5, 1, 1, 0),
			sample(1, 0, 0.25, 0.25, 0, 0, 0.25),
			sample(5, 0.75, 0.5, 0, 0.75, 0.75, 1),
			sample(2, 0.5, 0, 1, 0.5, 0.5, 0.75),
			sample(4, 1, 1, 1, 0.25, 0.25, 0),
		}
		calls := 0
		engine := regression.New(regression.WithInverter(countingInverter(&calls)))

		Convey("When fitting", func() {
			m, err := engine.Fit(samples)

			Convey("Then SingularMatrix surfaces instead of degraded coefficients", func() {
				So(errors.Is(err, linalg.ErrSingularMatrix), ShouldBeTrue)
				So(m, ShouldResemble, model.RegressionModel{})
				So(calls, ShouldEqual, 1)
			})
		})
	})

	Convey("Given seven identical rows", t, func() {
		samples := make([]regression.Sample, 7)
		for i := range samples {
			samples[i] = sample(3, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5)
		}

		Convey("Then the fit is singular", func() {
			_, err := regression.New().Fit(samples)
			So(errors.Is(err, linalg.ErrSingularMatrix), ShouldBeTrue)
		})
	})
}

func TestUsable(t *testing.T) {
	Convey("Given stats rows with missing values", t, func() {
		good := model.EventStats{EventID: "a", Score: 4, Features: model.FeatureVector{Timing: 0.5}}
		noLabel := model.EventStats{EventID: "b", Score: math.NaN()}
		badFeature := model.EventStats{EventID: "c", Score: 2, Features: model.FeatureVector{Budgeting: math.Inf(1)}}

		Convey("Then only fully numeric rows become samples", func() {
			out := regression.Usable([]model.EventStats{good, noLabel, badFeature})
			So(len(out), ShouldEqual, 1)
			So(out[0].Label, ShouldEqual, 4)
			So(out[0].Features[0], ShouldEqual, 0.5)
		})
	})
}
