// Package regression fits ordinary least squares models relating feature
// vectors to outcome labels through the normal equations.
package regression

import (
	"fmt"
	"math"

	"github.com/okian/compass/internal/domain/linalg"
	"github.com/okian/compass/internal/domain/model"
)

// Parameters is the number of fitted parameters: a bias plus the active features.
const Parameters = model.ActiveFeatures + 1

// Sample is one historical (features, label) row.
type Sample struct {
	Features [model.ActiveFeatures]float64
	Label    float64
}

// Usable keeps the rows whose active features and label are all finite and
// converts them to samples.
func Usable(stats []model.EventStats) []Sample {
	out := make([]Sample, 0, len(stats))
	for _, s := range stats {
		if !s.Usable() {
			continue
		}
		out = append(out, Sample{Features: s.Features.Active(), Label: s.Score})
	}
	return out
}

// InvertFunc inverts a square matrix.
type InvertFunc func(a linalg.Matrix, opts ...linalg.Option) (linalg.Matrix, error)

// Option configures an Engine.
type Option func(*Engine)

// WithPivotTolerance overrides the singular pivot threshold.
func WithPivotTolerance(tol float64) Option {
	return func(e *Engine) {
		if tol > 0 {
			e.tolerance = tol
		}
	}
}

// WithInverter substitutes the matrix inversion routine.
func WithInverter(fn InvertFunc) Option {
	return func(e *Engine) {
		if fn != nil {
			e.invert = fn
		}
	}
}

// Engine fits linear models. It keeps no state between fits.
type Engine struct {
	tolerance float64
	invert    InvertFunc
}

// New returns an engine using linalg.Invert.
func New(opts ...Option) *Engine {
	e := &Engine{
		tolerance: linalg.DefaultPivotTolerance,
		invert:    linalg.Invert,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fit computes β = (XᵗX)⁻¹Xᵗy where X carries a leading bias column.
// Fewer than Parameters samples fail with *InsufficientDataError before any
// matrix is built.
func (e *Engine) Fit(samples []Sample) (model.RegressionModel, error) {
	n := len(samples)
	if n < Parameters {
		return model.RegressionModel{}, &InsufficientDataError{MinRequired: Parameters, SampleSize: n}
	}

	x := linalg.New(n, Parameters)
	y := make([]float64, n)
	for i, s := range samples {
		x[i][0] = 1
		copy(x[i][1:], s.Features[:])
		y[i] = s.Label
	}

	xt := linalg.Transpose(x)
	xtx, err := linalg.Multiply(xt, x)
	if err != nil {
		return model.RegressionModel{}, fmt.Errorf("normal matrix: %w", err)
	}
	inv, err := e.invert(xtx, linalg.WithPivotTolerance(e.tolerance))
	if err != nil {
		return model.RegressionModel{}, fmt.Errorf("invert normal matrix: %w", err)
	}
	xty, err := linalg.Multiply(xt, linalg.Column(y))
	if err != nil {
		return model.RegressionModel{}, fmt.Errorf("moment vector: %w", err)
	}
	beta, err := linalg.Multiply(inv, xty)
	if err != nil {
		return model.RegressionModel{}, fmt.Errorf("solve coefficients: %w", err)
	}

	m := model.RegressionModel{SampleSize: n, Intercept: beta[0][0]}
	for i := range m.Coefficients {
		m.Coefficients[i] = beta[i+1][0]
	}
	if !finiteModel(m) {
		return model.RegressionModel{}, fmt.Errorf("non-finite coefficients: %w", linalg.ErrSingularMatrix)
	}
	return m, nil
}

func finiteModel(m model.RegressionModel) bool {
	if math.IsNaN(m.Intercept) || math.IsInf(m.Intercept, 0) {
		return false
	}
	for _, c := range m.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
