package model

// Score bounds of the five-point outcome scale.
const (
	MinScore = 1.0
	MaxScore = 5.0
)

// RegressionModel is a fitted linear model over the active features.
// It is recomputed on every fit and never persisted.
type RegressionModel struct {
	SampleSize   int                     `json:"sample_size"`
	Intercept    float64                 `json:"intercept"`
	Coefficients [ActiveFeatures]float64 `json:"-"`
}

// Apply returns intercept + Σ βᵢxᵢ over the active features, unclamped.
func (m RegressionModel) Apply(f FeatureVector) float64 {
	y := m.Intercept
	for i, x := range f.Active() {
		y += m.Coefficients[i] * x
	}
	return y
}

// Named returns the coefficients keyed by feature name.
func (m RegressionModel) Named() map[string]float64 {
	out := make(map[string]float64, ActiveFeatures)
	for i, name := range FeatureNames {
		out[name] = m.Coefficients[i]
	}
	return out
}

// Prediction is the expected outcome of a target event.
type Prediction struct {
	EventID        string          `json:"event_id"`
	Features       FeatureVector   `json:"features"`
	PredictedScore float64         `json:"predicted_score"`
	Unclamped      float64         `json:"unclamped_score"`
	Model          RegressionModel `json:"-"`
}

// ClampScore bounds y to [MinScore, MaxScore].
func ClampScore(y float64) float64 {
	if y < MinScore {
		return MinScore
	}
	if y > MaxScore {
		return MaxScore
	}
	return y
}
