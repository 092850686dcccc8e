// Package model holds the serialized logistic-regression match model and
// everything needed to apply and evaluate it without the training toolchain.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/courtstats/tennis-predict/internal/models"
)

// ModelType is the only model kind this package can apply.
const ModelType = "logistic_regression"

// keyFactorCount is how many contributions a prediction reports.
const keyFactorCount = 5

// ErrShapeMismatch is returned when the feature, coefficient and scaler
// arrays of a model differ in length.
var ErrShapeMismatch = errors.New("model: feature, coefficient and scaler lengths differ")

// Scaler holds per-feature standardization parameters.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// RankedFeature is a feature ordered by absolute coefficient.
type RankedFeature struct {
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
}

// Metadata describes how and when a model was trained.
type Metadata struct {
	TrainedAt       string          `json:"trained_at,omitempty"`
	TrainingSamples int             `json:"training_samples"`
	TestSamples     int             `json:"test_samples"`
	Accuracy        float64         `json:"accuracy"`
	AUC             float64         `json:"auc"`
	LogLoss         float64         `json:"log_loss"`
	TopFeatures     []RankedFeature `json:"top_features,omitempty"`
	RunID           string          `json:"run_id,omitempty"`
}

// Model is the JSON model document.
type Model struct {
	ModelType    string    `json:"model_type"`
	Features     []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Scaler       Scaler    `json:"scaler"`
	Metadata     Metadata  `json:"metadata"`
}

// Validate checks the arrays line up.
func (m *Model) Validate() error {
	n := len(m.Features)
	if len(m.Coefficients) != n || len(m.Scaler.Mean) != n || len(m.Scaler.Scale) != n {
		return fmt.Errorf("%w: features=%d coefficients=%d mean=%d scale=%d", ErrShapeMismatch,
			n, len(m.Coefficients), len(m.Scaler.Mean), len(m.Scaler.Scale))
	}
	if m.ModelType != "" && m.ModelType != ModelType {
		return fmt.Errorf("model: unsupported model_type %q", m.ModelType)
	}
	return nil
}

// Load reads and validates a model file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save writes the model as indented JSON, creating parent directories.
func (m *Model) Save(path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create model directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Sigmoid is the logistic function, evaluated without overflow for large |z|.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1 + ez)
}

// scaled standardizes raw for feature i. A zero scale contributes nothing.
func (m *Model) scaled(i int, raw float64) float64 {
	if m.Scaler.Scale[i] == 0 {
		return 0
	}
	return (raw - m.Scaler.Mean[i]) / m.Scaler.Scale[i]
}

// Probability returns P(p1 wins) for raw values aligned with m.Features.
func (m *Model) Probability(raw []float64) float64 {
	z := m.Intercept
	for i := range m.Features {
		z += m.Coefficients[i] * m.scaled(i, raw[i])
	}
	return Sigmoid(z)
}

// ProbabilityOf is Probability for a full feature vector.
func (m *Model) ProbabilityOf(v *models.FeatureVector) float64 {
	return m.Probability(v.Select(m.Features))
}

// Predict applies the model to named raw feature values. Features missing
// from the map read as 0.
func (m *Model) Predict(features map[string]float64) models.MatchPrediction {
	type contribution struct {
		name  string
		value float64
	}

	z := m.Intercept
	contribs := make([]contribution, len(m.Features))
	for i, name := range m.Features {
		c := m.Coefficients[i] * m.scaled(i, features[name])
		z += c
		contribs[i] = contribution{name: name, value: c}
	}
	p := Sigmoid(z)

	sort.SliceStable(contribs, func(a, b int) bool {
		return math.Abs(contribs[a].value) > math.Abs(contribs[b].value)
	})
	if len(contribs) > keyFactorCount {
		contribs = contribs[:keyFactorCount]
	}

	factors := make([]models.KeyFactor, 0, len(contribs))
	for _, c := range contribs {
		dir := models.FavorsP2
		if c.value > 0 {
			dir = models.FavorsP1
		}
		factors = append(factors, models.KeyFactor{
			Feature:   c.name,
			Label:     models.FeatureLabel(c.name),
			Impact:    round(math.Abs(c.value), 3),
			Direction: dir,
		})
	}

	return models.MatchPrediction{
		P1WinProb:  round(p, 4),
		P2WinProb:  round(1-p, 4),
		Confidence: round(math.Abs(p-0.5)*2, 4),
		KeyFactors: factors,
	}
}

// PredictVector is Predict for a full feature vector.
func (m *Model) PredictVector(v *models.FeatureVector) models.MatchPrediction {
	return m.Predict(v.Map())
}

// TopFeatures returns up to n features by absolute coefficient.
func (m *Model) TopFeatures(n int) []RankedFeature {
	ranked := make([]RankedFeature, len(m.Features))
	for i, name := range m.Features {
		ranked[i] = RankedFeature{Name: name, Importance: math.Abs(m.Coefficients[i])}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Importance > ranked[b].Importance
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	for i := range ranked {
		ranked[i].Importance = round(ranked[i].Importance, 4)
	}
	return ranked
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
