package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/courtstats/tennis-predict/internal/models"
)

// DefaultTestFraction is the share of the newest rows held out for testing.
const DefaultTestFraction = 0.2

// logLossEps clips probabilities away from 0 and 1.
const logLossEps = 1e-15

// ErrEmptyDataset is returned when there is nothing to evaluate.
var ErrEmptyDataset = errors.New("model: empty dataset")

// ErrNoFeatures is returned when training is asked to use no features.
var ErrNoFeatures = errors.New("model: no features selected")

// Evaluation holds holdout metrics. AUC is NaN when the holdout contains a
// single class.
type Evaluation struct {
	Samples  int
	Accuracy float64
	LogLoss  float64
	AUC      float64
}

// Trainer fits coefficients and an intercept to standardized features.
// y holds 0/1 labels.
type Trainer interface {
	Train(ctx context.Context, x *mat.Dense, y []float64) (coefficients []float64, intercept float64, err error)
}

// ChronologicalSplit returns the oldest rows as train and the newest
// testFraction of rows as test, without shuffling.
func ChronologicalSplit(ds *models.Dataset, testFraction float64) (train, test *models.Dataset) {
	if testFraction < 0 {
		testFraction = 0
	}
	if testFraction > 1 {
		testFraction = 1
	}
	split := int(float64(ds.Len()) * (1 - testFraction))
	return ds.Slice(0, split), ds.Slice(split, ds.Len())
}

// FeatureMatrix projects ds onto names, one row per match. It returns nil
// for an empty dataset or an empty name list.
func FeatureMatrix(ds *models.Dataset, names []string) *mat.Dense {
	if ds.Len() == 0 || len(names) == 0 {
		return nil
	}
	x := mat.NewDense(ds.Len(), len(names), nil)
	for i := range ds.Features {
		x.SetRow(i, ds.Features[i].Select(names))
	}
	return x
}

// Labels returns ds labels as floats.
func Labels(ds *models.Dataset) []float64 {
	y := make([]float64, len(ds.Labels))
	for i, l := range ds.Labels {
		y[i] = float64(l)
	}
	return y
}

// Evaluate scores m on ds: accuracy at the 0.5 threshold, clipped log-loss
// and ROC AUC.
func Evaluate(m *Model, ds *models.Dataset) (Evaluation, error) {
	if ds.Len() == 0 {
		return Evaluation{}, ErrEmptyDataset
	}
	if err := m.Validate(); err != nil {
		return Evaluation{}, err
	}

	probs := make([]float64, ds.Len())
	for i := range ds.Features {
		probs[i] = m.ProbabilityOf(&ds.Features[i])
	}
	return score(probs, ds.Labels), nil
}

func score(probs []float64, labels []int) Evaluation {
	ev := Evaluation{Samples: len(probs)}

	correct := 0
	var loss float64
	for i, p := range probs {
		pred := 0
		if p > 0.5 {
			pred = 1
		}
		if pred == labels[i] {
			correct++
		}
		c := math.Min(math.Max(p, logLossEps), 1-logLossEps)
		if labels[i] == 1 {
			loss -= math.Log(c)
		} else {
			loss -= math.Log(1 - c)
		}
	}
	ev.Accuracy = float64(correct) / float64(len(probs))
	ev.LogLoss = loss / float64(len(probs))
	ev.AUC = rocAUC(probs, labels)
	return ev
}

// rocAUC is the area under the ROC curve of scores against labels.
func rocAUC(scores []float64, labels []int) float64 {
	pos := 0
	for _, l := range labels {
		pos += l
	}
	if pos == 0 || pos == len(labels) {
		return math.NaN()
	}

	y := append([]float64(nil), scores...)
	classes := make([]bool, len(labels))
	for i, l := range labels {
		classes[i] = l == 1
	}
	stat.SortWeightedLabeled(y, classes, nil)

	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// Fit runs the full training flow around an external optimizer: split,
// standardize on the training rows, train, then evaluate on the holdout.
func Fit(ctx context.Context, t Trainer, ds *models.Dataset, names []string, testFraction float64) (*Model, Evaluation, error) {
	if len(names) == 0 {
		return nil, Evaluation{}, ErrNoFeatures
	}
	trainSet, testSet := ChronologicalSplit(ds, testFraction)
	if trainSet.Len() == 0 || testSet.Len() == 0 {
		return nil, Evaluation{}, fmt.Errorf("%w: train=%d test=%d", ErrEmptyDataset, trainSet.Len(), testSet.Len())
	}

	x := FeatureMatrix(trainSet, names)
	scaler, err := FitScaler(x)
	if err != nil {
		return nil, Evaluation{}, err
	}

	coef, intercept, err := t.Train(ctx, scaler.Transform(x), Labels(trainSet))
	if err != nil {
		return nil, Evaluation{}, fmt.Errorf("training failed: %w", err)
	}

	m := &Model{
		ModelType:    ModelType,
		Features:     append([]string(nil), names...),
		Coefficients: coef,
		Intercept:    intercept,
		Scaler:       scaler,
	}
	ev, err := Evaluate(m, testSet)
	if err != nil {
		return nil, Evaluation{}, err
	}

	m.Metadata = Metadata{
		TrainedAt:       time.Now().UTC().Format(time.RFC3339),
		TrainingSamples: trainSet.Len(),
		TestSamples:     testSet.Len(),
		Accuracy:        round(ev.Accuracy, 4),
		AUC:             finite(round(ev.AUC, 4)),
		LogLoss:         round(ev.LogLoss, 4),
		TopFeatures:     m.TopFeatures(10),
	}
	return m, ev, nil
}

// finite maps NaN to 0 so metadata stays JSON-encodable.
func finite(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return x
}
