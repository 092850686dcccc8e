package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/courtstats/tennis-predict/internal/config"
	"github.com/courtstats/tennis-predict/internal/logic"
	"github.com/courtstats/tennis-predict/internal/model"
	"github.com/courtstats/tennis-predict/internal/models"
	"github.com/courtstats/tennis-predict/internal/source"
)

var errNoModel = errors.New("prediction requires a model file")

// fixturePrediction is one line of the predictions output.
type fixturePrediction struct {
	P1ID    string         `json:"p1_id"`
	P1Name  string         `json:"p1_name,omitempty"`
	P2ID    string         `json:"p2_id"`
	P2Name  string         `json:"p2_name,omitempty"`
	Surface models.Surface `json:"surface"`
	models.MatchPrediction
}

// predictFixtures scores every fixture in opts.PredictPath against the
// ratings as they stand after the last fetched match.
func predictFixtures(cfg *config.Config, opts options, b *logic.FeatureBuilder, asOf time.Time, log *zap.SugaredLogger) error {
	if _, err := os.Stat(cfg.ModelPath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", errNoModel, cfg.ModelPath)
	}
	m, err := model.Load(cfg.ModelPath)
	if err != nil {
		return err
	}

	in, err := os.Open(opts.PredictPath)
	if err != nil {
		return fmt.Errorf("failed to open fixtures: %w", err)
	}
	fixtures, err := source.DecodeFixtures(in)
	in.Close()
	if err != nil {
		return err
	}

	out := make([]fixturePrediction, 0, len(fixtures))
	for i, f := range fixtures {
		if !f.Valid() {
			log.Warnw("Skipping fixture without two distinct players", "index", i)
			continue
		}
		v := b.FixtureFeatures(f, asOf)
		out = append(out, fixturePrediction{
			P1ID: f.P1.ID, P1Name: f.P1.Name,
			P2ID: f.P2.ID, P2Name: f.P2.Name,
			Surface:         f.Surface,
			MatchPrediction: m.PredictVector(&v),
		})
	}

	if err := os.MkdirAll(filepath.Dir(opts.PredictionsPath), 0o755); err != nil {
		return fmt.Errorf("failed to create predictions directory: %w", err)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.PredictionsPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write predictions: %w", err)
	}
	log.Infow("Wrote predictions", "path", opts.PredictionsPath, "fixtures", len(fixtures), "predicted", len(out))
	return nil
}
