package logic

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/courtstats/tennis-predict/internal/models"
	"github.com/courtstats/tennis-predict/internal/stats"
)

// AssemblerConfig configures a DatasetAssembler.
type AssemblerConfig struct {
	Store *stats.Store
	// Rand drives the p1/p2 assignment. Seed it for reproducible datasets.
	Rand         RandomSource
	LookbackDays int
	Logger       *zap.Logger
}

// DatasetAssembler applies the feature builder across many matches.
type DatasetAssembler struct {
	builder *FeatureBuilder
	logger  *zap.SugaredLogger
}

// NewSeededRand returns a random source for reproducible assignments.
func NewSeededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NewDatasetAssembler creates an assembler reading from cfg.Store.
func NewDatasetAssembler(cfg AssemblerConfig) *DatasetAssembler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Rand == nil {
		cfg.Rand = NewSeededRand(1)
	}
	b := NewFeatureBuilder(cfg.Store, cfg.Rand)
	if cfg.LookbackDays > 0 {
		b.WithLookback(cfg.LookbackDays)
	}
	return &DatasetAssembler{builder: b, logger: cfg.Logger.Sugar()}
}

// Assemble builds one row per usable match, in input order. Matches without
// a feature vector are left out without a placeholder.
func (a *DatasetAssembler) Assemble(matches []*models.MatchRecord) *models.Dataset {
	ds := &models.Dataset{
		Features: make([]models.FeatureVector, 0, len(matches)),
		Labels:   make([]int, 0, len(matches)),
	}

	dropped := 0
	for _, m := range matches {
		lv, reason := a.builder.build(m)
		if reason != "" {
			dropped++
			datasetRowsDropped.WithLabelValues(reason).Inc()
			continue
		}
		ds.Append(lv)
		datasetRows.Inc()
	}

	a.logger.Infow("Assembled dataset",
		"matches", len(matches),
		"rows", ds.Len(),
		"dropped", dropped,
		"p1WinRate", ds.PositiveRate(),
	)
	return ds
}
