package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/courtstats/tennis-predict/internal/config"
	"github.com/courtstats/tennis-predict/internal/export"
	"github.com/courtstats/tennis-predict/internal/logic"
	"github.com/courtstats/tennis-predict/internal/model"
	"github.com/courtstats/tennis-predict/internal/models"
	"github.com/courtstats/tennis-predict/internal/source"
)

var errNoSamples = errors.New("no usable samples")

// sinks holds the optional external connections for one run.
type sinks struct {
	redis      *redis.Client
	postgres   *pgxpool.Pool
	clickhouse driver.Conn
	artifacts  *export.ArtifactStore
}

func (s *sinks) Close() {
	if s.redis != nil {
		s.redis.Close()
	}
	if s.postgres != nil {
		s.postgres.Close()
	}
	if s.clickhouse != nil {
		s.clickhouse.Close()
	}
}

// connect opens every sink whose URL is configured.
func connect(ctx context.Context, cfg *config.Config, runID string, logger *zap.Logger) (*sinks, error) {
	s := &sinks{}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return s, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		s.redis = redis.NewClient(opts)
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return s, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return s, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		s.postgres = pool
		if err := pool.Ping(ctx); err != nil {
			return s, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	if cfg.ClickHouseURL != "" {
		opts, err := clickhouse.ParseDSN(cfg.ClickHouseURL)
		if err != nil {
			return s, fmt.Errorf("invalid CLICKHOUSE_URL: %w", err)
		}
		conn, err := clickhouse.Open(opts)
		if err != nil {
			return s, fmt.Errorf("failed to open clickhouse: %w", err)
		}
		s.clickhouse = conn
		if err := conn.Ping(ctx); err != nil {
			return s, fmt.Errorf("failed to connect to clickhouse: %w", err)
		}
	}

	if cfg.S3Endpoint != "" {
		client, err := export.NewS3Client(export.S3Config{
			EndpointURL:     cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
		})
		if err != nil {
			return s, err
		}
		s.artifacts = export.NewArtifactStore(client, cfg.S3Bucket, cfg.S3Region, runID, logger)
	}

	return s, nil
}

// textCache prefers Redis and falls back to the on-disk cache.
func (s *sinks) textCache(cfg *config.Config) source.TextCache {
	if s.redis != nil {
		return source.NewRedisCache(s.redis, cfg.CacheTTL)
	}
	return source.NewFileCache(cfg.CacheDir(), cfg.CacheTTL)
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *zap.Logger) error {
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	log := logger.Sugar()
	started := time.Now()

	s, err := connect(ctx, cfg, runID, logger)
	defer s.Close()
	if err != nil {
		return err
	}

	// 1. Fetch
	fetcher := source.NewFetcher(source.FetcherConfig{
		BaseURLs:    cfg.BaseURLs(),
		Cache:       s.textCache(cfg),
		Concurrency: cfg.FetchConcurrency,
		Timeout:     cfg.FetchTimeout,
		RateLimit:   cfg.FetchRatePerSecond,
		RateBurst:   cfg.FetchRateBurst,
		MaxRetries:  cfg.FetchRetries,
		Force:       opts.Force,
		Logger:      logger,
	})

	byTour := make(map[string][]*models.MatchRecord, len(cfg.Tours))
	var all []*models.MatchRecord
	for _, tour := range cfg.Tours {
		matches, err := fetcher.FetchRange(ctx, tour, cfg.TrainingYearStart, cfg.TrainingYearEnd)
		if err != nil {
			return err
		}
		byTour[tour] = matches
		all = append(all, matches...)
	}
	log.Infow("Fetched match data", "tours", cfg.Tours, "matches", len(all))

	// 2. Player statistics
	acc, err := logic.NewAccumulator(logger).AccumulateTours(ctx, byTour)
	if err != nil {
		return fmt.Errorf("accumulation failed: %w", err)
	}
	log.Infow("Built player statistics", "players", acc.Store.Len(), "applied", acc.Applied, "skipped", acc.Skipped)

	// 3. Features, oldest first so the holdout is the newest slice
	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.Before(all[j].Date) })
	ds := logic.NewDatasetAssembler(logic.AssemblerConfig{
		Store:        acc.Store,
		Rand:         logic.NewSeededRand(cfg.Seed),
		LookbackDays: cfg.LookbackDays,
		Logger:       logger,
	}).Assemble(all)
	if ds.Len() == 0 {
		return errNoSamples
	}
	log.Infow("Built feature dataset", "samples", ds.Len(), "p1WinRate", ds.PositiveRate())

	if err := export.WriteCSVFile(cfg.DatasetPath, ds); err != nil {
		return err
	}
	log.Infow("Wrote dataset", "path", cfg.DatasetPath)
	if cfg.XLSXPath != "" {
		if err := export.WriteXLSXFile(cfg.XLSXPath, ds); err != nil {
			return err
		}
		log.Infow("Wrote dataset workbook", "path", cfg.XLSXPath)
	}

	// 4. Optional exports
	if err := exportResults(ctx, cfg, s, runID, logger, acc, all, ds); err != nil {
		return err
	}

	// 5. Holdout evaluation of an existing model
	modelFound, err := evaluateModel(cfg, ds, log)
	if err != nil {
		return err
	}

	// 6. Upcoming fixtures
	if opts.PredictPath != "" {
		asOf := all[len(all)-1].Date.AddDate(0, 0, 1)
		b := logic.NewFeatureBuilder(acc.Store, nil).WithLookback(cfg.LookbackDays)
		if err := predictFixtures(cfg, opts, b, asOf, log); err != nil {
			return err
		}
	}

	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, prometheus.DefaultGatherer); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	if s.artifacts != nil {
		if err := uploadArtifacts(ctx, cfg, s.artifacts, modelFound); err != nil {
			return err
		}
	}

	log.Infow("Pipeline complete", "duration", time.Since(started))
	return nil
}

func exportResults(ctx context.Context, cfg *config.Config, s *sinks, runID string, logger *zap.Logger,
	acc *logic.AccumulationResult, matches []*models.MatchRecord, ds *models.Dataset) error {
	if s.clickhouse != nil {
		w := export.NewDatasetWriter(s.clickhouse, runID, cfg.ExportBatchSize, logger)
		if err := w.EnsureTable(ctx); err != nil {
			return err
		}
		if _, err := w.Write(ctx, ds); err != nil {
			return err
		}
	}

	if s.postgres != nil {
		w := export.NewRatingsWriter(s.postgres, runID, cfg.ExportBatchSize, logger)
		if err := w.EnsureSchema(ctx); err != nil {
			return err
		}
		if _, err := w.WritePlayers(ctx, acc.Store, export.PlayerTours(matches)); err != nil {
			return err
		}
		if _, err := w.WriteSnapshots(ctx, matches); err != nil {
			return err
		}
	}

	if cfg.SQLitePath != "" {
		local, err := export.OpenLocalRatings(cfg.SQLitePath, runID, logger)
		if err != nil {
			return err
		}
		defer local.Close()
		if err := local.Write(ctx, acc.Store, export.PlayerTours(matches), matches); err != nil {
			return err
		}
	}
	return nil
}

// evaluateModel scores the model at cfg.ModelPath on the chronological
// holdout. A missing model file is not an error.
func evaluateModel(cfg *config.Config, ds *models.Dataset, log *zap.SugaredLogger) (bool, error) {
	if _, err := os.Stat(cfg.ModelPath); errors.Is(err, os.ErrNotExist) {
		log.Infow("No model file, skipping holdout evaluation", "path", cfg.ModelPath)
		return false, nil
	}

	m, err := model.Load(cfg.ModelPath)
	if err != nil {
		return false, err
	}
	_, test := model.ChronologicalSplit(ds, cfg.TestFraction)
	if test.Len() == 0 {
		log.Warnw("Holdout is empty, skipping evaluation", "samples", ds.Len())
		return true, nil
	}

	ev, err := model.Evaluate(m, test)
	if err != nil {
		return true, err
	}
	log.Infow("Evaluated model on holdout",
		"path", cfg.ModelPath,
		"samples", ev.Samples,
		"accuracy", ev.Accuracy,
		"auc", ev.AUC,
		"logLoss", ev.LogLoss,
		"topFeatures", m.TopFeatures(5),
	)
	return true, nil
}

func uploadArtifacts(ctx context.Context, cfg *config.Config, store *export.ArtifactStore, withModel bool) error {
	if err := store.EnsureBucket(ctx); err != nil {
		return err
	}
	if _, err := store.UploadFile(ctx, cfg.DatasetPath, "text/csv"); err != nil {
		return err
	}
	if cfg.XLSXPath != "" {
		if _, err := store.UploadFile(ctx, cfg.XLSXPath, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"); err != nil {
			return err
		}
	}
	if withModel {
		if _, err := store.UploadFile(ctx, cfg.ModelPath, "application/json"); err != nil {
			return err
		}
	}
	if cfg.MetricsFile != "" {
		if _, err := store.UploadFile(ctx, cfg.MetricsFile, "text/plain"); err != nil {
			return err
		}
	}
	return nil
}
