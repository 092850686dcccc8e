// Command pipeline fetches historical tour results, rebuilds player ratings
// and rolling statistics, and writes the leakage-free training dataset.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/courtstats/tennis-predict/internal/config"
)

func main() {
	envFile := ""
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(path); err == nil {
			envFile = path
			break
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	opts, err := parseFlags(os.Args[1:], cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if envFile != "" {
		logger.Info("Loaded environment file", zap.String("path", envFile))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error("Pipeline failed", zap.Error(err))
		os.Exit(1)
	}
}

// options are per-invocation switches that do not come from the environment.
type options struct {
	Force bool
	// PredictPath names a JSON array of upcoming fixtures to score.
	PredictPath     string
	PredictionsPath string
}

// parseFlags applies command-line overrides on top of cfg.
func parseFlags(args []string, cfg *config.Config) (options, error) {
	var opts options
	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)

	tours := fs.String("tours", strings.Join(cfg.Tours, ","), "comma-separated tours to include (atp, wta)")
	fs.IntVar(&cfg.TrainingYearStart, "start-year", cfg.TrainingYearStart, "first season to fetch")
	fs.IntVar(&cfg.TrainingYearEnd, "end-year", cfg.TrainingYearEnd, "season to stop before (exclusive)")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "seed for the p1/p2 assignment")
	fs.StringVar(&cfg.DatasetPath, "out", cfg.DatasetPath, "dataset CSV output path")
	fs.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "model file to evaluate on the holdout")
	fs.BoolVar(&opts.Force, "force", false, "re-download source files even when cached")
	fs.StringVar(&opts.PredictPath, "predict", "", "JSON fixtures file to score with the model")
	fs.StringVar(&opts.PredictionsPath, "predictions", "", "predictions output path (default <DATA_DIR>/predictions.json)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.PredictionsPath == "" {
		opts.PredictionsPath = filepath.Join(cfg.DataDir, "predictions.json")
	}

	cfg.Tours = nil
	for _, t := range strings.Split(*tours, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			cfg.Tours = append(cfg.Tours, t)
		}
	}
	return opts, cfg.Validate()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Env == "production" {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}
