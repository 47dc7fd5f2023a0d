// Command train fits the flight delay model on a BTS on-time CSV and
// publishes the artifact set the api command serves.
//
// Usage:
//
//	go run ./cmd/train -data data/flights.csv -out models
//
// Flags override the corresponding TRAIN_*, DATA_PATH and ARTIFACT_DIR
// environment settings.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/flight-delay-service/internal/config"
	"github.com/couchcryptid/flight-delay-service/internal/forest"
	"github.com/couchcryptid/flight-delay-service/internal/observability"
	"github.com/couchcryptid/flight-delay-service/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		slog.Error("training failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dataPath := flag.String("data", cfg.DataPath, "path to the flights CSV")
	outDir := flag.String("out", cfg.ArtifactDir, "artifact directory to publish into")
	seed := flag.Uint64("seed", cfg.TrainSeed, "random seed for the split and the forest")
	trees := flag.Int("trees", cfg.TrainTrees, "number of trees")
	workers := flag.Int("workers", cfg.TrainWorkers, "concurrent tree fits")
	flag.Parse()

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := pipeline.Options{
		Params: forest.Params{
			Trees:           *trees,
			MaxDepth:        cfg.TrainMaxDepth,
			MinSamplesSplit: cfg.TrainMinSamplesSplit,
			Seed:            *seed,
			Workers:         *workers,
		},
		TestSize: cfg.TrainTestSize,
		Report:   os.Stdout,
	}

	logger.Info("loading data", "path", *dataPath)
	p := pipeline.New(
		pipeline.FileSource{Path: *dataPath},
		pipeline.DirSink{Dir: *outDir},
		opts, logger, metrics,
	)
	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("artifacts saved",
		"dir", *outDir,
		"run_id", res.Bundle.Manifest.RunID,
		"roc_auc", res.Report.ROCAUC,
		"example_delay_probability", res.ExampleProbability,
	)
	return nil
}
