// Command api serves flight delay predictions from a trained artifact set.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/flight-delay-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flight-delay-service/internal/adapter/kafka"
	"github.com/couchcryptid/flight-delay-service/internal/config"
	"github.com/couchcryptid/flight-delay-service/internal/observability"
	"github.com/couchcryptid/flight-delay-service/internal/predict"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// A missing or broken artifact set leaves the service up but unhealthy.
	var predictor httpadapter.Predictor
	state, err := predict.Load(cfg.ArtifactDir)
	if err != nil {
		logger.Error("failed to load model", "dir", cfg.ArtifactDir, "error", err)
	} else {
		predictor = state
		metrics.ModelLoaded.Set(1)
		logger.Info("model and data loaded", "dir", cfg.ArtifactDir, "run_id", state.RunID())
	}

	opts := []httpadapter.Option{httpadapter.WithMetrics(metrics)}
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger, metrics)
		opts = append(opts, httpadapter.WithPublisher(publisher))
		logger.Info("prediction events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaPredictionTopic)
	} else {
		logger.Info("prediction events disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, predictor, logger, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
