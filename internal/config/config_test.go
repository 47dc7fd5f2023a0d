package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "models", cfg.ArtifactDir)
	assert.Equal(t, "data/flights.csv", cfg.DataPath)
	assert.Equal(t, uint64(42), cfg.TrainSeed)
	assert.Equal(t, 100, cfg.TrainTrees)
	assert.Equal(t, 10, cfg.TrainMaxDepth)
	assert.Equal(t, 100, cfg.TrainMinSamplesSplit)
	assert.InDelta(t, 0.2, cfg.TrainTestSize, 1e-12)
	assert.Equal(t, 4, cfg.TrainWorkers)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "flight-delay-predictions", cfg.KafkaPredictionTopic)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("ARTIFACT_DIR", "/srv/models")
	t.Setenv("DATA_PATH", "/srv/data/flights.csv")
	t.Setenv("TRAIN_SEED", "7")
	t.Setenv("TRAIN_TREES", "25")
	t.Setenv("TRAIN_MAX_DEPTH", "6")
	t.Setenv("TRAIN_MIN_SAMPLES_SPLIT", "20")
	t.Setenv("TRAIN_TEST_SIZE", "0.25")
	t.Setenv("TRAIN_WORKERS", "8")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_PREDICTION_TOPIC", "custom-predictions")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/srv/models", cfg.ArtifactDir)
	assert.Equal(t, "/srv/data/flights.csv", cfg.DataPath)
	assert.Equal(t, uint64(7), cfg.TrainSeed)
	assert.Equal(t, 25, cfg.TrainTrees)
	assert.Equal(t, 6, cfg.TrainMaxDepth)
	assert.Equal(t, 20, cfg.TrainMinSamplesSplit)
	assert.InDelta(t, 0.25, cfg.TrainTestSize, 1e-12)
	assert.Equal(t, 8, cfg.TrainWorkers)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-predictions", cfg.KafkaPredictionTopic)
	assert.True(t, cfg.KafkaEnabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"LOG_LEVEL", "verbose"},
		{"LOG_FORMAT", "xml"},
		{"TRAIN_TREES", "0"},
		{"TRAIN_MAX_DEPTH", "abc"},
		{"TRAIN_MIN_SAMPLES_SPLIT", "1"},
		{"TRAIN_TEST_SIZE", "1.5"},
		{"TRAIN_TEST_SIZE", "0"},
		{"TRAIN_WORKERS", "0"},
		{"KAFKA_ENABLED", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}
