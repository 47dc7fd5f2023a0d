package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080" validate:"required"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`

	ArtifactDir string `envconfig:"ARTIFACT_DIR" default:"models" validate:"required"`
	DataPath    string `envconfig:"DATA_PATH" default:"data/flights.csv" validate:"required"`

	// Training hyperparameters.
	TrainSeed            uint64  `envconfig:"TRAIN_SEED" default:"42"`
	TrainTrees           int     `envconfig:"TRAIN_TREES" default:"100" validate:"min=1"`
	TrainMaxDepth        int     `envconfig:"TRAIN_MAX_DEPTH" default:"10" validate:"min=1"`
	TrainMinSamplesSplit int     `envconfig:"TRAIN_MIN_SAMPLES_SPLIT" default:"100" validate:"min=2"`
	TrainTestSize        float64 `envconfig:"TRAIN_TEST_SIZE" default:"0.2" validate:"gt=0,lt=1"`
	TrainWorkers         int     `envconfig:"TRAIN_WORKERS" default:"4" validate:"min=1"`

	// Prediction event stream. Disabled when no brokers are configured.
	KafkaBrokers         []string `envconfig:"KAFKA_BROKERS"`
	KafkaPredictionTopic string   `envconfig:"KAFKA_PREDICTION_TOPIC" default:"flight-delay-predictions"`
	KafkaEnabled         bool     `ignored:"true"`
}

// Load reads configuration from the environment (and a .env file if one is
// present), applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.KafkaBrokers = parseBrokers(cfg.KafkaBrokers)

	cfg.KafkaEnabled = len(cfg.KafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("load config: invalid KAFKA_ENABLED %q", v)
		}
		cfg.KafkaEnabled = enabled
	}

	if err := newValidator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("load config: KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaPredictionTopic == "" {
		return nil, fmt.Errorf("load config: KAFKA_PREDICTION_TOPIC is required")
	}

	return &cfg, nil
}

// newValidator reports failures by environment variable name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("envconfig"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

func parseBrokers(raw []string) []string {
	brokers := make([]string, 0, len(raw))
	for _, b := range raw {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
