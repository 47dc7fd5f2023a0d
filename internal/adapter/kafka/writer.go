package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/flight-delay-service/internal/config"
	"github.com/couchcryptid/flight-delay-service/internal/domain"
	"github.com/couchcryptid/flight-delay-service/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

const (
	// publishTimeout bounds one publish so a slow broker cannot stall a request.
	publishTimeout = 2 * time.Second
	// flushInterval caps how long a write waits for a batch to fill. Each
	// request publishes one event, so batches flush on size.
	flushInterval = 5 * time.Millisecond
)

// messageWriter is the subset of kafka-go's Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher sends prediction events to a Kafka topic. Writes go through a
// circuit breaker; while it is open events are dropped without touching the
// broker.
type Publisher struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPublisher creates a Kafka producer for the configured prediction topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	return newPublisher(newWriter(cfg), logger, metrics)
}

func newWriter(cfg *config.Config) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaPredictionTopic,
		Balancer:               &kafkago.Hash{},
		BatchSize:              1,
		BatchTimeout:           flushInterval,
		RequiredAcks:           kafkago.RequireOne,
		WriteTimeout:           publishTimeout,
		AllowAutoTopicCreation: true,
	}
}

func newPublisher(w messageWriter, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	p := &Publisher{writer: w, logger: logger, metrics: metrics}
	p.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka-predictions",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return p
}

// Publish writes one prediction event. Errors are returned for logging only.
func (p *Publisher) Publish(ctx context.Context, event domain.PredictionEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		p.record("error")
		return err
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		wctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		return struct{}{}, p.writer.WriteMessages(wctx, msg)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		p.record("rejected")
		return fmt.Errorf("publish prediction event: %w", err)
	case err != nil:
		p.record("error")
		return fmt.Errorf("publish prediction event: %w", err)
	}
	p.record("success")
	return nil
}

func (p *Publisher) record(outcome string) {
	if p.metrics != nil {
		p.metrics.EventsPublished.WithLabelValues(outcome).Inc()
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a PredictionEvent into a Kafka message keyed
// by route so events for one route share a partition.
func serializeToMessage(event domain.PredictionEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(fmt.Sprintf("%d-%d", event.Request.OriginAirportID, event.Request.DestAirportID)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "created_at", Value: []byte(event.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
