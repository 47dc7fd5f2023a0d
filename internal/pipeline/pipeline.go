package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-gota/gota/dataframe"

	"github.com/couchcryptid/flight-delay-service/internal/artifact"
	"github.com/couchcryptid/flight-delay-service/internal/domain"
	"github.com/couchcryptid/flight-delay-service/internal/features"
	"github.com/couchcryptid/flight-delay-service/internal/forest"
	"github.com/couchcryptid/flight-delay-service/internal/observability"
	"github.com/couchcryptid/flight-delay-service/internal/predict"
)

// DefaultTestSize is the held-out share of rows used for evaluation.
const DefaultTestSize = 0.2

// ExampleFlight is scored after every training run as a smoke check: a
// Friday in December, O'Hare to LAX on American, 14:00 departure.
var ExampleFlight = domain.FlightQuery{
	Month: 12, DayOfMonth: 15, DayOfWeek: 5,
	OriginAirportID: 13930, DestAirportID: 12892,
	DepHour: 14, ArrHour: 17, Carrier: "AA",
}

// Source reads the raw flights table.
type Source interface {
	Load(ctx context.Context) (dataframe.DataFrame, error)
}

// Sink publishes a trained artifact set.
type Sink interface {
	Save(ctx context.Context, b *artifact.Bundle) error
}

// Options configures a training run.
type Options struct {
	Params   forest.Params
	TestSize float64
	// Report receives the human-readable evaluation report; nil discards it.
	Report io.Writer
}

// DefaultOptions returns the production training configuration.
func DefaultOptions() Options {
	return Options{Params: forest.DefaultParams(), TestSize: DefaultTestSize}
}

// Result summarizes a completed training run.
type Result struct {
	Bundle             *artifact.Bundle
	Report             forest.Report
	ExampleProbability float64
}

// Pipeline orchestrates read, prepare, split, fit, evaluate and save.
type Pipeline struct {
	source  Source
	sink    Sink
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Pipeline with the given stages and observability.
func New(src Source, sink Sink, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.TestSize == 0 {
		opts.TestSize = DefaultTestSize
	}
	if opts.Report == nil {
		opts.Report = io.Discard
	}
	return &Pipeline{source: src, sink: sink, opts: opts, logger: logger, metrics: metrics}
}

// Run trains one model and publishes its artifact set. Evaluation results are
// reported but never block publishing.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	p.logger.Info("training started",
		"trees", p.opts.Params.Trees,
		"max_depth", p.opts.Params.MaxDepth,
		"min_samples_split", p.opts.Params.MinSamplesSplit,
		"seed", p.opts.Params.Seed,
		"test_size", p.opts.TestSize,
	)

	var raw dataframe.DataFrame
	err := p.phase("read", func() (err error) {
		raw, err = p.source.Load(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read flights: %w", err)
	}
	p.logger.Info("dataset loaded", "rows", raw.Nrow(), "columns", raw.Ncol())
	p.logMissing(raw)
	p.setRows("source", raw.Nrow())

	var ds *features.Dataset
	if err := p.phase("prepare", func() (err error) {
		ds, err = features.Prepare(raw)
		return err
	}); err != nil {
		return nil, fmt.Errorf("prepare features: %w", err)
	}
	onTime, delayed := features.LabelCounts(ds.Y)
	p.logger.Info("cancelled flights removed",
		"rows", ds.Cleaned.Nrow(),
		"columns", ds.Cleaned.Ncol(),
		"dropped", raw.Nrow()-ds.Cleaned.Nrow(),
	)
	p.logger.Info("label distribution", "on_time", onTime, "delayed", delayed)
	p.setRows("cleaned", ds.Rows())

	airports, err := features.BuildAirports(ds.Cleaned)
	if err != nil {
		return nil, fmt.Errorf("build airports: %w", err)
	}
	p.logger.Info("airport lookup built", "airports", len(airports))

	trainIdx, testIdx, err := forest.StratifiedSplit(ds.Y, p.opts.TestSize, p.opts.Params.Seed)
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	trainX, trainY := forest.Rows(ds.X, ds.Y, trainIdx)
	testX, testY := forest.Rows(ds.X, ds.Y, testIdx)
	p.logger.Info("dataset split", "train_rows", len(trainY), "test_rows", len(testY))
	p.setRows("train", len(trainY))
	p.setRows("test", len(testY))

	var model *forest.Forest
	if err := p.phase("fit", func() (err error) {
		model, err = forest.Fit(ctx, trainX, trainY, p.opts.Params)
		return err
	}); err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}

	var report forest.Report
	if err := p.phase("evaluate", func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		report = forest.Evaluate(model, testX, testY, ds.Columns)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("evaluate model: %w", err)
	}
	p.logReport(report)

	manifest := artifact.NewManifest()
	manifest.SourceRows = raw.Nrow()
	manifest.TrainRows = len(trainY)
	manifest.TestRows = len(testY)
	manifest.Airports = len(airports)
	manifest.Seed = p.opts.Params.Seed
	manifest.Trees = len(model.Trees)
	manifest.ROCAUC = report.ROCAUC
	manifest.Accuracy = report.Accuracy
	manifest.FeatureColumns = ds.Columns

	bundle := &artifact.Bundle{
		Model:          model,
		Encoders:       ds.Encoders,
		FeatureColumns: ds.Columns,
		Airports:       airports,
		Manifest:       manifest,
	}

	example, err := exampleProbability(bundle)
	if err != nil {
		return nil, fmt.Errorf("score example flight: %w", err)
	}
	p.logger.Info("example prediction",
		"origin", ExampleFlight.OriginAirportID,
		"dest", ExampleFlight.DestAirportID,
		"carrier", ExampleFlight.Carrier,
		"delay_probability", example,
	)

	if err := p.phase("save", func() error { return p.sink.Save(ctx, bundle) }); err != nil {
		return nil, fmt.Errorf("save artifacts: %w", err)
	}
	p.logger.Info("training complete", "run_id", manifest.RunID)

	return &Result{Bundle: bundle, Report: report, ExampleProbability: example}, nil
}

// phase times fn and records it under name.
func (p *Pipeline) phase(name string, fn func() error) error {
	start := domain.Clock().Now()
	err := fn()
	elapsed := domain.Clock().Since(start)
	if p.metrics != nil {
		p.metrics.TrainingDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}
	if err != nil {
		p.logger.Error("training phase failed", "phase", name, "error", err, "duration", elapsed)
		return err
	}
	p.logger.Debug("training phase done", "phase", name, "duration", elapsed.Round(time.Millisecond))
	return nil
}

func (p *Pipeline) setRows(stage string, n int) {
	if p.metrics != nil {
		p.metrics.TrainingRows.WithLabelValues(stage).Set(float64(n))
	}
}

func (p *Pipeline) logMissing(df dataframe.DataFrame) {
	attrs := make([]any, 0, 2*df.Ncol())
	for _, c := range features.MissingCounts(df) {
		if c.Count > 0 {
			attrs = append(attrs, c.Column, c.Count)
		}
	}
	if len(attrs) == 0 {
		p.logger.Info("no missing values")
		return
	}
	p.logger.Info("missing values", attrs...)
}

func (p *Pipeline) logReport(r forest.Report) {
	if p.metrics != nil {
		p.metrics.ModelROCAUC.Set(r.ROCAUC)
		p.metrics.ModelAccuracy.Set(r.Accuracy)
	}
	p.logger.Info("model evaluated", "roc_auc", r.ROCAUC, "accuracy", r.Accuracy, "test_rows", r.TestRows)
	for i, imp := range r.Importances {
		if i == 10 {
			break
		}
		p.logger.Info("feature importance", "rank", i+1, "feature", imp.Feature, "importance", imp.Importance)
	}
	if err := r.Format(p.opts.Report); err != nil {
		p.logger.Warn("write evaluation report", "error", err)
	}
}

func exampleProbability(b *artifact.Bundle) (float64, error) {
	state, err := predict.FromBundle(b)
	if err != nil {
		return 0, err
	}
	return state.PredictFlight(ExampleFlight)
}
