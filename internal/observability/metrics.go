package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flight_delay"

// Metrics holds the Prometheus counters, histograms, and gauges for training
// and serving.
type Metrics struct {
	// Serving metrics.
	PredictionsTotal   *prometheus.CounterVec // labels: outcome={delayed,on_time,invalid,error}
	PredictionDuration prometheus.Histogram
	ModelLoaded        prometheus.Gauge
	EventsPublished    *prometheus.CounterVec // labels: outcome={success,error,rejected}

	// Training metrics.
	TrainingRows     *prometheus.GaugeVec     // labels: stage={source,cleaned,train,test}
	TrainingDuration *prometheus.HistogramVec // labels: phase={read,prepare,fit,evaluate,save}
	ModelROCAUC      prometheus.Gauge
	ModelAccuracy    prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PredictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by outcome.",
		}, []string{"outcome"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Time spent scoring a single prediction request.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		ModelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "1 when the serving artifacts are loaded, 0 otherwise.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_events_total",
			Help:      "Prediction events sent to Kafka by outcome.",
		}, []string{"outcome"}),
		TrainingRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_rows",
			Help:      "Row counts at each stage of the last training run.",
		}, []string{"stage"}),
		TrainingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_phase_duration_seconds",
			Help:      "Duration of each training pipeline phase.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"phase"}),
		ModelROCAUC: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_roc_auc",
			Help:      "ROC AUC of the last trained model on the held-out split.",
		}),
		ModelAccuracy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_accuracy",
			Help:      "Accuracy of the last trained model on the held-out split.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PredictionsTotal,
		m.PredictionDuration,
		m.ModelLoaded,
		m.EventsPublished,
		m.TrainingRows,
		m.TrainingDuration,
		m.ModelROCAUC,
		m.ModelAccuracy,
	}
}
