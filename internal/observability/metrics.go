package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the extraction pipeline
type Metrics struct {
	// Normalizer metrics
	FieldsNormalized prometheus.Counter
	FieldsDropped    *prometheus.CounterVec

	// Inference metrics
	HintLookups        *prometheus.CounterVec
	InferenceFallbacks prometheus.Counter
	RulesEmitted       *prometheus.CounterVec

	// Run metrics
	ExtractionDuration prometheus.Histogram
	SchemasGenerated   prometheus.Counter
	SchemaFields       prometheus.Gauge
}

// NewMetrics creates a new metrics instance with all Prometheus metrics registered
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "openbiz"
	}

	return &Metrics{
		FieldsNormalized: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fields_normalized_total",
				Help:      "Total number of raw elements normalized into fields",
			},
		),
		FieldsDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fields_dropped_total",
				Help:      "Raw elements dropped during normalization, by reason",
			},
			[]string{"reason"},
		),
		HintLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hint_lookups_total",
				Help:      "Attribute hint lookups, by outcome",
			},
			[]string{"outcome"},
		),
		InferenceFallbacks: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "inference_fallbacks_total",
				Help:      "Fields that fell back to minimal heuristic rules",
			},
		),
		RulesEmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rules_emitted_total",
				Help:      "Validation rules emitted, by rule type",
			},
			[]string{"rule_type"},
		),
		ExtractionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "extraction_duration_seconds",
				Help:      "End-to-end extraction run duration in seconds",
				Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		SchemasGenerated: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schemas_generated_total",
				Help:      "Total number of schema documents generated",
			},
		),
		SchemaFields: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "schema_fields",
				Help:      "Field count of the most recently generated schema",
			},
		),
	}
}
