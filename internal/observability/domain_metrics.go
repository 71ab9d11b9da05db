package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopquery_translations_total",
			Help: "Questions translated to SQL, by outcome and query type.",
		},
		[]string{"outcome", "query_type"},
	)
	translationConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopquery_translation_confidence",
			Help:    "Confidence score attached to translations.",
			Buckets: []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)
	validationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopquery_validations_total",
			Help: "SQL statements checked by the safety gate, by result.",
		},
		[]string{"result"},
	)
	queryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopquery_query_executions_total",
			Help: "Statements submitted for execution, by status (success or error kind).",
		},
		[]string{"status"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopquery_query_duration_seconds",
			Help:    "Execution time of statements that reached the engine.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

func init() {
	prometheus.MustRegister(
		translationsTotal,
		translationConfidence,
		validationsTotal,
		queryExecutionsTotal,
		queryDurationSeconds,
	)
}

func ObserveTranslation(outcome, queryType string, confidence float64) {
	if queryType == "" {
		queryType = "none"
	}
	translationsTotal.WithLabelValues(outcome, queryType).Inc()
	translationConfidence.Observe(confidence)
}

func ObserveValidation(valid bool) {
	result := "rejected"
	if valid {
		result = "accepted"
	}
	validationsTotal.WithLabelValues(result).Inc()
}

// ObserveQueryExecution records one execution attempt. Durations are only observed for
// statements that reached the engine.
func ObserveQueryExecution(status string, duration time.Duration) {
	queryExecutionsTotal.WithLabelValues(status).Inc()
	if duration > 0 {
		queryDurationSeconds.Observe(duration.Seconds())
	}
}
