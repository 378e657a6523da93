// Package metrics declares the Prometheus instruments exported by the
// exam engine and serves them over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// QuestionsServed counts questions placed into sessions.
	QuestionsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "examprep_questions_served_total",
			Help: "Total number of questions drawn into practice sessions",
		},
	)

	// DegradedFetches counts topic queries that failed and were treated as empty.
	DegradedFetches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "examprep_question_fetch_degraded_total",
			Help: "Topic fetches that failed and contributed zero questions",
		},
	)

	// TxConflicts counts optimistic transaction attempts that lost a race.
	TxConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "examprep_docstore_tx_conflicts_total",
			Help: "Document store transaction attempts retried after a conflict",
		},
	)

	// Submissions counts session submissions by trigger (manual/timer).
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examprep_submissions_total",
			Help: "Total number of scored submissions",
		},
		[]string{"trigger"},
	)

	// AttemptsRecorded counts aggregate folds by outcome: recorded,
	// duplicate, lost, error, replayed, dropped.
	AttemptsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examprep_attempts_recorded_total",
			Help: "Attempt records written to test analytics",
		},
		[]string{"outcome"},
	)

	// RecordDuration times the analytics transaction.
	RecordDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "examprep_record_attempt_duration_seconds",
			Help:    "Time spent folding an attempt into test analytics",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// ActiveSessions tracks in-memory sessions held by the API server.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "examprep_active_sessions_current",
			Help: "Current number of unfinished practice sessions",
		},
	)

	// LLMRequests counts explanation model calls by outcome.
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examprep_llm_requests_total",
			Help: "Total number of LLM requests",
		},
		[]string{"provider", "purpose", "outcome"},
	)

	// LLMTokens counts tokens by direction (input/output).
	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examprep_llm_tokens_total",
			Help: "Tokens consumed by LLM requests",
		},
		[]string{"provider", "direction"},
	)

	// LLMDuration times single LLM calls, retries excluded.
	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "examprep_llm_request_duration_seconds",
			Help:    "Latency of LLM requests",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"provider"},
	)

	// HTTPRequests counts API requests.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examprep_http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration times API requests.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "examprep_http_request_duration_seconds",
			Help:    "Time spent serving API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
