// Package observability exposes Prometheus metrics and a health endpoint
// for the evaluation pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesSampled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arcs_queries_sampled_total",
		Help: "The total number of domain-query pairs sampled from query logs",
	})

	SearchRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arcs_search_request_duration_seconds",
		Help:    "Duration of catalog search API requests",
		Buckets: prometheus.DefBuckets,
	})

	CrowdRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arcs_crowd_request_duration_seconds",
		Help:    "Duration of crowdsourcing platform API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	JudgmentsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcs_judgments_fetched_total",
		Help: "The total number of judgments fetched from the platform",
	}, []string{"platform"})

	JudgmentsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arcs_judgments_persisted_total",
		Help: "The total number of judgments written to new query-result rows",
	})

	GroupNDCG = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arcs_group_avg_ndcg",
		Help: "Average NDCG for a group at its last summarization",
	}, []string{"group", "cutoff"})

	UndefinedNDCGQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcs_undefined_ndcg_queries_total",
		Help: "Queries excluded from summaries because their ideal DCG was zero",
	}, []string{"group"})
)
