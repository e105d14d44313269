package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AgentRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_agent_requests_total",
			Help: "Agent queries by classified query type and intent source",
		},
		[]string{"query_type", "source"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clinic_agent_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"stage"},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_agent_llm_calls_total",
			Help: "LLM completion attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	VectorPhases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_agent_vector_phases_total",
			Help: "Vector search phases executed",
		},
		[]string{"phase"},
	)

	EmbeddingCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_agent_embedding_cache_total",
			Help: "Embedding cache lookups by result",
		},
		[]string{"result"},
	)

	TasksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_agent_tasks_created_total",
			Help: "Todos created, by origin",
		},
		[]string{"origin"},
	)

	DuplicateTasks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_agent_duplicate_tasks_total",
			Help: "Transcript tasks skipped as duplicates",
		},
	)
)
