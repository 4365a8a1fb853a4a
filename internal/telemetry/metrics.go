package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SurveyResponsesTotal tracks total number of survey responses
	SurveyResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "survey_responses_total",
			Help: "Total number of survey responses",
		},
		[]string{"source"}, // source: "api" or "web"
	)

	// SurveysSavedTotal tracks builder saves
	SurveysSavedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveys_saved_total",
			Help: "Total number of survey saves",
		},
		[]string{"operation"}, // operation: "create" or "update"
	)

	// HTTPRequestDuration tracks HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// StoreOperationDuration tracks persistence call latency per backend
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Persistence operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation", "status"},
	)

	// LiveSubscribers tracks open analytics websocket connections
	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_analytics_subscribers",
			Help: "Number of connected live analytics subscribers",
		},
	)

	// SurveysClosedTotal tracks surveys closed by the scheduled worker
	SurveysClosedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveys_closed_total",
			Help: "Total number of surveys closed by scheduled jobs",
		},
		[]string{"result"}, // result: "closed", "skipped" or "error"
	)
)

// AI generation metrics
var (
	AIGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_generations_total",
			Help: "Total number of AI survey generations",
		},
		[]string{"status"}, // success, error, rate_limited, budget_exceeded
	)

	AIGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_generation_duration_seconds",
			Help:    "AI survey generation duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
		},
	)

	AITokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Total number of LLM tokens consumed",
		},
		[]string{"type"}, // input, output
	)

	AIDailyCostUSD = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_daily_cost_usd",
			Help: "Estimated AI spend for the current day in USD",
		},
	)

	AIRateLimitHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_rate_limit_hits_total",
			Help: "Total number of AI generation requests rejected by rate limiting",
		},
		[]string{"user_type"}, // anonymous, authenticated
	)
)
