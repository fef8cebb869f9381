// Package metrics exposes Prometheus collectors for the audit service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stage labels recorded by ObserveStage.
const (
	StageScrape  = "scrape"
	StageAnalyze = "analyze"
	StageRender  = "render"
	StageEmail   = "email"
)

// USD per one million tokens, split by prompt and completion.
type modelPricing struct {
	promptPerMillion     float64
	completionPerMillion float64
}

var pricingTable = map[string]modelPricing{
	"gpt-4o-mini": {promptPerMillion: 0.15, completionPerMillion: 0.60},
	"gpt-4o":      {promptPerMillion: 2.50, completionPerMillion: 10.00},
}

var (
	auditJobsTotal             *prometheus.CounterVec
	auditStageDurationSeconds  *prometheus.HistogramVec
	auditActiveWorkers         prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	llmTokensTotal             *prometheus.CounterVec
	llmCostUSDTotal            *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		auditJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_jobs_total",
				Help: "Total number of audit jobs processed, labeled by status and tier.",
			},
			[]string{"status", "tier"},
		)

		auditStageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "audit_stage_duration_seconds",
				Help:    "Histogram of pipeline stage durations, labeled by stage.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		)

		auditActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "audit_active_workers",
				Help: "Number of workers currently processing a job.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		llmTokensTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total LLM tokens consumed, labeled by model and kind.",
			},
			[]string{"model", "kind"},
		)

		llmCostUSDTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_cost_usd_total",
				Help: "Estimated LLM spend in US dollars, labeled by model.",
			},
			[]string{"model"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the job counter for the given status and tier.
func ObserveJob(status, tier string) {
	auditJobsTotal.WithLabelValues(status, tier).Inc()
}

// ObserveStage records the duration of one pipeline stage.
func ObserveStage(stage string, duration time.Duration) {
	auditStageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	auditActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	auditActiveWorkers.Dec()
}

// ObserveLLMUsage records token consumption and the estimated cost for one
// completion. When the provider reports only a total, the split between
// prompt and completion tokens is estimated at 60/40.
func ObserveLLMUsage(model string, promptTokens, completionTokens, totalTokens int) {
	if promptTokens == 0 && completionTokens == 0 && totalTokens > 0 {
		promptTokens = totalTokens * 60 / 100
		completionTokens = totalTokens - promptTokens
	}
	if promptTokens > 0 {
		llmTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		llmTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if cost := EstimateCostUSD(model, promptTokens, completionTokens); cost > 0 {
		llmCostUSDTotal.WithLabelValues(model).Add(cost)
	}
}

// EstimateCostUSD returns the dollar cost of a completion for a known model,
// or zero for models without a pricing entry.
func EstimateCostUSD(model string, promptTokens, completionTokens int) float64 {
	pricing, ok := pricingTable[model]
	if !ok {
		return 0
	}
	const million = 1_000_000
	return float64(promptTokens)/million*pricing.promptPerMillion +
		float64(completionTokens)/million*pricing.completionPerMillion
}
