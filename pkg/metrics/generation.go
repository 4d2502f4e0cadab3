package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Generation outcome labels.
const (
	OutcomeModel    = "model"
	OutcomeFallback = "fallback"
	OutcomeRejected = "rejected"
)

// GenerationMetrics records outfit generation outcomes and upstream failures.
type GenerationMetrics struct {
	duration    *prometheus.HistogramVec
	generations *prometheus.CounterVec
	upstream    *prometheus.CounterVec
}

// NewGenerationMetrics registers the generation metrics on the provided registerer.
func NewGenerationMetrics(reg prometheus.Registerer) *GenerationMetrics {
	if reg == nil {
		return &GenerationMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outfit_generation_duration_seconds",
		Help:    "Duration of outfit generation requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	generations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outfit_generations_total",
		Help: "Outfit generations by outcome.",
	}, []string{"outcome"})
	upstream := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_request_failures_total",
		Help: "Failed requests to upstream providers.",
	}, []string{"provider"})
	reg.MustRegister(duration, generations, upstream)
	return &GenerationMetrics{
		duration:    duration,
		generations: generations,
		upstream:    upstream,
	}
}

// ObserveGeneration records one generation with its outcome and duration.
func (g *GenerationMetrics) ObserveGeneration(outcome string, elapsed time.Duration) {
	if g == nil || g.generations == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	g.generations.WithLabelValues(outcome).Inc()
	g.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// IncUpstreamFailure increments the failure counter for the named provider.
func (g *GenerationMetrics) IncUpstreamFailure(provider string) {
	if g == nil || g.upstream == nil {
		return
	}
	g.upstream.WithLabelValues(normalizeLabel(provider)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
