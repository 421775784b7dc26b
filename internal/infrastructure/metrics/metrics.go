package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiservices",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aiservices",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Token counters
	TokensPromptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiservices",
			Subsystem: "backend",
			Name:      "tokens_prompt_total",
			Help:      "Total estimated prompt tokens consumed",
		},
		[]string{"model", "provider"},
	)

	TokensCompletionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiservices",
			Subsystem: "backend",
			Name:      "tokens_completion_total",
			Help:      "Total estimated completion tokens generated",
		},
		[]string{"model", "provider"},
	)

	// Streamed fragments
	StreamFragmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiservices",
			Subsystem: "backend",
			Name:      "stream_fragments_total",
			Help:      "Total SSE fragments delivered to clients",
		},
		[]string{"model"},
	)

	// Provider errors
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiservices",
			Subsystem: "backend",
			Name:      "provider_errors_total",
			Help:      "Total provider call failures",
		},
		[]string{"provider", "error_type"},
	)

	// Conversations
	ConversationsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "aiservices",
			Subsystem: "backend",
			Name:      "conversations_created_total",
			Help:      "Total conversations created",
		},
	)

	// Quota rejections
	QuotaRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiservices",
			Subsystem: "backend",
			Name:      "quota_rejections_total",
			Help:      "Requests rejected because the caller's quota was exhausted",
		},
		[]string{"kind", "class"},
	)

	// Active streaming connections gauge
	ActiveStreams = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "aiservices",
			Subsystem: "backend",
			Name:      "active_streams",
			Help:      "Currently active streaming connections",
		},
		[]string{"model"},
	)

	// Provider health gauge
	ProviderHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "aiservices",
			Subsystem: "backend",
			Name:      "provider_health",
			Help:      "Provider health status (1=healthy, 0=unhealthy)",
		},
		[]string{"provider"},
	)

	// Images generated
	ImagesGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiservices",
			Subsystem: "backend",
			Name:      "images_generated_total",
			Help:      "Total images generated",
		},
		[]string{"model", "status"},
	)
)

// RecordRequest records an HTTP request with duration.
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint, status).Observe(durationSec)
}

// RecordTokens records estimated token usage for a completed turn.
func RecordTokens(model, provider string, promptTokens, completionTokens int) {
	TokensPromptTotal.WithLabelValues(model, provider).Add(float64(promptTokens))
	TokensCompletionTotal.WithLabelValues(model, provider).Add(float64(completionTokens))
}

// RecordStreamFragment counts one delivered SSE fragment.
func RecordStreamFragment(model string) {
	StreamFragmentsTotal.WithLabelValues(model).Inc()
}

// RecordProviderError records a provider error.
func RecordProviderError(provider, errorType string) {
	ProviderErrorsTotal.WithLabelValues(provider, errorType).Inc()
}

// RecordQuotaRejection counts a request turned away at the quota gate.
// class is the identity class ("user" or "guest"), never a per-caller key.
func RecordQuotaRejection(kind, class string) {
	QuotaRejectionsTotal.WithLabelValues(kind, class).Inc()
}

// SetProviderHealth sets the health status of a provider.
func SetProviderHealth(provider string, healthy bool) {
	val := 0.0
	if healthy {
		val = 1.0
	}
	ProviderHealth.WithLabelValues(provider).Set(val)
}

// IncrementActiveStreams increments the active streams gauge.
func IncrementActiveStreams(model string) {
	ActiveStreams.WithLabelValues(model).Inc()
}

// DecrementActiveStreams decrements the active streams gauge.
func DecrementActiveStreams(model string) {
	ActiveStreams.WithLabelValues(model).Dec()
}

// RecordImageGenerated counts an image generation attempt by outcome.
func RecordImageGenerated(model, status string) {
	ImagesGeneratedTotal.WithLabelValues(model, status).Inc()
}
