package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters for the studio. A nil *Metrics is valid
// and records nothing, so components can be built without metrics in tests.
type Metrics struct {
	registry            *prometheus.Registry
	suggestionFetches   *prometheus.CounterVec
	staleSuggestions    prometheus.Counter
	rejectedIngredients prometheus.Counter
	validationFailures  prometheus.Counter
	uploadsTotal        *prometheus.CounterVec
	uploadedBytes       prometheus.Counter
	frameExtractions    *prometheus.CounterVec
	activeSessions      prometheus.Gauge
}

// New creates and registers Prometheus metrics for the studio.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	suggestionFetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_suggestion_fetches_total",
		Help: "Ingredient suggestion lookups by outcome",
	}, []string{"outcome"})
	staleSuggestions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "studio_suggestion_stale_total",
		Help: "Suggestion responses discarded because a newer query superseded them",
	})
	rejectedIngredients := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "studio_ingredient_rejections_total",
		Help: "Ingredient names cleared because they matched no suggestion",
	})
	validationFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "studio_validation_failures_total",
		Help: "Submissions refused because a required field was empty",
	})
	uploadsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_uploads_total",
		Help: "Recipe submissions by outcome",
	}, []string{"outcome"})
	uploadedBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "studio_uploaded_bytes_total",
		Help: "Media bytes sent to the media host",
	})
	frameExtractions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_frame_extractions_total",
		Help: "Frame batch extractions by outcome",
	}, []string{"outcome"})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "studio_active_sessions",
		Help: "Number of open studio sessions",
	})

	registry.MustRegister(
		suggestionFetches,
		staleSuggestions,
		rejectedIngredients,
		validationFailures,
		uploadsTotal,
		uploadedBytes,
		frameExtractions,
		activeSessions,
	)

	return &Metrics{
		registry:            registry,
		suggestionFetches:   suggestionFetches,
		staleSuggestions:    staleSuggestions,
		rejectedIngredients: rejectedIngredients,
		validationFailures:  validationFailures,
		uploadsTotal:        uploadsTotal,
		uploadedBytes:       uploadedBytes,
		frameExtractions:    frameExtractions,
		activeSessions:      activeSessions,
	}
}

// IncSuggestionFetch counts a suggestion lookup ("ok" or "error").
func (m *Metrics) IncSuggestionFetch(outcome string) {
	if m == nil {
		return
	}
	m.suggestionFetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncStaleSuggestion() {
	if m == nil {
		return
	}
	m.staleSuggestions.Inc()
}

func (m *Metrics) IncRejectedIngredient() {
	if m == nil {
		return
	}
	m.rejectedIngredients.Inc()
}

func (m *Metrics) IncValidationFailure() {
	if m == nil {
		return
	}
	m.validationFailures.Inc()
}

// IncUpload counts a finished submission ("done" or "failed").
func (m *Metrics) IncUpload(outcome string) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddUploadedBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.uploadedBytes.Add(float64(n))
}

// IncFrameExtraction counts a frame batch ("ok" or "error").
func (m *Metrics) IncFrameExtraction(outcome string) {
	if m == nil {
		return
	}
	m.frameExtractions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
