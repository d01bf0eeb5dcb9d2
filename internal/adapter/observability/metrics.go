package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30, 60},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
		},
		[]string{"provider", "operation"},
	)

	// Pipeline stage outcomes: transcription/evaluation attempts per provider,
	// including the terminal fallback pseudo-provider.
	PipelineStageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_total",
			Help: "Total pipeline stage completions by stage, provider, and outcome",
		},
		[]string{"stage", "provider", "outcome"},
	)
	PipelineRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_retries_total",
			Help: "Total provider call retries by stage and provider",
		},
		[]string{"stage", "provider"},
	)

	AnswersSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "answers_submitted_total",
			Help: "Total answers accepted for evaluation",
		},
	)

	// Score distributions over evaluated answers.
	AnswerScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "answer_average_score",
			Help:    "Distribution of per-answer average scores (normalized [0,100])",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
	SessionScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "session_total_score",
			Help:    "Distribution of session total scores after aggregate recompute ([0,100])",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(PipelineStageTotal)
	prometheus.MustRegister(PipelineRetriesTotal)
	prometheus.MustRegister(AnswersSubmittedTotal)
	prometheus.MustRegister(AnswerScoreHistogram)
	prometheus.MustRegister(SessionScoreHistogram)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveAIRequest records one provider call with its duration.
func ObserveAIRequest(provider, operation string, dur time.Duration) {
	AIRequestsTotal.WithLabelValues(provider, operation).Inc()
	AIRequestDuration.WithLabelValues(provider, operation).Observe(dur.Seconds())
}

// StageOutcome records the terminal outcome of a pipeline stage.
func StageOutcome(stage, provider, outcome string) {
	PipelineStageTotal.WithLabelValues(stage, provider, outcome).Inc()
}

// ObserveScores records answer and session score distributions.
func ObserveAnswerScore(avg int) {
	if avg >= 0 && avg <= 100 {
		AnswerScoreHistogram.Observe(float64(avg))
	}
}

func ObserveSessionScore(total float64) {
	if total >= 0 && total <= 100 {
		SessionScoreHistogram.Observe(total)
	}
}
