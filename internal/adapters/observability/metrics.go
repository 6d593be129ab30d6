package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"tourism_occupancy/internal/domain"
)

const namespace = "tourism"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	DirectoryRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "directory_requests_total", Help: "Establishment directory lookups."},
		[]string{"kind", "status"},
	)
	DirectoryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "directory_request_duration_seconds",
			Help:    "Establishment directory lookup duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	QuestionnaireWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "questionnaire_writes_total", Help: "Questionnaire submits, updates and removals."},
		[]string{"kind", "op", "outcome"}, // op: submit|update|remove
	)
	AggregationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "aggregation_duration_seconds",
			Help:    "Statistics view computation seconds, scan included.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"view"},
	)
	TokenChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "token_checks_total", Help: "Bearer token verifications."},
		[]string{"result"}, // result: ok|missing|invalid|revoked|error
	)
)

// Serve exposes /metrics on a dedicated listener. An empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, DirectoryRequests, DirectoryLatency,
		QuestionnaireWrites, AggregationLatency, TokenChecks)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveDirectory(kind domain.Kind, status int, dur time.Duration) {
	DirectoryRequests.WithLabelValues(string(kind), strconv.Itoa(status)).Inc()
	DirectoryLatency.WithLabelValues(string(kind)).Observe(dur.Seconds())
}

func ObserveWrite(kind domain.Kind, op string, err error) {
	if kind == "" {
		kind = "unknown"
	}
	QuestionnaireWrites.WithLabelValues(string(kind), op, Outcome(err)).Inc()
}

func ObserveAggregation(view string, dur time.Duration) {
	AggregationLatency.WithLabelValues(view).Observe(dur.Seconds())
}

func ObserveToken(result string) {
	TokenChecks.WithLabelValues(result).Inc()
}

// Outcome labels an operation result by its domain error class.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	}
	return "error"
}
