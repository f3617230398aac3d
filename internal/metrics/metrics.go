// Package metrics exposes Prometheus metrics for the HTTP surface and the
// ticket repository.
package metrics

import (
	"errors"
	"time"

	apperrors "ticketapi/internal/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketapi_http_requests_total",
			Help: "Total HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketapi_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	repositoryOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketapi_repository_operations_total",
			Help: "Total repository operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	repositoryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketapi_repository_operation_duration_seconds",
			Help:    "Repository operation latency",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)

	eventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketapi_events_consumed_total",
			Help: "Ticket change events handled by the audit consumer",
		},
		[]string{"type", "outcome"},
	)
)

// ObserveHTTP records one served request.
func ObserveHTTP(method, route, status string, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveRepository records one repository call started at start.
func ObserveRepository(operation string, start time.Time, err error) {
	repositoryOperations.WithLabelValues(operation, Outcome(err)).Inc()
	repositoryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveEvent records one consumed ticket event.
func ObserveEvent(eventType, outcome string) {
	eventsConsumed.WithLabelValues(eventType, outcome).Inc()
}

// Outcome classifies an error for metric labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrInvalidFilter):
		return "invalid"
	}
	return "error"
}
