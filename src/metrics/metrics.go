// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"git.flipper.school/flipper/flipper/src/fail"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flipper_http_requests_total",
		Help: "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flipper_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	}, []string{"route"})

	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flipper_operations_total",
		Help: "Repository operations by entity, operation and result",
	}, []string{"entity", "operation", "result"})

	DBQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flipper_db_query_duration_seconds",
		Help:    "Database query duration in seconds, by query name",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
	}, []string{"query"})

	ExpiredSessionsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flipper_expired_sessions_deleted_total",
		Help: "Sessions removed by the expiry job",
	})
)

// Result labels an operation outcome: "ok", the fail kind, or "error".
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	switch kind := fail.KindOf(err); kind {
	case fail.Unknown:
		return "error"
	default:
		return kind.String()
	}
}

// ObserveOperation counts one repository call.
func ObserveOperation(entity, operation string, err error) {
	Operations.WithLabelValues(entity, operation, Result(err)).Inc()
}

func ObserveQuery(name string, d time.Duration) {
	DBQueryDuration.WithLabelValues(name).Observe(d.Seconds())
}
