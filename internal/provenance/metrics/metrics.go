package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the provenance engine.
type Metrics struct {
	ProductsRegistered  prometheus.Counter
	TransfersCommitted  prometheus.Counter
	TransfersRejected   *prometheus.CounterVec
	VerificationChecks  *prometheus.CounterVec
	LockTimeouts        prometheus.Counter
	OperationDuration   *prometheus.HistogramVec
	VerifyCacheHits     prometheus.Counter
	VerifyCacheMisses   prometheus.Counter
}

// New creates and registers all provenance metrics.
func New() *Metrics {
	return &Metrics{
		ProductsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provchain_products_registered_total",
			Help: "Total number of products registered",
		}),
		TransfersCommitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provchain_transfers_committed_total",
			Help: "Total number of custody transfers committed",
		}),
		TransfersRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "provchain_transfers_rejected_total",
			Help: "Total number of custody transfers rejected, by reason",
		}, []string{"reason"}),
		VerificationChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "provchain_verification_checks_total",
			Help: "Total number of verification checks, by outcome",
		}, []string{"outcome"}),
		LockTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provchain_lock_timeouts_total",
			Help: "Total number of operations aborted waiting for a product lock",
		}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "provchain_operation_duration_seconds",
			Help:    "Engine operation latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		VerifyCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provchain_verify_cache_hits_total",
			Help: "Verification cache hits",
		}),
		VerifyCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provchain_verify_cache_misses_total",
			Help: "Verification cache misses",
		}),
	}
}

// RecordRejection increments the rejected-transfer counter for a reason.
func (m *Metrics) RecordRejection(reason string) {
	if m != nil {
		m.TransfersRejected.WithLabelValues(reason).Inc()
	}
}

// RecordVerification increments the verification counter for an outcome.
func (m *Metrics) RecordVerification(outcome string) {
	if m != nil {
		m.VerificationChecks.WithLabelValues(outcome).Inc()
	}
}

// ObserveDuration records an operation's latency in seconds.
func (m *Metrics) ObserveDuration(operation string, seconds float64) {
	if m != nil {
		m.OperationDuration.WithLabelValues(operation).Observe(seconds)
	}
}
