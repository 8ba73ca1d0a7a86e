package metrics

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	RelayReasonDeadlineExceeded     = "deadline_exceeded"
	RelayReasonDBLockTimeout        = "db_lock_timeout"
	RelayReasonSerializationFailure = "serialization_failure"
	RelayReasonUniqueViolation      = "unique_violation"
	RelayReasonUnknown              = "unknown"
)

// RelayMetrics tracks the audit relay that backfills deferred audit entries.
type RelayMetrics struct {
	runs      prometheus.Counter
	relayed   prometheus.Counter
	failures  *prometheus.CounterVec
	pending   prometheus.Gauge
	runLength prometheus.Histogram
}

func NewRelayMetrics(registerer prometheus.Registerer, cfg Config) (*RelayMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := constLabelsFor(cfg)

	m := &RelayMetrics{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "donare_audit_relay_runs_total",
			Help:        "Audit relay sweeps.",
			ConstLabels: constLabels,
		}),
		relayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "donare_audit_relay_entries_total",
			Help:        "Audit entries written by the relay for deferred lifecycle events.",
			ConstLabels: constLabels,
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "donare_audit_relay_failures_total",
			Help:        "Audit relay failures by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "donare_audit_relay_pending",
			Help:        "Lifecycle events still waiting for an audit entry after the last sweep.",
			ConstLabels: constLabels,
		}),
		runLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "donare_audit_relay_run_duration_seconds",
			Help:        "Audit relay sweep latency.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			ConstLabels: constLabels,
		}),
	}

	var err error
	if m.runs, err = register(registerer, m.runs); err != nil {
		return nil, err
	}
	if m.relayed, err = register(registerer, m.relayed); err != nil {
		return nil, err
	}
	if m.failures, err = register(registerer, m.failures); err != nil {
		return nil, err
	}
	if m.pending, err = register(registerer, m.pending); err != nil {
		return nil, err
	}
	if m.runLength, err = register(registerer, m.runLength); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *RelayMetrics) ObserveRun(seconds float64, relayed, pending int) {
	if m == nil {
		return
	}
	m.runs.Inc()
	m.runLength.Observe(seconds)
	m.relayed.Add(float64(relayed))
	m.pending.Set(float64(pending))
}

func (m *RelayMetrics) RecordFailure(err error) {
	if m == nil || err == nil {
		return
	}
	m.failures.WithLabelValues(ClassifyRelayReason(err)).Inc()
}

// ClassifyRelayReason maps a relay error onto a bounded label value.
func ClassifyRelayReason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return RelayReasonDeadlineExceeded
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return RelayReasonUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return RelayReasonDBLockTimeout
		case "40001", "40P01":
			return RelayReasonSerializationFailure
		case "23505":
			return RelayReasonUniqueViolation
		}
	}
	return RelayReasonUnknown
}
