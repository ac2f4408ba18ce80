// internal/metrics/metrics.go
// Package metrics exposes migration and submission counters in the
// Prometheus format.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rovshanmuradov/pool-migrator/internal/migration"
)

const namespace = "pool_migrator"

// Collector owns a private registry so several collectors can coexist.
// A nil *Collector records nothing.
type Collector struct {
	registry *prometheus.Registry

	migrations       *prometheus.CounterVec
	migrationSeconds *prometheus.HistogramVec
	feeCollected     *prometheus.CounterVec
	submitAttempts   *prometheus.CounterVec
}

// NewCollector creates and registers every metric.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		migrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "migrations_total",
				Help:      "Migration attempts by outcome and program error code",
			},
			[]string{"mode", "status", "code"},
		),
		migrationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "migration_duration_seconds",
				Help:      "Wall time of a migration attempt",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"mode"},
		),
		feeCollected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "seeding_fee_total",
				Help:      "Seeding fee collected, in raw quote units",
			},
			[]string{"quote_mint"},
		),
		submitAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submit_attempts_total",
				Help:      "seed_spl send attempts by result",
			},
			[]string{"result"},
		),
	}
	c.registry.MustRegister(c.migrations, c.migrationSeconds, c.feeCollected, c.submitAttempts)
	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordMigration counts one attempt. mode is "local" or "onchain".
func (c *Collector) RecordMigration(mode, quoteMint string, fee uint64, duration time.Duration, err error) {
	if c == nil {
		return
	}
	status, code := "success", "0"
	if err != nil {
		status = "failed"
		code = strconv.FormatUint(uint64(migration.Code(err)), 10)
	}
	c.migrations.WithLabelValues(mode, status, code).Inc()
	c.migrationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
	if err == nil && fee > 0 {
		c.feeCollected.WithLabelValues(quoteMint).Add(float64(fee))
	}
}

// RecordSubmitAttempt counts one send attempt; retryable failures are
// reported as "retry".
func (c *Collector) RecordSubmitAttempt(err error, retryable bool) {
	if c == nil {
		return
	}
	result := "confirmed"
	switch {
	case err != nil && retryable:
		result = "retry"
	case err != nil:
		result = "failed"
	}
	c.submitAttempts.WithLabelValues(result).Inc()
}

// WriteTextfile dumps the registry for the node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
