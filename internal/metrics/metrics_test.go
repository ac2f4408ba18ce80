package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rovshanmuradov/pool-migrator/internal/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMigration(t *testing.T) {
	c := NewCollector()

	c.RecordMigration("local", "So11111111111111111111111111111111111111112", 10_000_000, time.Millisecond, nil)
	c.RecordMigration("local", "So11111111111111111111111111111111111111112", 0, time.Millisecond, migration.ErrAlreadyMigrated)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.migrations.WithLabelValues("local", "success", "0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.migrations.WithLabelValues("local", "failed", "6001")))
	assert.Equal(t, 10_000_000.0, testutil.ToFloat64(c.feeCollected.WithLabelValues("So11111111111111111111111111111111111111112")))
}

func TestRecordSubmitAttempt(t *testing.T) {
	c := NewCollector()
	c.RecordSubmitAttempt(assert.AnError, true)
	c.RecordSubmitAttempt(assert.AnError, false)
	c.RecordSubmitAttempt(nil, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.submitAttempts.WithLabelValues("retry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.submitAttempts.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.submitAttempts.WithLabelValues("confirmed")))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordMigration("local", "", 1, time.Second, nil)
		c.RecordSubmitAttempt(nil, false)
	})
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector()
	c.RecordSubmitAttempt(nil, false)

	path := filepath.Join(t.TempDir(), "migrator.prom")
	require.NoError(t, c.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pool_migrator_submit_attempts_total")
}
