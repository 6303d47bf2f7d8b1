package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/avareg/quickscan/pkg/types"
)

func TestCollector_ObserveOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveOutcome(types.ScanOutcome{Verdict: types.StatusPassed, Elapsed: 2 * time.Second})
	c.ObserveOutcome(types.ScanOutcome{Verdict: types.StatusFailed, Elapsed: 4 * time.Second})
	c.ObserveOutcome(types.ScanOutcome{Verdict: types.StatusFailed, ToolExitFailed: true, Elapsed: time.Second})

	assert.Equal(t, float64(1), testutil.ToFloat64(c.scansTotal.WithLabelValues("PASSED")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.scansTotal.WithLabelValues("FAILED")))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.scansTotal.WithLabelValues("NOT_APPLICABLE")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.toolFailures))

	count := testutil.CollectAndCount(c.scanDuration, "quickscan_scan_duration_seconds")
	assert.Equal(t, 1, count)
}

func TestNewServer_ServesMetricsPath(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	srv := NewServer("127.0.0.1:0", reg)
	assert.Equal(t, "127.0.0.1:0", srv.Addr)
	assert.NotNil(t, srv.Handler)
}
