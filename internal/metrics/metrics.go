// Package metrics exposes Prometheus counters for scan activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avareg/quickscan/pkg/types"
)

// Collector tracks per-image scan outcomes.
type Collector struct {
	scansTotal   *prometheus.CounterVec
	toolFailures prometheus.Counter
	scanDuration prometheus.Histogram
}

// NewCollector registers the scan metrics with the given registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		scansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quickscan_scans_total",
			Help: "Number of image scans completed, by verdict.",
		}, []string{"verdict"}),
		toolFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "quickscan_tool_failures_total",
			Help: "Number of scans where the scan tool exited non-zero.",
		}),
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "quickscan_scan_duration_seconds",
			Help:    "Wall-clock duration of individual image scans.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// ObserveOutcome records one finished scan. Safe for concurrent use.
func (c *Collector) ObserveOutcome(outcome types.ScanOutcome) {
	c.scansTotal.WithLabelValues(string(outcome.Verdict)).Inc()
	if outcome.ToolExitFailed {
		c.toolFailures.Inc()
	}
	c.scanDuration.Observe(outcome.Elapsed.Seconds())
}

// NewServer builds an HTTP server exposing /metrics for the given
// gatherer. The caller starts and stops it.
func NewServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
