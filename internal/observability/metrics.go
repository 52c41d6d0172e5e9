// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scanner metrics
	SwapsClassified prometheus.Counter
	ScanErrors      prometheus.Counter
	ScanDuration    prometheus.Histogram
	WalletsTracked  prometheus.Gauge

	// Solana RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCFailovers   prometheus.Counter

	// Copy-trade metrics
	CopyTrades        *prometheus.CounterVec
	CopyTradeDuration prometheus.Histogram

	// Position monitor metrics
	AutoExits         *prometheus.CounterVec
	OpenPositions     prometheus.Gauge
	MonitorTickErrors prometheus.Counter

	// Enrichment metrics
	EnrichmentErrors prometheus.Counter

	// Health metrics
	LastSuccessfulScan prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_copydesk"
	}

	return &Metrics{
		// Scanner metrics
		SwapsClassified: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "swaps_classified_total",
			Help:      "Total number of swaps classified from scanned wallets",
		}),
		ScanErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "scan_errors_total",
			Help:      "Total number of wallet scans that failed",
		}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "scan_duration_seconds",
			Help:      "Wallet scan duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		WalletsTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "wallets_tracked",
			Help:      "Number of active followed wallets in the last scan cycle",
		}),

		// Solana RPC metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCFailovers: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_failovers_total",
			Help:      "Total number of RPC calls that fell back to a secondary endpoint",
		}),

		// Copy-trade metrics
		CopyTrades: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "copytrade",
			Name:      "dispatches_total",
			Help:      "Total number of copy-trade dispatches by outcome",
		}, []string{"outcome"}),
		CopyTradeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "copytrade",
			Name:      "execution_duration_seconds",
			Help:      "Copy-trade execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}),

		// Position monitor metrics
		AutoExits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "auto_exits_total",
			Help:      "Total number of automatic position exits by trigger",
		}, []string{"trigger"}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "open_positions",
			Help:      "Number of open positions seen in the last monitor tick",
		}),
		MonitorTickErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "tick_errors_total",
			Help:      "Total number of monitor ticks that failed",
		}),

		// Enrichment metrics
		EnrichmentErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "errors_total",
			Help:      "Total number of enrichment failures",
		}),

		// Health metrics
		LastSuccessfulScan: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_scan_timestamp",
			Help:      "Unix timestamp of the last fully successful scan cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSwapsClassified adds to the classified swap counter.
func RecordSwapsClassified(n int) {
	DefaultMetrics.SwapsClassified.Add(float64(n))
}

// RecordScan records a completed wallet scan.
func RecordScan(seconds float64, err error) {
	DefaultMetrics.ScanDuration.Observe(seconds)
	if err != nil {
		DefaultMetrics.ScanErrors.Inc()
	}
}

// RecordScanCycle records a completed scan cycle over all active wallets.
func RecordScanCycle(wallets int, unixSeconds int64) {
	DefaultMetrics.WalletsTracked.Set(float64(wallets))
	DefaultMetrics.LastSuccessfulScan.Set(float64(unixSeconds))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCFailover increments the RPC failover counter.
func RecordRPCFailover() {
	DefaultMetrics.RPCFailovers.Inc()
}

// RecordCopyTrade records a copy-trade dispatch outcome.
func RecordCopyTrade(outcome string, seconds float64) {
	DefaultMetrics.CopyTrades.WithLabelValues(outcome).Inc()
	DefaultMetrics.CopyTradeDuration.Observe(seconds)
}

// RecordAutoExit records an automatic position exit.
func RecordAutoExit(trigger string) {
	DefaultMetrics.AutoExits.WithLabelValues(trigger).Inc()
}

// RecordMonitorTick records the outcome of a monitor tick.
func RecordMonitorTick(openPositions int, err error) {
	DefaultMetrics.OpenPositions.Set(float64(openPositions))
	if err != nil {
		DefaultMetrics.MonitorTickErrors.Inc()
	}
}

// RecordEnrichmentError increments the enrichment failure counter.
func RecordEnrichmentError() {
	DefaultMetrics.EnrichmentErrors.Inc()
}
