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
	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	AuthFailures *prometheus.CounterVec

	// Aggregator metrics
	UpstreamCallLatency *prometheus.HistogramVec
	UpstreamErrors      *prometheus.CounterVec
	QuotesRejected      *prometheus.CounterVec

	// Ledger metrics
	TradesCreated     *prometheus.CounterVec
	TradeTransitions  *prometheus.CounterVec
	TradeEventsFailed *prometheus.CounterVec

	// Settlement metrics
	ReconcileRuns    *prometheus.CounterVec
	ReconcileSettled *prometheus.CounterVec

	// Stream metrics
	StreamSubscribers prometheus.Gauge
	StreamDropped     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_stock_swap"
	}

	return &Metrics{
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		AuthFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Rejected credentials by reason",
		}, []string{"reason"}),

		UpstreamCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_duration_seconds",
			Help:      "Aggregator and RPC call latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"service", "operation"}),
		UpstreamErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Aggregator and RPC failures by operation and status",
		}, []string{"service", "operation", "status"}),
		QuotesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "quotes_rejected_total",
			Help:      "Quotes rejected before building a transaction",
		}, []string{"reason"}),

		TradesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "trades_created_total",
			Help:      "Trade records created by type and initial status",
		}, []string{"type", "status"}),
		TradeTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transitions_total",
			Help:      "Trade status transitions",
		}, []string{"from", "to"}),
		TradeEventsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "event_sink_errors_total",
			Help:      "Trade events that a sink failed to accept",
		}, []string{"sink"}),

		ReconcileRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "reconcile_runs_total",
			Help:      "Reconciler ticks by outcome",
		}, []string{"status"}),
		ReconcileSettled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "reconciled_trades_total",
			Help:      "Trades settled from on-chain status",
		}, []string{"status"}),

		StreamSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "Connected websocket subscribers",
		}),
		StreamDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "dropped_events_total",
			Help:      "Events dropped for slow subscribers",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordHTTPRequest records a served request.
func RecordHTTPRequest(method, route, status string, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(method, route, status).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordAuthFailure records a rejected credential.
func RecordAuthFailure(reason string) {
	DefaultMetrics.AuthFailures.WithLabelValues(reason).Inc()
}

// RecordUpstreamCall records latency of an outbound call and, on failure, its status.
func RecordUpstreamCall(service, operation string, seconds float64, status string, failed bool) {
	DefaultMetrics.UpstreamCallLatency.WithLabelValues(service, operation).Observe(seconds)
	if failed {
		DefaultMetrics.UpstreamErrors.WithLabelValues(service, operation, status).Inc()
	}
}

// RecordQuoteRejected records a quote refused by a safety check.
func RecordQuoteRejected(reason string) {
	DefaultMetrics.QuotesRejected.WithLabelValues(reason).Inc()
}

// RecordTradeCreated records a new ledger entry.
func RecordTradeCreated(tradeType, status string) {
	DefaultMetrics.TradesCreated.WithLabelValues(tradeType, status).Inc()
}

// RecordTradeTransition records a status change.
func RecordTradeTransition(from, to string) {
	DefaultMetrics.TradeTransitions.WithLabelValues(from, to).Inc()
}

// RecordEventSinkError records an event a sink could not take.
func RecordEventSinkError(sink string) {
	DefaultMetrics.TradeEventsFailed.WithLabelValues(sink).Inc()
}

// RecordReconcileRun records a reconciler tick.
func RecordReconcileRun(status string) {
	DefaultMetrics.ReconcileRuns.WithLabelValues(status).Inc()
}

// RecordReconciledTrade records a trade settled from chain state.
func RecordReconciledTrade(status string) {
	DefaultMetrics.ReconcileSettled.WithLabelValues(status).Inc()
}

// SetStreamSubscribers updates the connected subscriber gauge.
func SetStreamSubscribers(n int) {
	DefaultMetrics.StreamSubscribers.Set(float64(n))
}

// RecordStreamDropped records an event dropped for a slow subscriber.
func RecordStreamDropped() {
	DefaultMetrics.StreamDropped.Inc()
}
