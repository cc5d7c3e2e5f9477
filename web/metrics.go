package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odvcencio/parsley/gotreesitter"
)

// Metrics holds the collectors exported on /metrics. Each Metrics owns its
// registry so several servers can coexist in one process.
type Metrics struct {
	registry      *prometheus.Registry
	parseDuration *prometheus.HistogramVec
	chunks        *prometheus.CounterVec
	requests      *prometheus.CounterVec
	documents     prometheus.Gauge
}

// NewMetrics creates and registers the server collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		parseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "parsley",
			Name:      "parse_duration_seconds",
			Help:      "Time spent parsing documents, by parse kind.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 10),
		}, []string{"kind"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parsley",
			Name:      "chunks_total",
			Help:      "Top-level chunks produced by parses, by whether they were reused.",
		}, []string{"source"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parsley",
			Name:      "rpc_requests_total",
			Help:      "JSON-RPC requests handled, by method and outcome.",
		}, []string{"method", "status"}),
		documents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parsley",
			Name:      "open_documents",
			Help:      "Documents currently open across all connections.",
		}),
	}
	m.registry.MustRegister(m.parseDuration, m.chunks, m.requests, m.documents)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeParse(stats gotreesitter.ParseStats, seconds float64) {
	kind := "full"
	if stats.Incremental {
		kind = "incremental"
	}
	m.parseDuration.WithLabelValues(kind).Observe(seconds)
	m.chunks.WithLabelValues("reused").Add(float64(stats.ReusedChunks + stats.ShiftedChunks))
	m.chunks.WithLabelValues("parsed").Add(float64(stats.Chunks - stats.ReusedChunks - stats.ShiftedChunks))
}

func (m *Metrics) observeRequest(method string, err *rpcError) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.requests.WithLabelValues(method, status).Inc()
}
