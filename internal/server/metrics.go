package server

import (
	"net/http"

	"degenmint/internal/orchestrator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsRegistry struct {
	registry        *prometheus.Registry
	purchasesTotal  *prometheus.CounterVec
	symbolScans     prometheus.Counter
	inFlight        prometheus.Gauge
	refreshRequests prometheus.Counter
}

func newMetricsRegistry() *metricsRegistry {
	purchases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "degenmint_purchases_total",
		Help: "Purchase submissions by kind and terminal status",
	}, []string{"kind", "status"})

	scans := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "degenmint_symbol_scans_total",
		Help: "Completed symbol availability scans",
	})

	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "degenmint_purchases_in_flight",
		Help: "Purchases currently awaiting signature or mining",
	})

	refreshes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "degenmint_refresh_requests_total",
		Help: "On-demand state refreshes requested over the API",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(purchases, scans, inFlight, refreshes)

	return &metricsRegistry{
		registry:        r,
		purchasesTotal:  purchases,
		symbolScans:     scans,
		inFlight:        inFlight,
		refreshRequests: refreshes,
	}
}

func (m *metricsRegistry) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// observe tracks orchestrator transitions: the gauge follows in-flight
// submissions and terminal states bump the counter.
func (m *metricsRegistry) observe(kind orchestrator.Kind, status orchestrator.Status) {
	switch status {
	case orchestrator.StatusAwaitingSignature:
		m.inFlight.Inc()
	case orchestrator.StatusConfirmed, orchestrator.StatusFailed:
		m.inFlight.Dec()
		m.purchasesTotal.WithLabelValues(string(kind), string(status)).Inc()
	}
}

func (m *metricsRegistry) incScan() {
	m.symbolScans.Inc()
}

func (m *metricsRegistry) incRefreshRequest() {
	m.refreshRequests.Inc()
}
