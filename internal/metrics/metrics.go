// Package metrics exposes the Prometheus registry for llmdash.
package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jordanhubbard/llmdash/internal/alerts"
	"github.com/jordanhubbard/llmdash/internal/keystore"
)

type Registry struct {
	reg *prometheus.Registry

	// keysMu serializes rebuilds of KeysByStatus.
	keysMu sync.Mutex

	KeyOps           *prometheus.CounterVec
	KeysByStatus     *prometheus.GaugeVec
	Derivations      prometheus.Counter
	DashboardCostUSD prometheus.Gauge
	AlertsTriggered  *prometheus.CounterVec
	RateLimited      prometheus.Counter
}

func New() *Registry {
	reg := prometheus.NewRegistry()
	m := &Registry{
		reg: reg,
		KeyOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llmdash_key_operations_total",
			Help: "Key store operations by kind and outcome",
		}, []string{"op", "ok"}),
		KeysByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "llmdash_keys",
			Help: "Registered API keys by provider and validation status",
		}, []string{"provider", "status"}),
		Derivations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "llmdash_dashboard_derivations_total",
			Help: "Dashboard snapshots computed (cache misses)",
		}),
		DashboardCostUSD: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "llmdash_dashboard_estimated_cost_usd",
			Help: "Estimated cost shown on the latest dashboard snapshot",
		}),
		AlertsTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llmdash_budget_alerts_triggered_total",
			Help: "Budget alerts that crossed their threshold",
		}, []string{"type"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "llmdash_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
	reg.MustRegister(m.KeyOps, m.KeysByStatus, m.Derivations, m.DashboardCostUSD, m.AlertsTriggered, m.RateLimited)
	return m
}

func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// KeyOp implements keystore.Observer.
func (m *Registry) KeyOp(op string, ok bool) {
	m.KeyOps.WithLabelValues(op, strconv.FormatBool(ok)).Inc()
}

type keyLabels struct {
	provider keystore.Provider
	status   keystore.Status
}

// KeysChanged implements keystore.Observer. The gauge is rebuilt from the
// full list so removed keys drop out.
func (m *Registry) KeysChanged(recs []keystore.Record) {
	counts := make(map[keyLabels]float64)
	for _, r := range recs {
		counts[keyLabels{r.Provider, r.Status}]++
	}

	m.keysMu.Lock()
	defer m.keysMu.Unlock()
	m.KeysByStatus.Reset()
	for l, n := range counts {
		m.KeysByStatus.WithLabelValues(string(l.provider), string(l.status)).Set(n)
	}
}

// AlertTriggered implements alerts.TriggerObserver.
func (m *Registry) AlertTriggered(t alerts.Type) {
	m.AlertsTriggered.WithLabelValues(string(t)).Inc()
}

var (
	_ keystore.Observer       = (*Registry)(nil)
	_ alerts.TriggerObserver = (*Registry)(nil)
)
