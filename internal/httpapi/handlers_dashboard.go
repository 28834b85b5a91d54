package httpapi

import (
	"net/http"

	"github.com/jordanhubbard/llmdash/internal/dashboard"
)

// DashboardHandler handles GET /api/v1/dashboard.
func DashboardHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, snapshot(d))
	}
}

// snapshot returns the memoized dashboard and records derivation metrics on
// a cache miss.
func snapshot(d Dependencies) dashboard.Dashboard {
	snap, fresh := d.Dashboard.Get(d.Keys.List())
	if fresh && d.Metrics != nil {
		d.Metrics.Derivations.Inc()
		d.Metrics.DashboardCostUSD.Set(snap.Totals.CostUSD.InexactFloat64())
	}
	return snap
}
