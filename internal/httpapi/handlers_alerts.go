package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jordanhubbard/llmdash/internal/alerts"
)

func alertError(w http.ResponseWriter, err error) {
	if errors.Is(err, alerts.ErrNotFound) {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	jsonError(w, err.Error(), http.StatusBadRequest)
}

// AlertsListHandler handles GET /api/v1/alerts.
func AlertsListHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"alerts": d.Alerts.List()})
	}
}

// AlertsAddHandler handles POST /api/v1/alerts. Omitted fields take the
// new-alert defaults.
func AlertsAddHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p alerts.Patch
		if !decodeJSON(w, r, &p) {
			return
		}
		a, err := d.Alerts.Add(p)
		if err != nil {
			alertError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// AlertsPatchHandler handles PATCH /api/v1/alerts/{id}.
func AlertsPatchHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p alerts.Patch
		if !decodeJSON(w, r, &p) {
			return
		}
		a, err := d.Alerts.Update(chi.URLParam(r, "id"), p)
		if err != nil {
			alertError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// AlertsDeleteHandler handles DELETE /api/v1/alerts/{id}.
func AlertsDeleteHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Alerts.Remove(chi.URLParam(r, "id")); err != nil {
			alertError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AlertsStatusHandler handles GET /api/v1/alerts/status: every alert
// evaluated against the spend of the current dashboard snapshot.
func AlertsStatusHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		spend := alerts.SpendFromDashboard(snapshot(d))
		writeJSON(w, http.StatusOK, map[string]any{
			"spend":  spend,
			"alerts": d.Alerts.Evaluate(spend),
		})
	}
}

// ChannelsGetHandler handles GET /api/v1/alerts/channels.
func ChannelsGetHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, d.Alerts.Channels())
	}
}

// ChannelsPutHandler handles PUT /api/v1/alerts/channels.
func ChannelsPutHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c alerts.Channels
		if !decodeJSON(w, r, &c) {
			return
		}
		got, err := d.Alerts.SetChannels(c)
		if err != nil {
			alertError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, got)
	}
}
