package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jordanhubbard/llmdash/internal/alerts"
	"github.com/jordanhubbard/llmdash/internal/dashboard"
	"github.com/jordanhubbard/llmdash/internal/idempotency"
	"github.com/jordanhubbard/llmdash/internal/keystore"
	"github.com/jordanhubbard/llmdash/internal/metrics"
	"github.com/jordanhubbard/llmdash/internal/settings"
)

type Dependencies struct {
	Keys      *keystore.Store
	Dashboard *dashboard.Memo
	Alerts    *alerts.Manager
	Settings  *settings.Store
	Metrics   *metrics.Registry

	// Idempotency replays retried key submissions (nil disables it).
	Idempotency *idempotency.Cache

	Logger *slog.Logger
}

func (d Dependencies) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func MountRoutes(r chi.Router, d Dependencies) {
	r.Get("/healthz", HealthHandler(d))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/keys", func(r chi.Router) {
			r.Get("/", KeysListHandler(d))
			r.With(idempotent(d.Idempotency)).Post("/", KeysAddHandler(d))
			r.Post("/reset", KeysResetHandler(d))
			r.Delete("/{id}", KeysDeleteHandler(d))
			r.Post("/{id}/test", KeysTestHandler(d))
		})

		r.Get("/dashboard", DashboardHandler(d))

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", AlertsListHandler(d))
			r.Post("/", AlertsAddHandler(d))
			r.Get("/status", AlertsStatusHandler(d))
			r.Get("/channels", ChannelsGetHandler(d))
			r.Put("/channels", ChannelsPutHandler(d))
			r.Patch("/{id}", AlertsPatchHandler(d))
			r.Delete("/{id}", AlertsDeleteHandler(d))
		})

		r.Get("/settings", SettingsGetHandler(d))
		r.Put("/settings", SettingsPutHandler(d))
	})
}

func idempotent(c *idempotency.Cache) func(http.Handler) http.Handler {
	if c == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return idempotency.Middleware(c)
}

// HealthHandler handles GET /healthz.
func HealthHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"keys":   d.Keys.Len(),
		})
	}
}
