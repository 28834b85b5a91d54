package httpapi

import (
	"net/http"

	"github.com/jordanhubbard/llmdash/internal/settings"
)

// SettingsGetHandler handles GET /api/v1/settings.
func SettingsGetHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, d.Settings.Get())
	}
}

// SettingsPutHandler handles PUT /api/v1/settings with a partial body.
func SettingsPutHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p settings.Patch
		if !decodeJSON(w, r, &p) {
			return
		}
		s, err := d.Settings.Update(p)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}
