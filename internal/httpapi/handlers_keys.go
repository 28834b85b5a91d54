package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jordanhubbard/llmdash/internal/keystore"
)

// KeysListHandler handles GET /api/v1/keys.
func KeysListHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"keys": d.Keys.List()})
	}
}

// KeysAddHandler handles POST /api/v1/keys. A key that fails format
// validation is still created, with status "error".
func KeysAddHandler(d Dependencies) http.HandlerFunc {
	type addReq struct {
		Provider string `json:"provider"`
		Key      string `json:"key"`
		Name     string `json:"name"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req addReq
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Provider) == "" {
			jsonError(w, "provider required", http.StatusBadRequest)
			return
		}

		rec, err := d.Keys.Add(r.Context(), req.Provider, req.Key, strings.TrimSpace(req.Name))
		switch {
		case errors.Is(err, keystore.ErrEmptySecret):
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		case err != nil:
			d.logger().Warn("key added but not persisted",
				slog.String("id", rec.ID),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("error", err.Error()),
			)
			jsonError(w, "key kept in memory but not persisted: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

// KeysDeleteHandler handles DELETE /api/v1/keys/{id}. Unknown ids succeed.
func KeysDeleteHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Keys.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			jsonError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// KeysResetHandler handles POST /api/v1/keys/reset.
func KeysResetHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Keys.Reset(r.Context()); err != nil {
			jsonError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if d.Dashboard != nil {
			d.Dashboard.Invalidate()
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// KeysTestHandler handles POST /api/v1/keys/{id}/test. It only refreshes the
// recency label; no request is made to the provider.
func KeysTestHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := d.Keys.Touch(r.Context(), chi.URLParam(r, "id"))
		switch {
		case errors.Is(err, keystore.ErrNotFound):
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		case err != nil:
			jsonError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}
