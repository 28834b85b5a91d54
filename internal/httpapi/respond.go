package httpapi

import (
	"encoding/json"
	"net/http"
)

// maxBodyBytes bounds request bodies; every payload here is a small object.
const maxBodyBytes = 64 << 10

// jsonError writes {"error": msg} with the given status code.
func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object from the request body, rejecting
// unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		jsonError(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
