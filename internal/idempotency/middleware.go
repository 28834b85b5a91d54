package idempotency

import (
	"bytes"
	"net/http"
)

const (
	HeaderKey    = "Idempotency-Key"
	HeaderReplay = "Idempotency-Replay"
)

// Middleware replays the stored response when a request repeats an
// Idempotency-Key already seen for the same method and path. Only 2xx
// responses are stored so a failed attempt can be retried. Requests without
// the header pass through unchanged.
func Middleware(cache *Cache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			scoped := r.Method + " " + r.URL.Path + " " + key

			if e, ok := cache.Get(scoped); ok {
				for k, v := range e.Header {
					w.Header().Set(k, v)
				}
				w.Header().Set(HeaderReplay, "true")
				w.WriteHeader(e.StatusCode)
				_, _ = w.Write(e.Body)
				return
			}

			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode < 200 || rec.statusCode >= 300 {
				return
			}
			hdrs := make(map[string]string, len(rec.Header()))
			for k, v := range rec.Header() {
				if len(v) > 0 {
					hdrs[k] = v[0]
				}
			}
			cache.Set(scoped, Entry{Body: rec.body.Bytes(), StatusCode: rec.statusCode, Header: hdrs})
		})
	}
}

// responseRecorder tees the response body and status while writing through.
type responseRecorder struct {
	http.ResponseWriter
	body       bytes.Buffer
	statusCode int
	written    bool
}

func (r *responseRecorder) WriteHeader(code int) {
	if !r.written {
		r.statusCode = code
		r.written = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.written = true
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
