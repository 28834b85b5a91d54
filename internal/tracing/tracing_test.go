package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup(disabled) returned error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
}

func TestSetupEnabled(t *testing.T) {
	// The exporter connects lazily, so Setup succeeds with no collector.
	shutdown, err := Setup(context.Background(), Config{
		Enabled:     true,
		Endpoint:    "localhost:4318",
		Version:     "test",
		SampleRatio: 0.5,
	})
	if err != nil {
		t.Fatalf("Setup(enabled) returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = shutdown(ctx)
}

func TestSampler(t *testing.T) {
	always := sdktrace.ParentBased(sdktrace.AlwaysSample()).Description()
	for _, r := range []float64{0, -1, 1, 2} {
		if got := sampler(r).Description(); got != always {
			t.Errorf("sampler(%v) = %s, want %s", r, got, always)
		}
	}
	if got := sampler(0.25).Description(); got == always {
		t.Errorf("sampler(0.25) should be ratio based, got %s", got)
	}
}

func TestMiddlewareWrapsHandler(t *testing.T) {
	var called bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	Middleware()(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))

	if !called {
		t.Fatal("inner handler was not called through middleware")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestHTTPTransportRoundTrips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Transport: HTTPTransport(nil)}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
