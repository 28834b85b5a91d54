package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests.
var ShutdownTimeout = 15 * time.Second

// HealthCheck calls /healthz on a locally running instance. addr is ":port"
// or "host:port"; an empty addr means ":8080".
func HealthCheck(ctx context.Context, addr string) error {
	if addr == "" {
		addr = ":8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("health check address %q: %w", addr, err)
	}
	if host == "" {
		host = "localhost"
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+net.JoinHostPort(host, port)+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// ReloadFromEnv re-reads envFiles over the current environment, rebuilds the
// configuration and applies it. On any error the running configuration is
// kept and the error is logged and returned.
func (s *Server) ReloadFromEnv(envFiles ...string) error {
	if err := ReloadDotEnv(envFiles...); err != nil {
		s.logger.Warn("env file reload failed, keeping current config", slog.String("error", err.Error()))
		return err
	}
	cfg, err := LoadConfig()
	if err != nil {
		s.logger.Warn("config reload failed, keeping current config", slog.String("error", err.Error()))
		return err
	}
	s.Reload(cfg)
	return nil
}

// Run serves the API on ln until ctx is done, then drains in-flight requests
// for up to ShutdownTimeout. Every value received on reload triggers
// ReloadFromEnv with envFiles. Run does not Close the server.
func (s *Server) Run(ctx context.Context, ln net.Listener, reload <-chan os.Signal, envFiles ...string) error {
	hs := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()
	s.logger.Info("llmdash listening", slog.String("addr", ln.Addr().String()), slog.String("version", Version))

	for {
		select {
		case sig := <-reload:
			s.logger.Info("reloading configuration", slog.String("signal", sig.String()))
			_ = s.ReloadFromEnv(envFiles...)
		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("serve: %w", err)
		case <-ctx.Done():
			s.logger.Info("shutting down, draining in-flight requests")
			sctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
			defer cancel()
			if err := hs.Shutdown(sctx); err != nil {
				return fmt.Errorf("http shutdown: %w", err)
			}
			s.logger.Info("shutdown complete")
			return nil
		}
	}
}
