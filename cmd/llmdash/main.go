package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/jordanhubbard/llmdash/internal/app"
)

// version is set at build time via -ldflags.
var version = "dev"

const envFile = ".env"

func main() {
	// Distroless images have no curl, so the binary checks itself.
	if len(os.Args) > 1 && os.Args[1] == "-healthcheck" {
		if err := app.HealthCheck(context.Background(), os.Getenv("LLMDASH_LISTEN_ADDR")); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := run(); err != nil {
		log.Fatalf("llmdash: %v", err)
	}
}

func run() error {
	app.Version = version
	if err := app.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	srv, err := app.NewServer(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.Printf("llmdash: close: %v", err)
		}
	}()

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	return srv.Run(ctx, ln, hup, envFile)
}
