// omrserver serves the sheet reader over HTTP.
//
// Usage:
//
//	omrserver [-config omr.yaml]
//
// Settings not in the file come from OMR_* environment variables, for example
// OMR_SERVER_PORT=:9000 or OMR_DEBUG_S3_BUCKET=omr-debug.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"omr-reader/internal/config"
	"omr-reader/internal/debug"
	"omr-reader/internal/omr"
	"omr-reader/internal/server"
	"omr-reader/internal/version"

	"github.com/gin-gonic/gin"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config", "", "Configuration file (YAML or JSON)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, err := debug.New(ctx, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize debug sink: %w", err)
	}

	pipeline := omr.New(cfg, sink)
	h := server.NewHandler(pipeline, server.NewStore(), cfg.Server)
	r := server.Setup(h)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("omrserver %s starting on %s", version.String(), cfg.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
