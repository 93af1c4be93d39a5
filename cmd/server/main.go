package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"electiondesk/internal/platform/config"
	"electiondesk/internal/platform/httpserver"
	"electiondesk/internal/platform/logger"
	platformmetrics "electiondesk/internal/platform/metrics"
	"electiondesk/pkg/platform/middleware/metadata"
	"electiondesk/pkg/platform/middleware/requesttime"
)

// main wires the backends, mounts the router and keeps the server lifecycle
// small. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := platformmetrics.NewRegistry()

	app, err := buildApp(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer app.Close()

	r := chi.NewRouter()
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Get("/healthz", app.handleHealth)
	r.Method(http.MethodGet, "/metrics", platformmetrics.Handler(reg))
	app.registryHandler.Register(r)
	app.votesHandler.Register(r)

	srv := httpserver.New(cfg.Server.Addr, r, cfg.Server.ReadHeaderTimeout)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting electiondesk", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
