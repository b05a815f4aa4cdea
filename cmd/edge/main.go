package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lorrc/devexchange/internal/adapters/primary/edge"
	"github.com/lorrc/devexchange/internal/config"
	"github.com/lorrc/devexchange/internal/infrastructure/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name + "-edge",
		Environment: cfg.App.Environment,
	})

	logger.Info("starting edge guard",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"frontend", cfg.Edge.FrontendUpstream,
		"api", cfg.Edge.APIUpstream,
	)

	handler, err := edge.NewServer(cfg, logger)
	if err != nil {
		logger.Error("failed to build edge router", "error", err)
		os.Exit(1)
	}
	defer handler.Close()

	srv := &http.Server{
		Addr:         cfg.Edge.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Edge.ReadTimeout,
		WriteTimeout: cfg.Edge.WriteTimeout,
		IdleTimeout:  cfg.Edge.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Edge.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Edge.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
}
