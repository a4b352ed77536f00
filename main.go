package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsrag/app"
	"newsrag/config"
	"newsrag/logger"
	"newsrag/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	log := logger.New("newsrag", cfg.LogLevel, cfg.IsDevelopment())
	cfg.LogSummary(log)

	// 3. Wire services
	ctx := context.Background()
	container, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer func() {
		if err := container.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to release resources")
		}
	}()

	// 4. HTTP server
	srv := server.New(container.Orchestrator, container.Retrieval, log, server.Options{
		CORSOrigins: cfg.CORSOrigins,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	// 5. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
