package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/wadjakorntonsri/tinyread/pkg/app"
	"github.com/wadjakorntonsri/tinyread/pkg/config"
	"github.com/wadjakorntonsri/tinyread/pkg/jobs"
	"github.com/wadjakorntonsri/tinyread/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer a.Close()

	reporter := jobs.NewStatsReporter(a.Service, a.Metrics, cfg.StatsSchedule, log)
	if cfg.StatsSchedule != "" {
		if err := reporter.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start stats reporter")
		}
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: a.Handler,
		// Generation can take up to the configured timeout.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Generator.Timeout + 15*time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	reporter.Stop(shutdownCtx)
}
