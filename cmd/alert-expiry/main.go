package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/littlelanterns/medharmony-command-center-sub000/internal/appointment"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/config"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/db"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "alert-expiry").Logger()
	log.Info().Msg("alert-expiry worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("configuration loaded")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	repo := appointment.NewPgRepository(pgPool)

	// Run once at startup
	runOnce(rootCtx, repo, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping alert-expiry worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, repo, log)
		}
	}
}

func runOnce(ctx context.Context, alerts appointment.AlertStore, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := alerts.ExpireBefore(runCtx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("expiry run error")
		return
	}
	log.Info().Int64("expired", n).Dur("took", time.Since(start)).Msg("expiry run complete")
}
