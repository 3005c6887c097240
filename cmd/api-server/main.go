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

	"github.com/littlelanterns/medharmony-command-center-sub000/internal/api"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/appointment"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/config"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/db"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/karma"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/match"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/notify"
	redisclient "github.com/littlelanterns/medharmony-command-center-sub000/internal/redis"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/schedule"
)

const version = "0.3.1"

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api-server").Logger()
	log.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configuration loaded")

	loc, err := cfg.ClinicLocation()
	if err != nil {
		log.Fatal().Err(err).Msg("clinic timezone error")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	scheduleRepo := schedule.NewPgRepository(pgPool)
	apptRepo := appointment.NewPgRepository(pgPool)
	karmaRepo := karma.NewPgRepository(pgPool)
	matchRepo := match.NewPgRepository(pgPool)
	dispatcher := notify.NewPgDispatcher(pgPool)

	generator := schedule.NewGenerator(scheduleRepo, scheduleRepo, scheduleRepo, scheduleRepo, loc)
	matcher := match.NewMatcher(matchRepo, matchRepo, dispatcher, cfg.MatchLimit, log.With().Str("component", "matcher").Logger())
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)

	svc := appointment.NewService(appointment.ServiceDeps{
		Appointments: apptRepo,
		Orders:       apptRepo,
		Alerts:       apptRepo,
		Blocks:       scheduleRepo,
		Providers:    scheduleRepo,
		Karma:        karmaRepo,
		Matcher:      matcher,
		Notifier:     dispatcher,
		Locker:       locker,
		AlertTTL:     cfg.AlertTTL,

		DefaultDurationMinutes: cfg.DefaultSlotMin,
		Log:                    log.With().Str("component", "appointments").Logger(),
	})

	router := api.NewRouter(api.RouterConfig{
		Appointments: svc,
		Slots:        generator,
		Schedules:    scheduleRepo,
		Blocks:       scheduleRepo,
		Karma:        karmaRepo,
		ClinicLoc:    loc,
		PgPool:       pgPool,
		Redis:        rdb,
		Log:          log.With().Str("component", "http").Logger(),
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("api-server stopped")
}
