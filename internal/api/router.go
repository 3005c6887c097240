package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/littlelanterns/medharmony-command-center-sub000/internal/appointment"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/karma"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/schedule"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Slots        *schedule.Generator
	Schedules    schedule.ScheduleStore
	Blocks       schedule.BlockStore
	Karma        karma.Store
	ClinicLoc    *time.Location
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Log          zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Slot discovery
	r.Get("/providers/{id}/slots", availableSlotsHandler(cfg.Slots, cfg.ClinicLoc))

	// Weekly schedules and time blocks
	r.Get("/providers/{id}/schedule", listScheduleHandler(cfg.Schedules))
	r.Post("/providers/{id}/schedule", createScheduleEntryHandler(cfg.Schedules))
	r.Delete("/schedule/{id}", deactivateScheduleEntryHandler(cfg.Schedules))
	r.Get("/providers/{id}/blocks", listBlocksHandler(cfg.Blocks))
	r.Post("/providers/{id}/blocks", blockTimeHandler(cfg.Appointments))
	r.Delete("/blocks/{id}", deactivateBlockHandler(cfg.Blocks))

	// Appointment lifecycle
	r.Post("/appointments", bookHandler(cfg.Appointments))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/cancel", cancelHandler(cfg.Appointments))
	r.Post("/appointments/{id}/reschedule", rescheduleHandler(cfg.Appointments))
	r.Post("/appointments/{id}/confirm", confirmHandler(cfg.Appointments))
	r.Post("/alerts/{id}/claim", claimHandler(cfg.Appointments))
	r.Get("/patients/{id}/appointments", listPatientAppointmentsHandler(cfg.Appointments))

	// Karma
	r.Get("/patients/{id}/karma", karmaScoreHandler(cfg.Karma))
	r.Get("/patients/{id}/karma/history", karmaHistoryHandler(cfg.Karma))

	return r
}
