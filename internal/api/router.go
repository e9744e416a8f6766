package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/bookwell/scheduling/internal/booking"
	"github.com/bookwell/scheduling/internal/pkgcredit"
	"github.com/bookwell/scheduling/internal/reminder"
)

type RouterConfig struct {
	Bookings  *booking.Service
	Packages  *pkgcredit.Service
	Reminders *reminder.Dispatcher
	Location  *time.Location
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Scheduling endpoints
	r.Get("/availability", availabilityHandler(cfg.Bookings, loc))
	r.Post("/appointments", createAppointmentHandler(cfg.Bookings, loc))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Bookings))
	r.Post("/appointments/{id}/status", updateStatusHandler(cfg.Bookings))

	// Package credit endpoints
	r.Post("/packages/assign", assignPackageHandler(cfg.Packages))
	r.Post("/packages/usages/{id}/consume", consumeUsageHandler(cfg.Packages))
	r.Delete("/packages/{id}", removePackageHandler(cfg.Packages))

	// External scheduler hook
	r.Post("/reminders/run", runRemindersHandler(cfg.Reminders))

	return r
}
