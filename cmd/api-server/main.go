package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookwell/scheduling/internal/api"
	"github.com/bookwell/scheduling/internal/booking"
	"github.com/bookwell/scheduling/internal/config"
	"github.com/bookwell/scheduling/internal/db"
	"github.com/bookwell/scheduling/internal/notify"
	"github.com/bookwell/scheduling/internal/observability/metrics"
	"github.com/bookwell/scheduling/internal/pkgcredit"
	redisclient "github.com/bookwell/scheduling/internal/redis"
	"github.com/bookwell/scheduling/internal/reminder"
)

const version = "0.3.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s timezone=%s", cfg.Env, cfg.HTTPPort, cfg.BusinessTimezone)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	m := metrics.NewSchedulingMetrics(nil)

	creditRepo := pkgcredit.NewPgRepository(pgPool)
	credits := pkgcredit.NewService(creditRepo, m)

	bookingRepo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	bookings := booking.NewService(bookingRepo, locker, credits, m)

	reminderRepo := reminder.NewPgRepository(pgPool)
	dispatcher := reminder.NewDispatcher(reminderRepo, buildChannels(cfg), reminder.DispatcherConfig{
		Location:    cfg.Location(),
		SendTimeout: cfg.ChannelTimeout,
		Pacing:      cfg.SendPacing,
	}, m)

	router := api.NewRouter(api.RouterConfig{
		Bookings:  bookings,
		Packages:  credits,
		Reminders: dispatcher,
		Location:  cfg.Location(),
		PgPool:    pgPool,
		Redis:     rdb,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

func buildChannels(cfg config.Config) []notify.Channel {
	var channels []notify.Channel

	if cfg.SMSGatewayURL != "" {
		channels = append(channels, notify.NewWebhookChannel("sms", cfg.SMSGatewayURL, cfg.SMSGatewayToken, cfg.ChannelTimeout))
	}
	if cfg.ChatGatewayURL != "" {
		channels = append(channels, notify.NewWebhookChannel("chat", cfg.ChatGatewayURL, cfg.ChatGatewayToken, cfg.ChannelTimeout))
	}
	if len(channels) == 0 {
		log.Println("no notification gateways configured, using noop channel")
		channels = append(channels, &notify.NoopChannel{})
	}

	return channels
}
