package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookwell/scheduling/internal/config"
	"github.com/bookwell/scheduling/internal/db"
	"github.com/bookwell/scheduling/internal/notify"
	"github.com/bookwell/scheduling/internal/observability/metrics"
	"github.com/bookwell/scheduling/internal/reminder"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("reminder-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running reminder worker in env=%s interval=%s timezone=%s",
		cfg.Env, cfg.ReminderInterval, cfg.BusinessTimezone)

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

	repo := reminder.NewPgRepository(pgPool)
	dispatcher := reminder.NewDispatcher(repo, channels, reminder.DispatcherConfig{
		Location:    cfg.Location(),
		SendTimeout: cfg.ChannelTimeout,
		Pacing:      cfg.SendPacing,
	}, metrics.NewSchedulingMetrics(nil))

	// Run once at startup
	runOnce(rootCtx, dispatcher)

	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, dispatcher)
		}
	}
}

func runOnce(ctx context.Context, d *reminder.Dispatcher) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()
	result, err := d.Run(runCtx, start)
	if err != nil {
		log.Printf("reminder run error: %v", err)
		return
	}
	log.Printf("reminder run complete in %s matched=%d sent=%d failed=%d",
		time.Since(start), result.Matched, result.Sent, result.Failed)
}
