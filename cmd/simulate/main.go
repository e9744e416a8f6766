// simulate hammers one slot with concurrent booking requests to demonstrate
// that exactly one caller wins and the rest get slot conflicts.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookwell/scheduling/internal/config"
	"github.com/bookwell/scheduling/internal/db"
)

type SimConfig struct {
	APIBaseURL  string
	Workers     int
	PostgresDSN string
}

type target struct {
	TenantID  uuid.UUID
	StaffID   uuid.UUID
	ServiceID uuid.UUID
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:  getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Workers:     getInt("SIM_WORKERS", 20),
		PostgresDSN: baseCfg.PostgresDSN,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	tgt, err := loadTarget(ctx, pgPool)
	if err != nil {
		log.Fatalf("load target: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	// Everyone races for the same slot two days from now.
	date := time.Now().AddDate(0, 0, 2).Format("2006-01-02")
	slotTime := "10:00"

	log.Printf("racing %d workers for staff=%s date=%s time=%s", cfg.Workers, tgt.StaffID, date, slotTime)

	client := &http.Client{Timeout: 10 * time.Second}

	var created, conflict, other int64
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			status, err := bookSlot(client, cfg.APIBaseURL, tgt, date, slotTime)
			if err != nil {
				atomic.AddInt64(&other, 1)
				log.Printf("request error: %v", err)
				return
			}

			switch status {
			case http.StatusCreated:
				atomic.AddInt64(&created, 1)
			case http.StatusConflict:
				atomic.AddInt64(&conflict, 1)
			default:
				atomic.AddInt64(&other, 1)
				log.Printf("unexpected status %d", status)
			}
		}()
	}

	wg.Wait()

	fmt.Printf("results: created=%d conflict=%d other=%d\n", created, conflict, other)
	if created == 1 && other == 0 {
		fmt.Println("PASS: exactly one booking won the slot")
	} else {
		fmt.Println("FAIL: expected exactly one winner")
		os.Exit(1)
	}
}

func loadTarget(ctx context.Context, pool *pgxpool.Pool) (target, error) {
	var t target

	err := pool.QueryRow(ctx, `
		SELECT s.tenant_id, s.id, sv.id
		FROM staff s
		JOIN services sv ON sv.tenant_id = s.tenant_id
		WHERE s.status = 'active' AND sv.active
		LIMIT 1
	`).Scan(&t.TenantID, &t.StaffID, &t.ServiceID)
	if err != nil {
		return t, fmt.Errorf("pick staff/service: %w", err)
	}

	return t, nil
}

func bookSlot(client *http.Client, baseURL string, tgt target, date, slotTime string) (int, error) {
	payload := map[string]string{
		"tenant_id":      tgt.TenantID.String(),
		"staff_id":       tgt.StaffID.String(),
		"service_id":     tgt.ServiceID.String(),
		"customer_name":  gofakeit.Name(),
		"customer_phone": gofakeit.Phone(),
		"date":           date,
		"time":           slotTime,
		"payment_type":   "cash",
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	resp, err := client.Post(baseURL+"/appointments", "application/json", bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
