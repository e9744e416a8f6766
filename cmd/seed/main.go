package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookwell/scheduling/internal/db"
	"github.com/bookwell/scheduling/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	seedCtx := context.Background()
	tenantIDs, err := seedTenants(seedCtx, pool, 20)
	if err != nil {
		log.Fatalf("seed tenants: %v", err)
	}
	if err := seedStaffAndServices(seedCtx, pool, tenantIDs); err != nil {
		log.Fatalf("seed staff and services: %v", err)
	}
	if err := seedCustomers(seedCtx, pool, tenantIDs, 100); err != nil {
		log.Fatalf("seed customers: %v", err)
	}

	log.Println("seed complete")
}

func defaultWeekHours() []byte {
	week := schedule.WeekSchedule{}
	for d := time.Monday; d <= time.Friday; d++ {
		week[schedule.WeekdayKey(d)] = schedule.DayEntry{Start: "09:00", End: "18:00"}
	}
	week[schedule.WeekdayKey(time.Saturday)] = schedule.DayEntry{Start: "10:00", End: "16:00"}
	week[schedule.WeekdayKey(time.Sunday)] = schedule.DayEntry{Closed: true}

	raw, _ := json.Marshal(week)
	return raw
}

func seedTenants(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d tenants", count)

	reminderOffsets := []int{60, 120, 240, 1440}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	hours := defaultWeekHours()

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Company()

		_, err := tx.Exec(ctx, `
			INSERT INTO tenants (id, name, working_hours, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, hours)
		if err != nil {
			return nil, err
		}

		offset := reminderOffsets[gofakeit.Number(0, len(reminderOffsets)-1)]
		_, err = tx.Exec(ctx, `
			INSERT INTO tenant_settings (tenant_id, slot_interval_min, reminder_minutes, blacklist_threshold)
			VALUES ($1, $2, $3, $4)
		`, id, 30, offset, 3)
		if err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("tenants seeded")
	return ids, nil
}

func seedStaffAndServices(ctx context.Context, pool *pgxpool.Pool, tenantIDs []uuid.UUID) error {
	log.Printf("seeding staff and services for %d tenants", len(tenantIDs))

	serviceNames := []string{
		"Haircut",
		"Beard Trim",
		"Hair Coloring",
		"Manicure",
		"Pedicure",
		"Facial",
		"Deep Tissue Massage",
		"Consultation",
	}
	durations := []int{30, 45, 60, 90}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, tenantID := range tenantIDs {
		staffCount := gofakeit.Number(2, 5)
		for i := 0; i < staffCount; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO staff (id, tenant_id, name, phone, working_hours, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, NULL, 'active', now(), now())
			`, uuid.New(), tenantID, gofakeit.Name(), gofakeit.Phone())
			if err != nil {
				return err
			}
		}

		serviceCount := gofakeit.Number(3, 6)
		for i := 0; i < serviceCount; i++ {
			name := serviceNames[gofakeit.Number(0, len(serviceNames)-1)]
			duration := durations[gofakeit.Number(0, len(durations)-1)]
			price := float64(gofakeit.Number(20, 200))

			_, err := tx.Exec(ctx, `
				INSERT INTO services (id, tenant_id, name, duration_min, price, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, true, now(), now())
			`, uuid.New(), tenantID, name, duration, price)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("staff and services seeded")
	return nil
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool, tenantIDs []uuid.UUID, perTenant int) error {
	log.Printf("seeding %d customers per tenant", perTenant)

	for _, tenantID := range tenantIDs {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := 0; i < perTenant; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO customers (id, tenant_id, name, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, uuid.New(), tenantID, gofakeit.Name(), gofakeit.Phone())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Println("customers seeded")
	return nil
}
