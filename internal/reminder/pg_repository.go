package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository uses; pgxmock satisfies it
// in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool DB
}

func NewPgRepository(pool DB) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) ListTenantSettings(ctx context.Context) ([]TenantSetting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, COALESCE(NULLIF(s.reminder_minutes, 0), 120)
		FROM tenants t
		LEFT JOIN tenant_settings s ON s.tenant_id = t.id
	`)
	if err != nil {
		return nil, fmt.Errorf("list tenant settings: %w", err)
	}
	defer rows.Close()

	var result []TenantSetting
	for rows.Next() {
		var ts TenantSetting
		if err := rows.Scan(&ts.TenantID, &ts.ReminderMinutes); err != nil {
			return nil, err
		}
		result = append(result, ts)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ListDueAppointments(ctx context.Context, tenantIDs []uuid.UUID, date time.Time, minute int) ([]DueAppointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.tenant_id, a.customer_name, c.phone, a.service_name, a.staff_name, a.date, a.start_minute
		FROM appointments a
		JOIN customers c ON c.id = a.customer_id
		WHERE a.tenant_id = ANY($1)
		  AND a.date = $2
		  AND a.start_minute = $3
		  AND a.status IN ('pending', 'confirmed')
		  AND a.reminder_sent = false
	`, tenantIDs, date, minute)
	if err != nil {
		return nil, fmt.Errorf("list due appointments: %w", err)
	}
	defer rows.Close()

	var result []DueAppointment
	for rows.Next() {
		var d DueAppointment
		if err := rows.Scan(&d.ID, &d.TenantID, &d.CustomerName, &d.CustomerPhone, &d.ServiceName, &d.StaffName, &d.Date, &d.StartMinute); err != nil {
			return nil, err
		}
		result = append(result, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) MarkReminderSent(ctx context.Context, appointmentID uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent = true,
		    reminder_sent_at = $2,
		    updated_at = now()
		WHERE id = $1
		  AND reminder_sent = false
	`, appointmentID, at)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgRepository) InsertLog(ctx context.Context, entry Log) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reminder_logs (id, appointment_id, tenant_id, channel, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, entry.ID, entry.AppointmentID, entry.TenantID, entry.Channel, entry.Status, entry.Error)
	if err != nil {
		return fmt.Errorf("insert reminder log: %w", err)
	}
	return nil
}
