package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bookwell/scheduling/internal/pkgcredit"
	"github.com/bookwell/scheduling/internal/schedule"
)

// DB is the subset of pgxpool.Pool the repository uses; pgxmock satisfies it
// in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
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

const uniqueViolationCode = "23505"

// Helpers

func scanWeekSchedule(raw []byte) (schedule.WeekSchedule, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ws schedule.WeekSchedule
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, fmt.Errorf("decode week schedule: %w", err)
	}
	return ws, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var reminderSentAt *time.Time
	var packageUsageID *uuid.UUID

	err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.CustomerID,
		&a.StaffID,
		&a.ServiceID,
		&a.Date,
		&a.StartMinute,
		&a.DurationMin,
		&a.Price,
		&a.Status,
		&a.PaymentType,
		&a.PaymentStatus,
		&a.CustomerName,
		&a.ServiceName,
		&a.StaffName,
		&a.Notes,
		&a.ReminderSent,
		&reminderSentAt,
		&packageUsageID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.ReminderSentAt = reminderSentAt
	a.PackageUsageID = packageUsageID
	return &a, nil
}

const appointmentColumns = `id, tenant_id, customer_id, staff_id, service_id, date, start_minute, duration_min,
		       price, status, payment_type, payment_status, customer_name, service_name, staff_name,
		       notes, reminder_sent, reminder_sent_at, package_usage_id, created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Interface methods

func (r *PgRepository) GetTenantByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	var t Tenant
	var rawHours []byte

	err := r.pool.QueryRow(ctx, `
		SELECT id, name, working_hours, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &rawHours, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}

	hours, err := scanWeekSchedule(rawHours)
	if err != nil {
		return nil, err
	}
	t.Hours = hours
	return &t, nil
}

// GetSettings returns the tenant's settings row, falling back to the
// documented defaults when no row exists.
func (r *PgRepository) GetSettings(ctx context.Context, tenantID uuid.UUID) (*Settings, error) {
	var s Settings

	err := r.pool.QueryRow(ctx, `
		SELECT tenant_id, slot_interval_min, reminder_minutes, blacklist_threshold
		FROM tenant_settings
		WHERE tenant_id = $1
	`, tenantID).Scan(&s.TenantID, &s.SlotIntervalMin, &s.ReminderMinutes, &s.BlacklistThreshold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &Settings{
				TenantID:        tenantID,
				SlotIntervalMin: DefaultSlotIntervalMin,
				ReminderMinutes: DefaultReminderMinutes,
			}, nil
		}
		return nil, err
	}

	if s.SlotIntervalMin <= 0 {
		s.SlotIntervalMin = DefaultSlotIntervalMin
	}
	if s.ReminderMinutes <= 0 {
		s.ReminderMinutes = DefaultReminderMinutes
	}
	return &s, nil
}

func (r *PgRepository) GetStaffByID(ctx context.Context, id uuid.UUID) (*Staff, error) {
	var st Staff
	var rawHours []byte

	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, phone, working_hours, status, created_at, updated_at
		FROM staff
		WHERE id = $1
	`, id).Scan(&st.ID, &st.TenantID, &st.Name, &st.Phone, &rawHours, &st.Status, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}

	hours, err := scanWeekSchedule(rawHours)
	if err != nil {
		return nil, err
	}
	st.Hours = hours
	return &st, nil
}

func (r *PgRepository) GetServiceByID(ctx context.Context, id uuid.UUID) (*ServiceOffering, error) {
	var s ServiceOffering

	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, duration_min, price, active, created_at, updated_at
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.TenantID, &s.Name, &s.DurationMin, &s.Price, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *PgRepository) GetCustomerByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, phone, created_at, updated_at
		FROM customers
		WHERE id = $1
	`, id)
	return scanCustomer(row)
}

func (r *PgRepository) FindCustomerByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, phone, created_at, updated_at
		FROM customers
		WHERE tenant_id = $1 AND phone = $2
	`, tenantID, phone)
	return scanCustomer(row)
}

func (r *PgRepository) CreateCustomer(ctx context.Context, tenantID uuid.UUID, name, phone string) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO customers (id, tenant_id, name, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, tenant_id, name, phone, created_at, updated_at
	`, uuid.New(), tenantID, name, phone)

	c, err := scanCustomer(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			// Lost a concurrent first-booking race on (tenant_id, phone);
			// the row exists now, so hand it back.
			return r.FindCustomerByPhone(ctx, tenantID, phone)
		}
		return nil, err
	}
	return c, nil
}

func (r *PgRepository) ListActiveAppointments(ctx context.Context, staffID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE staff_id = $1
		  AND date = $2
		  AND status <> 'cancelled'
		ORDER BY start_minute
	`, staffID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

// ReserveAppointment re-checks the slot, decrements the package credit when
// the booking pays with one, and inserts the appointment, all in a single
// transaction. The partial unique index on (staff_id, date, start_minute)
// for non-cancelled rows backstops any race the lock did not cover.
func (r *PgRepository) ReserveAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reserve tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existingID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id
		FROM appointments
		WHERE staff_id = $1 AND date = $2 AND start_minute = $3 AND status <> 'cancelled'
	`, appt.StaffID, appt.Date, appt.StartMinute).Scan(&existingID)
	if err == nil {
		return nil, ErrSlotTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check slot conflict: %w", err)
	}

	if appt.PackageUsageID != nil {
		tag, err := tx.Exec(ctx, `
			UPDATE package_usages
			SET used_quantity = used_quantity + 1,
			    remaining_quantity = remaining_quantity - 1,
			    updated_at = now()
			WHERE id = $1
			  AND remaining_quantity > 0
		`, *appt.PackageUsageID)
		if err != nil {
			return nil, fmt.Errorf("consume package credit: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, pkgcredit.ErrInsufficientCredit
		}
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, tenant_id, customer_id, staff_id, service_id, date, start_minute,
		                          duration_min, price, status, payment_type, payment_status,
		                          customer_name, service_name, staff_name, notes, package_usage_id,
		                          created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now(), now())
		RETURNING `+appointmentColumns+`
	`, uuid.New(), appt.TenantID, appt.CustomerID, appt.StaffID, appt.ServiceID, appt.Date, appt.StartMinute,
		appt.DurationMin, appt.Price, appt.Status, appt.PaymentType, appt.PaymentStatus,
		appt.CustomerName, appt.ServiceName, appt.StaffName, appt.Notes, appt.PackageUsageID)

	created, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reserve tx: %w", err)
	}

	return created, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	return scanAppointment(row)
}
