package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TenantSetting is one tenant's reminder offset, defaults already applied.
type TenantSetting struct {
	TenantID        uuid.UUID
	ReminderMinutes int
}

// DueAppointment carries everything the dispatcher needs to render and send
// a reminder, denormalized so no further lookups happen per appointment.
type DueAppointment struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	CustomerName  string
	CustomerPhone string
	ServiceName   string
	StaffName     string
	Date          time.Time
	StartMinute   int
}

// Log is one delivery attempt record, written per channel per appointment.
type Log struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	TenantID      uuid.UUID
	Channel       string
	Status        string // sent, failed
	Error         string
	CreatedAt     time.Time
}

const (
	LogSent   = "sent"
	LogFailed = "failed"
)

// Repository contains all DB interactions needed by the dispatcher.
type Repository interface {
	// ListTenantSettings returns every tenant's reminder offset, with the
	// 120-minute default substituted where no settings row exists.
	ListTenantSettings(ctx context.Context) ([]TenantSetting, error)

	// ListDueAppointments finds pending/confirmed appointments for the given
	// tenants whose date and start minute match the target exactly and whose
	// reminder has not been sent.
	ListDueAppointments(ctx context.Context, tenantIDs []uuid.UUID, date time.Time, minute int) ([]DueAppointment, error)

	// MarkReminderSent flips the sent flag, guarded by reminder_sent = false.
	// Returns false when another run already claimed the appointment.
	MarkReminderSent(ctx context.Context, appointmentID uuid.UUID, at time.Time) (bool, error)

	InsertLog(ctx context.Context, entry Log) error
}
