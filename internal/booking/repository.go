package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrStaffNotFound       = errors.New("staff not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("slot already has an active appointment")
)

// Repository contains all DB interactions needed by the booking service.
type Repository interface {
	GetTenantByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetSettings(ctx context.Context, tenantID uuid.UUID) (*Settings, error)
	GetStaffByID(ctx context.Context, id uuid.UUID) (*Staff, error)
	GetServiceByID(ctx context.Context, id uuid.UUID) (*ServiceOffering, error)

	GetCustomerByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	FindCustomerByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*Customer, error)
	CreateCustomer(ctx context.Context, tenantID uuid.UUID, name, phone string) (*Customer, error)

	// Slot generation input: every non-cancelled appointment for the day.
	ListActiveAppointments(ctx context.Context, staffID uuid.UUID, date time.Time) ([]Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ReserveAppointment runs the conflict re-check, the optional package
	// credit decrement and the insert as one transaction.
	ReserveAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)

	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
}
