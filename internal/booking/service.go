package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/bookwell/scheduling/internal/observability/metrics"
	"github.com/bookwell/scheduling/internal/pkgcredit"
	redisclient "github.com/bookwell/scheduling/internal/redis"
	"github.com/bookwell/scheduling/internal/schedule"
)

var (
	ErrValidation              = errors.New("invalid booking request")
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	credits *pkgcredit.Service
	metrics *metrics.SchedulingMetrics
}

func NewService(repo Repository, locker redisclient.Locker, credits *pkgcredit.Service, m *metrics.SchedulingMetrics) *Service {
	return &Service{
		repo:    repo,
		locker:  locker,
		credits: credits,
		metrics: m,
	}
}

// Availability computes the slot grid for one staff member and date. The
// tenant's interval setting drives the grid step; the service duration (the
// interval itself when no service is given) drives the overlap test.
func (s *Service) Availability(ctx context.Context, tenantID, staffID uuid.UUID, date time.Time, serviceID *uuid.UUID) ([]schedule.Slot, error) {
	tenant, err := s.repo.GetTenantByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	staff, err := s.repo.GetStaffByID(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if staff.TenantID != tenant.ID {
		return nil, ErrStaffNotFound
	}
	if staff.Status != StaffActive {
		return nil, nil
	}

	settings, err := s.repo.GetSettings(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	duration := settings.SlotIntervalMin
	if serviceID != nil {
		svc, err := s.repo.GetServiceByID(ctx, *serviceID)
		if err != nil {
			return nil, err
		}
		if svc.TenantID != tenant.ID {
			return nil, ErrServiceNotFound
		}
		duration = svc.DurationMin
	}

	hours, err := schedule.ResolveDayHours(date, staff.Hours, tenant.Hours)
	if err != nil {
		return nil, fmt.Errorf("resolve working hours: %w", err)
	}

	appts, err := s.repo.ListActiveAppointments(ctx, staffID, date)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	busy := make([]schedule.Busy, 0, len(appts))
	for _, a := range appts {
		busy = append(busy, schedule.Busy{StartMinute: a.StartMinute, DurationMin: a.DurationMin})
	}

	return schedule.GenerateSlots(hours, duration, settings.SlotIntervalMin, date, time.Now(), busy), nil
}

type CreateInput struct {
	TenantID          uuid.UUID
	StaffID           uuid.UUID
	ServiceID         uuid.UUID
	CustomerID        *uuid.UUID
	CustomerName      string
	CustomerPhone     string
	Date              time.Time
	StartMinute       int
	Notes             string
	PaymentType       PaymentType
	CustomerPackageID *uuid.UUID // required when PaymentType is package
}

func (in CreateInput) validate() error {
	if in.TenantID == uuid.Nil || in.StaffID == uuid.Nil || in.ServiceID == uuid.Nil {
		return fmt.Errorf("%w: tenant_id, staff_id and service_id are required", ErrValidation)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if in.StartMinute < 0 || in.StartMinute >= 24*60 {
		return fmt.Errorf("%w: time must be within the day", ErrValidation)
	}
	switch in.PaymentType {
	case PayCash, PayCard, PayPackage:
	default:
		return fmt.Errorf("%w: unknown payment type %q", ErrValidation, in.PaymentType)
	}
	if in.PaymentType == PayPackage && in.CustomerPackageID == nil {
		return fmt.Errorf("%w: customer_package_id is required for package payment", ErrValidation)
	}
	if in.CustomerID == nil && (in.CustomerName == "" || in.CustomerPhone == "") {
		return fmt.Errorf("%w: customer_id or name and phone are required", ErrValidation)
	}
	return nil
}

// CreateAppointment reserves a slot. The conflict check, the optional package
// credit decrement and the insert run inside a per-slot distributed lock and
// a single database transaction, so two concurrent requests for the same
// (staff, date, time) cannot both succeed.
func (s *Service) CreateAppointment(ctx context.Context, in CreateInput) (*Appointment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	svc, err := s.repo.GetServiceByID(ctx, in.ServiceID)
	if err != nil {
		return nil, err
	}
	if svc.TenantID != in.TenantID {
		return nil, ErrServiceNotFound
	}

	staff, err := s.repo.GetStaffByID(ctx, in.StaffID)
	if err != nil {
		return nil, err
	}
	if staff.TenantID != in.TenantID {
		return nil, ErrStaffNotFound
	}

	customer, err := s.resolveCustomer(ctx, in)
	if err != nil {
		return nil, err
	}

	var usageID *uuid.UUID
	if in.PaymentType == PayPackage {
		usage, err := s.credits.FindServiceUsage(ctx, in.TenantID, customer.ID, *in.CustomerPackageID, in.ServiceID)
		if err != nil {
			return nil, err
		}
		usageID = &usage.ID
	}

	appt := &Appointment{
		TenantID:       in.TenantID,
		CustomerID:     customer.ID,
		StaffID:        in.StaffID,
		ServiceID:      in.ServiceID,
		Date:           in.Date,
		StartMinute:    in.StartMinute,
		DurationMin:    svc.DurationMin,
		Price:          svc.Price,
		Status:         InitialStatus(in.PaymentType),
		PaymentType:    in.PaymentType,
		PaymentStatus:  initialPaymentStatus(in.PaymentType),
		CustomerName:   customer.Name,
		ServiceName:    svc.Name,
		StaffName:      staff.Name,
		Notes:          in.Notes,
		PackageUsageID: usageID,
	}

	var created *Appointment
	dateKey := in.Date.Format("2006-01-02")

	err = s.locker.WithSlotLock(ctx, in.StaffID, dateKey, in.StartMinute, func(lockCtx context.Context) error {
		reserved, err := s.repo.ReserveAppointment(lockCtx, appt)
		if err != nil {
			return err
		}
		created = reserved
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.ObserveBooking("contended")
			return nil, ErrSlotBeingBooked
		}
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveBooking("conflict")
			return nil, err
		}
		s.metrics.ObserveBooking("error")
		return nil, err
	}

	s.metrics.ObserveBooking("created")
	log.Printf("appointment created id=%s staff=%s date=%s time=%s status=%s",
		created.ID, created.StaffID, dateKey, schedule.FormatMinuteOfDay(created.StartMinute), created.Status)

	return created, nil
}

func (s *Service) resolveCustomer(ctx context.Context, in CreateInput) (*Customer, error) {
	if in.CustomerID != nil {
		return s.repo.GetCustomerByID(ctx, *in.CustomerID)
	}

	existing, err := s.repo.FindCustomerByPhone(ctx, in.TenantID, in.CustomerPhone)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrCustomerNotFound) {
		return nil, fmt.Errorf("find customer: %w", err)
	}

	return s.repo.CreateCustomer(ctx, in.TenantID, in.CustomerName, in.CustomerPhone)
}

// UpdateStatus applies one lifecycle transition. The conditional UPDATE
// (WHERE status = from) makes the transition atomic against concurrent
// writers; losing the race surfaces as an invalid transition.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	if !ValidStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(appt.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, appt.Status, to)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// The row moved out from under us between read and update.
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, appt.Status, to)
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	return updated, nil
}

// GetAppointment retrieves an appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}
