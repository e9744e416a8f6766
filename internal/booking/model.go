package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/bookwell/scheduling/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// validTransitions is the full lifecycle: pending -> confirmed -> completed,
// pending|confirmed -> cancelled, confirmed -> no_show. Completed, cancelled
// and no_show are terminal.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

func CanTransition(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func IsTerminal(s Status) bool {
	return len(validTransitions[s]) == 0
}

// ValidStatus reports whether s is one of the known appointment states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type PaymentType string

const (
	PayCash    PaymentType = "cash"
	PayCard    PaymentType = "card"
	PayPackage PaymentType = "package"
)

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPaid    PaymentStatus = "paid"
	PaymentPackage PaymentStatus = "package"
)

// InitialStatus determines the state a freshly created appointment starts in:
// card charges are captured before booking and package credit is consumed in
// the same transaction, so both begin confirmed.
func InitialStatus(pt PaymentType) Status {
	if pt == PayCard || pt == PayPackage {
		return StatusConfirmed
	}
	return StatusPending
}

func initialPaymentStatus(pt PaymentType) PaymentStatus {
	switch pt {
	case PayCard:
		return PaymentPaid
	case PayPackage:
		return PaymentPackage
	default:
		return PaymentUnpaid
	}
}

type StaffStatus string

const (
	StaffActive   StaffStatus = "active"
	StaffInactive StaffStatus = "inactive"
	StaffVacation StaffStatus = "vacation"
)

type Tenant struct {
	ID        uuid.UUID
	Name      string
	Hours     schedule.WeekSchedule
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Settings is the per-tenant configuration, resolved once per request or run
// and passed explicitly into the components that need it.
type Settings struct {
	TenantID           uuid.UUID
	SlotIntervalMin    int // appointment grid step, default 30
	ReminderMinutes    int // reminder offset before start, default 120
	BlacklistThreshold int
}

const (
	DefaultSlotIntervalMin = 30
	DefaultReminderMinutes = 120
)

type Staff struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Phone     string
	Hours     schedule.WeekSchedule // nil when the staff member has no override
	Status    StaffStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ServiceOffering is a bookable service on a tenant's menu. Named to stay
// clear of the Service application type in this package.
type ServiceOffering struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	DurationMin int
	Price       float64
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Customer struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	CustomerID     uuid.UUID
	StaffID        uuid.UUID
	ServiceID      uuid.UUID
	Date           time.Time // calendar date, midnight in the business timezone
	StartMinute    int       // minute of day
	DurationMin    int
	Price          float64
	Status         Status
	PaymentType    PaymentType
	PaymentStatus  PaymentStatus
	CustomerName   string
	ServiceName    string
	StaffName      string
	Notes          string
	ReminderSent   bool
	ReminderSentAt *time.Time
	PackageUsageID *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// End returns the exclusive end minute of the appointment interval.
func (a *Appointment) End() int {
	return a.StartMinute + a.DurationMin
}
