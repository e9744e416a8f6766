package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/bookwell/scheduling/internal/booking"
	"github.com/bookwell/scheduling/internal/schedule"
)

type SlotResponse struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type CreateAppointmentRequest struct {
	TenantID          string `json:"tenant_id"`
	StaffID           string `json:"staff_id"`
	ServiceID         string `json:"service_id"`
	CustomerID        string `json:"customer_id,omitempty"`
	CustomerName      string `json:"customer_name,omitempty"`
	CustomerPhone     string `json:"customer_phone,omitempty"`
	Date              string `json:"date"` // YYYY-MM-DD
	Time              string `json:"time"` // HH:MM
	Notes             string `json:"notes,omitempty"`
	PaymentType       string `json:"payment_type"`
	CustomerPackageID string `json:"customer_package_id,omitempty"`
}

type AppointmentResponse struct {
	ID           uuid.UUID `json:"id"`
	CustomerName string    `json:"customer_name"`
	ServiceName  string    `json:"service_name"`
	StaffName    string    `json:"staff_name"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	Status       string    `json:"status"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		CustomerName: a.CustomerName,
		ServiceName:  a.ServiceName,
		StaffName:    a.StaffName,
		Date:         a.Date.Format("2006-01-02"),
		Time:         schedule.FormatMinuteOfDay(a.StartMinute),
		Status:       string(a.Status),
	}
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type AssignPackageRequest struct {
	TenantID    string     `json:"tenant_id"`
	CustomerID  string     `json:"customer_id"`
	PackageID   string     `json:"package_id"`
	StaffID     string     `json:"staff_id"`
	PaymentType string     `json:"payment_type"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type AssignPackageResponse struct {
	ID         uuid.UUID  `json:"id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	PackageID  uuid.UUID  `json:"package_id"`
	Status     string     `json:"status"`
	AssignedAt time.Time  `json:"assigned_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type UsageResponse struct {
	ID                uuid.UUID `json:"id"`
	ItemType          string    `json:"item_type"`
	ItemID            uuid.UUID `json:"item_id"`
	TotalQuantity     int       `json:"total_quantity"`
	UsedQuantity      int       `json:"used_quantity"`
	RemainingQuantity int       `json:"remaining_quantity"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
