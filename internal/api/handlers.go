package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookwell/scheduling/internal/booking"
	"github.com/bookwell/scheduling/internal/pkgcredit"
	redisclient "github.com/bookwell/scheduling/internal/redis"
	"github.com/bookwell/scheduling/internal/reminder"
	"github.com/bookwell/scheduling/internal/schedule"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func availabilityHandler(svc *booking.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		tenantID, err := uuid.Parse(q.Get("tenant_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_tenant_id", "tenant_id must be a valid UUID")
			return
		}
		staffID, err := uuid.Parse(q.Get("staff_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "staff_id must be a valid UUID")
			return
		}
		date, err := time.ParseInLocation("2006-01-02", q.Get("date"), loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		var serviceID *uuid.UUID
		if raw := q.Get("service_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
				return
			}
			serviceID = &id
		}

		slots, err := svc.Availability(r.Context(), tenantID, staffID, date, serviceID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, SlotResponse{
				Time:      schedule.FormatMinuteOfDay(s.Minute),
				Available: s.Available,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func createAppointmentHandler(svc *booking.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		in, err := buildCreateInput(req, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), in)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func buildCreateInput(req CreateAppointmentRequest, loc *time.Location) (booking.CreateInput, error) {
	var in booking.CreateInput

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return in, errors.New("tenant_id must be a valid UUID")
	}
	staffID, err := uuid.Parse(req.StaffID)
	if err != nil {
		return in, errors.New("staff_id must be a valid UUID")
	}
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		return in, errors.New("service_id must be a valid UUID")
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, loc)
	if err != nil {
		return in, errors.New("date must be YYYY-MM-DD")
	}
	minute, err := schedule.ParseMinuteOfDay(req.Time)
	if err != nil {
		return in, errors.New("time must be HH:MM")
	}

	in = booking.CreateInput{
		TenantID:      tenantID,
		StaffID:       staffID,
		ServiceID:     serviceID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Date:          date,
		StartMinute:   minute,
		Notes:         req.Notes,
		PaymentType:   booking.PaymentType(req.PaymentType),
	}

	if req.CustomerID != "" {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return in, errors.New("customer_id must be a valid UUID")
		}
		in.CustomerID = &id
	}
	if req.CustomerPackageID != "" {
		id, err := uuid.Parse(req.CustomerPackageID)
		if err != nil {
			return in, errors.New("customer_package_id must be a valid UUID")
		}
		in.CustomerPackageID = &id
	}

	return in, nil
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateStatusHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.UpdateStatus(r.Context(), id, booking.Status(req.Status))
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func assignPackageHandler(svc *pkgcredit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AssignPackageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		tenantID, err := uuid.Parse(req.TenantID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_tenant_id", "tenant_id must be a valid UUID")
			return
		}
		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_customer_id", "customer_id must be a valid UUID")
			return
		}
		packageID, err := uuid.Parse(req.PackageID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_package_id", "package_id must be a valid UUID")
			return
		}
		staffID, err := uuid.Parse(req.StaffID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "staff_id must be a valid UUID")
			return
		}

		cp, err := svc.Assign(r.Context(), pkgcredit.AssignInput{
			CustomerID:  customerID,
			PackageID:   packageID,
			TenantID:    tenantID,
			StaffID:     staffID,
			PaymentType: req.PaymentType,
			ExpiresAt:   req.ExpiresAt,
		})
		if err != nil {
			handlePackageError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, AssignPackageResponse{
			ID:         cp.ID,
			CustomerID: cp.CustomerID,
			PackageID:  cp.PackageID,
			Status:     string(cp.Status),
			AssignedAt: cp.AssignedAt,
			ExpiresAt:  cp.ExpiresAt,
		})
	}
}

func consumeUsageHandler(svc *pkgcredit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_usage_id", "id must be a valid UUID")
			return
		}

		u, err := svc.Consume(r.Context(), id)
		if err != nil {
			handlePackageError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, UsageResponse{
			ID:                u.ID,
			ItemType:          u.ItemType,
			ItemID:            u.ItemID,
			TotalQuantity:     u.TotalQuantity,
			UsedQuantity:      u.UsedQuantity,
			RemainingQuantity: u.RemainingQuantity,
		})
	}
}

func removePackageHandler(svc *pkgcredit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_package_id", "id must be a valid UUID")
			return
		}

		if err := svc.Remove(r.Context(), id); err != nil {
			handlePackageError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func runRemindersHandler(d *reminder.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := d.Run(r.Context(), time.Now())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "reminder_run_failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, booking.ErrTenantNotFound):
		writeError(w, http.StatusNotFound, "tenant_not_found", err.Error())
	case errors.Is(err, booking.ErrStaffNotFound):
		writeError(w, http.StatusNotFound, "staff_not_found", err.Error())
	case errors.Is(err, booking.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, booking.ErrCustomerNotFound):
		writeError(w, http.StatusNotFound, "customer_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, booking.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, pkgcredit.ErrInsufficientCredit),
		errors.Is(err, pkgcredit.ErrPackageNotActive):
		writeError(w, http.StatusConflict, "insufficient_package_credit", err.Error())
	case errors.Is(err, pkgcredit.ErrCustomerPackageNotFound),
		errors.Is(err, pkgcredit.ErrUsageNotFound):
		writeError(w, http.StatusNotFound, "package_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handlePackageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pkgcredit.ErrPackageNotFound),
		errors.Is(err, pkgcredit.ErrCustomerPackageNotFound),
		errors.Is(err, pkgcredit.ErrUsageNotFound):
		writeError(w, http.StatusNotFound, "package_not_found", err.Error())
	case errors.Is(err, pkgcredit.ErrPackageAlreadyAssigned):
		writeError(w, http.StatusConflict, "package_already_assigned", err.Error())
	case errors.Is(err, pkgcredit.ErrInsufficientCredit):
		writeError(w, http.StatusConflict, "insufficient_package_credit", err.Error())
	case errors.Is(err, pkgcredit.ErrPackageNotActive):
		writeError(w, http.StatusConflict, "package_not_active", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
