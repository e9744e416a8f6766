package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/bookwell/scheduling/internal/notify"
	"github.com/bookwell/scheduling/internal/observability/metrics"
	"github.com/bookwell/scheduling/internal/schedule"
)

// Dispatcher is the periodic reminder batch job. It is idempotent: the
// conditional sent-flag update lets overlapping runs coexist without
// double-sending.
type Dispatcher struct {
	repo        Repository
	channels    []notify.Channel
	loc         *time.Location
	sendTimeout time.Duration
	pacing      time.Duration
	metrics     *metrics.SchedulingMetrics
}

type DispatcherConfig struct {
	Location    *time.Location
	SendTimeout time.Duration // per channel call
	Pacing      time.Duration // delay between consecutive external calls
}

func NewDispatcher(repo Repository, channels []notify.Channel, cfg DispatcherConfig, m *metrics.SchedulingMetrics) *Dispatcher {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		repo:        repo,
		channels:    channels,
		loc:         loc,
		sendTimeout: timeout,
		pacing:      cfg.Pacing,
		metrics:     m,
	}
}

// RunResult aggregates one batch run for observability.
type RunResult struct {
	Matched int `json:"matched"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Run executes one reminder batch. Tenants sharing a reminder offset are
// grouped into one bucket so each distinct offset costs a single time-window
// query. Per-appointment failures are isolated; only a failure to load the
// tenant settings aborts the run.
func (d *Dispatcher) Run(ctx context.Context, now time.Time) (RunResult, error) {
	var result RunResult

	settings, err := d.repo.ListTenantSettings(ctx)
	if err != nil {
		return result, fmt.Errorf("load tenant settings: %w", err)
	}

	// Recomputed every run: settings can change between runs.
	buckets := bucketByOffset(settings)

	// One pacer for the whole run: consecutive gateway calls are spaced out
	// across appointments and buckets, not just within one appointment.
	pace := newPacer(d.pacing)

	for offset, tenantIDs := range buckets {
		target := now.In(d.loc).Add(time.Duration(offset) * time.Minute)
		targetDate := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
		targetMinute := target.Hour()*60 + target.Minute()

		due, err := d.repo.ListDueAppointments(ctx, tenantIDs, targetDate, targetMinute)
		if err != nil {
			log.Printf("reminder bucket offset=%d query error: %v", offset, err)
			continue
		}

		result.Matched += len(due)

		for _, appt := range due {
			switch d.process(ctx, appt, pace) {
			case outcomeSent:
				result.Sent++
			case outcomeSkipped:
				result.Skipped++
			case outcomeFailed:
				result.Failed++
			}
		}
	}

	log.Printf("reminder run complete matched=%d sent=%d skipped=%d failed=%d",
		result.Matched, result.Sent, result.Skipped, result.Failed)

	return result, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeFailed
)

// process attempts delivery on every channel independently. One acknowledged
// channel is enough to mark the reminder sent.
func (d *Dispatcher) process(ctx context.Context, appt DueAppointment, pace *pacer) outcome {
	message := renderMessage(appt)

	delivered := false
	for _, ch := range d.channels {
		pace.wait()

		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		err := ch.Send(sendCtx, appt.CustomerPhone, message)
		cancel()

		entry := Log{
			ID:            uuid.New(),
			AppointmentID: appt.ID,
			TenantID:      appt.TenantID,
			Channel:       ch.Name(),
			Status:        LogSent,
		}
		if err != nil {
			entry.Status = LogFailed
			entry.Error = err.Error()
			log.Printf("reminder send failed appointment=%s channel=%s err=%v", appt.ID, ch.Name(), err)
		} else {
			delivered = true
		}

		if logErr := d.repo.InsertLog(ctx, entry); logErr != nil {
			log.Printf("reminder log insert failed appointment=%s: %v", appt.ID, logErr)
		}
	}

	if !delivered {
		d.metrics.ObserveReminder("failed")
		return outcomeFailed
	}

	updated, err := d.repo.MarkReminderSent(ctx, appt.ID, time.Now())
	if err != nil {
		log.Printf("reminder flag update failed appointment=%s: %v", appt.ID, err)
		d.metrics.ObserveReminder("failed")
		return outcomeFailed
	}
	if !updated {
		// An overlapping run already claimed this appointment.
		d.metrics.ObserveReminder("skipped")
		return outcomeSkipped
	}

	d.metrics.ObserveReminder("sent")
	return outcomeSent
}

// pacer delays every external call after the first, keeping the run inside
// third-party rate limits.
type pacer struct {
	delay time.Duration
	first bool
}

func newPacer(delay time.Duration) *pacer {
	return &pacer{delay: delay, first: true}
}

func (p *pacer) wait() {
	if p.first {
		p.first = false
		return
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
}

func bucketByOffset(settings []TenantSetting) map[int][]uuid.UUID {
	buckets := make(map[int][]uuid.UUID, len(settings))
	for _, s := range settings {
		buckets[s.ReminderMinutes] = append(buckets[s.ReminderMinutes], s.TenantID)
	}
	return buckets
}

func renderMessage(appt DueAppointment) string {
	return fmt.Sprintf("Hi %s, a reminder: your %s appointment with %s is at %s on %s.",
		appt.CustomerName,
		appt.ServiceName,
		appt.StaffName,
		schedule.FormatMinuteOfDay(appt.StartMinute),
		appt.Date.Format("Monday, January 2"),
	)
}
