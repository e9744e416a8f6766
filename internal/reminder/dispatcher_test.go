package reminder

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwell/scheduling/internal/notify"
)

type dueQuery struct {
	tenantIDs []uuid.UUID
	date      time.Time
	minute    int
}

// fakeReminderRepo serves canned due appointments keyed by start minute and
// records every query and sent-flag update.
type fakeReminderRepo struct {
	settings    []TenantSetting
	dueByMinute map[int][]DueAppointment

	queries     []dueQuery
	marked      []uuid.UUID
	markReturns map[uuid.UUID]bool // default true
	logs        []Log
}

func (f *fakeReminderRepo) ListTenantSettings(context.Context) ([]TenantSetting, error) {
	return f.settings, nil
}

func (f *fakeReminderRepo) ListDueAppointments(_ context.Context, tenantIDs []uuid.UUID, date time.Time, minute int) ([]DueAppointment, error) {
	f.queries = append(f.queries, dueQuery{tenantIDs: tenantIDs, date: date, minute: minute})
	return f.dueByMinute[minute], nil
}

func (f *fakeReminderRepo) MarkReminderSent(_ context.Context, id uuid.UUID, _ time.Time) (bool, error) {
	f.marked = append(f.marked, id)
	if ok, found := f.markReturns[id]; found {
		return ok, nil
	}
	return true, nil
}

func (f *fakeReminderRepo) InsertLog(_ context.Context, entry Log) error {
	f.logs = append(f.logs, entry)
	return nil
}

type fakeChannel struct {
	name  string
	err   error
	sends []string
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(_ context.Context, recipient, _ string) error {
	c.sends = append(c.sends, recipient)
	return c.err
}

func dueAppt(tenantID uuid.UUID, minute int) DueAppointment {
	return DueAppointment{
		ID:            uuid.New(),
		TenantID:      tenantID,
		CustomerName:  "Robin",
		CustomerPhone: "+15550001111",
		ServiceName:   "Haircut",
		StaffName:     "Dana",
		Date:          time.Date(2030, 1, 7, 0, 0, 0, 0, time.UTC),
		StartMinute:   minute,
	}
}

// Run at 08:00 UTC: the 60-minute bucket targets 09:00 (minute 540), the
// 1440-minute bucket targets 08:00 the next day (minute 480).
func runClock() time.Time {
	return time.Date(2030, 1, 7, 8, 0, 0, 0, time.UTC)
}

func TestRun_BucketsTenantsByOffset(t *testing.T) {
	nearTenant := uuid.New()
	farTenant := uuid.New()
	repo := &fakeReminderRepo{
		settings: []TenantSetting{
			{TenantID: nearTenant, ReminderMinutes: 60},
			{TenantID: farTenant, ReminderMinutes: 1440},
		},
		dueByMinute: map[int][]DueAppointment{
			540: {dueAppt(nearTenant, 540)},
			480: {dueAppt(farTenant, 480)},
		},
	}
	ch := &fakeChannel{name: "sms"}
	d := NewDispatcher(repo, []notify.Channel{ch}, DispatcherConfig{}, nil)

	result, err := d.Run(context.Background(), runClock())
	require.NoError(t, err)
	assert.Equal(t, RunResult{Matched: 2, Sent: 2}, result)

	require.Len(t, repo.queries, 2)
	sort.Slice(repo.queries, func(i, j int) bool { return repo.queries[i].minute < repo.queries[j].minute })

	// 1440-minute offset lands on the next calendar day.
	next := repo.queries[0]
	assert.Equal(t, 480, next.minute)
	assert.Equal(t, time.Date(2030, 1, 8, 0, 0, 0, 0, time.UTC), next.date)
	assert.Equal(t, []uuid.UUID{farTenant}, next.tenantIDs)

	same := repo.queries[1]
	assert.Equal(t, 540, same.minute)
	assert.Equal(t, time.Date(2030, 1, 7, 0, 0, 0, 0, time.UTC), same.date)
	assert.Equal(t, []uuid.UUID{nearTenant}, same.tenantIDs)
}

func TestRun_SharedOffsetIsOneQuery(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	repo := &fakeReminderRepo{
		settings: []TenantSetting{
			{TenantID: a, ReminderMinutes: 120},
			{TenantID: b, ReminderMinutes: 120},
		},
		dueByMinute: map[int][]DueAppointment{},
	}
	d := NewDispatcher(repo, nil, DispatcherConfig{}, nil)

	_, err := d.Run(context.Background(), runClock())
	require.NoError(t, err)

	require.Len(t, repo.queries, 1)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, repo.queries[0].tenantIDs)
}

func TestRun_AlreadyClaimedIsSkipped(t *testing.T) {
	tenantID := uuid.New()
	appt := dueAppt(tenantID, 540)
	repo := &fakeReminderRepo{
		settings:    []TenantSetting{{TenantID: tenantID, ReminderMinutes: 60}},
		dueByMinute: map[int][]DueAppointment{540: {appt}},
		markReturns: map[uuid.UUID]bool{appt.ID: false},
	}
	ch := &fakeChannel{name: "sms"}
	d := NewDispatcher(repo, []notify.Channel{ch}, DispatcherConfig{}, nil)

	result, err := d.Run(context.Background(), runClock())
	require.NoError(t, err)
	assert.Equal(t, RunResult{Matched: 1, Skipped: 1}, result)
}

func TestRun_AllChannelsFailingLeavesFlagUntouched(t *testing.T) {
	tenantID := uuid.New()
	appt := dueAppt(tenantID, 540)
	repo := &fakeReminderRepo{
		settings:    []TenantSetting{{TenantID: tenantID, ReminderMinutes: 60}},
		dueByMinute: map[int][]DueAppointment{540: {appt}},
	}
	sms := &fakeChannel{name: "sms", err: errors.New("gateway 502")}
	chat := &fakeChannel{name: "chat", err: errors.New("gateway timeout")}
	d := NewDispatcher(repo, []notify.Channel{sms, chat}, DispatcherConfig{}, nil)

	result, err := d.Run(context.Background(), runClock())
	require.NoError(t, err)
	assert.Equal(t, RunResult{Matched: 1, Failed: 1}, result)

	// Not marked: the next run gets another chance.
	assert.Empty(t, repo.marked)

	// Every attempt is logged with its error.
	require.Len(t, repo.logs, 2)
	for _, entry := range repo.logs {
		assert.Equal(t, LogFailed, entry.Status)
		assert.NotEmpty(t, entry.Error)
	}
}

func TestRun_OneChannelSucceedingIsEnough(t *testing.T) {
	tenantID := uuid.New()
	appt := dueAppt(tenantID, 540)
	repo := &fakeReminderRepo{
		settings:    []TenantSetting{{TenantID: tenantID, ReminderMinutes: 60}},
		dueByMinute: map[int][]DueAppointment{540: {appt}},
	}
	sms := &fakeChannel{name: "sms", err: errors.New("gateway 502")}
	chat := &fakeChannel{name: "chat"}
	d := NewDispatcher(repo, []notify.Channel{sms, chat}, DispatcherConfig{}, nil)

	result, err := d.Run(context.Background(), runClock())
	require.NoError(t, err)
	assert.Equal(t, RunResult{Matched: 1, Sent: 1}, result)
	assert.Equal(t, []uuid.UUID{appt.ID}, repo.marked)

	require.Len(t, repo.logs, 2)
	assert.Equal(t, LogFailed, repo.logs[0].Status)
	assert.Equal(t, LogSent, repo.logs[1].Status)
}

func TestRun_FailureIsolatedPerAppointment(t *testing.T) {
	tenantID := uuid.New()
	bad := dueAppt(tenantID, 540)
	bad.CustomerPhone = "fail-me"
	good := dueAppt(tenantID, 540)
	repo := &fakeReminderRepo{
		settings:    []TenantSetting{{TenantID: tenantID, ReminderMinutes: 60}},
		dueByMinute: map[int][]DueAppointment{540: {bad, good}},
	}
	ch := &selectiveChannel{failFor: "fail-me"}
	d := NewDispatcher(repo, []notify.Channel{ch}, DispatcherConfig{}, nil)

	result, err := d.Run(context.Background(), runClock())
	require.NoError(t, err)
	assert.Equal(t, RunResult{Matched: 2, Sent: 1, Failed: 1}, result)
	assert.Equal(t, []uuid.UUID{good.ID}, repo.marked)
}

func TestRun_TargetComputedInBusinessTimezone(t *testing.T) {
	tenantID := uuid.New()
	repo := &fakeReminderRepo{
		settings:    []TenantSetting{{TenantID: tenantID, ReminderMinutes: 60}},
		dueByMinute: map[int][]DueAppointment{},
	}
	loc := time.FixedZone("UTC+3", 3*60*60)
	d := NewDispatcher(repo, nil, DispatcherConfig{Location: loc}, nil)

	// 22:30 UTC is 01:30 local the next day; plus 60 minutes targets 02:30.
	now := time.Date(2030, 1, 7, 22, 30, 0, 0, time.UTC)
	_, err := d.Run(context.Background(), now)
	require.NoError(t, err)

	require.Len(t, repo.queries, 1)
	assert.Equal(t, time.Date(2030, 1, 8, 0, 0, 0, 0, time.UTC), repo.queries[0].date)
	assert.Equal(t, 150, repo.queries[0].minute)
}

func TestRun_PacingAppliesAcrossAppointments(t *testing.T) {
	tenantID := uuid.New()
	repo := &fakeReminderRepo{
		settings: []TenantSetting{{TenantID: tenantID, ReminderMinutes: 60}},
		dueByMinute: map[int][]DueAppointment{
			540: {dueAppt(tenantID, 540), dueAppt(tenantID, 540), dueAppt(tenantID, 540)},
		},
	}
	ch := &fakeChannel{name: "sms"}
	d := NewDispatcher(repo, []notify.Channel{ch}, DispatcherConfig{Pacing: 30 * time.Millisecond}, nil)

	start := time.Now()
	result, err := d.Run(context.Background(), runClock())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Sent)

	// Three gateway calls on one channel: at least two inter-call delays,
	// even though each appointment only sends once.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestPacer_FirstCallDoesNotDelay(t *testing.T) {
	p := newPacer(time.Hour)

	start := time.Now()
	p.wait()
	assert.Less(t, time.Since(start), time.Second)
}

func TestRenderMessage(t *testing.T) {
	appt := dueAppt(uuid.New(), 630)
	msg := renderMessage(appt)
	assert.Contains(t, msg, "Robin")
	assert.Contains(t, msg, "Haircut")
	assert.Contains(t, msg, "Dana")
	assert.Contains(t, msg, "10:30")
	assert.Contains(t, msg, "Monday, January 7")
}

type selectiveChannel struct {
	failFor string
}

func (c *selectiveChannel) Name() string { return "sms" }

func (c *selectiveChannel) Send(_ context.Context, recipient, _ string) error {
	if recipient == c.failFor {
		return errors.New("number rejected")
	}
	return nil
}
