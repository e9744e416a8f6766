package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-01-05 is a Monday, 2026-01-04 a Sunday.
var (
	monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	sunday = time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
)

func TestResolveDayHours_StaffOverrideWins(t *testing.T) {
	staff := WeekSchedule{"monday": {Start: "10:00", End: "16:00"}}
	tenant := WeekSchedule{"monday": {Start: "09:00", End: "18:00"}}

	got, err := ResolveDayHours(monday, staff, tenant)
	require.NoError(t, err)
	assert.False(t, got.Closed)
	assert.Equal(t, 600, got.StartMinute)
	assert.Equal(t, 960, got.EndMinute)
}

func TestResolveDayHours_FallsBackToTenant(t *testing.T) {
	staff := WeekSchedule{"tuesday": {Start: "10:00", End: "16:00"}}
	tenant := WeekSchedule{"monday": {Start: "08:30", End: "17:00"}}

	got, err := ResolveDayHours(monday, staff, tenant)
	require.NoError(t, err)
	assert.Equal(t, 510, got.StartMinute)
	assert.Equal(t, 1020, got.EndMinute)
}

func TestResolveDayHours_StaffClosedShortCircuits(t *testing.T) {
	staff := WeekSchedule{"sunday": {Closed: true}}
	tenant := WeekSchedule{"sunday": {Start: "09:00", End: "18:00"}}

	got, err := ResolveDayHours(sunday, staff, tenant)
	require.NoError(t, err)
	assert.True(t, got.Closed)
}

func TestResolveDayHours_DefaultWhenUnset(t *testing.T) {
	got, err := ResolveDayHours(monday, WeekSchedule(nil), WeekSchedule{})
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenMinute, got.StartMinute)
	assert.Equal(t, DefaultCloseMinute, got.EndMinute)
}

func TestResolveDayHours_SkipsNilProviders(t *testing.T) {
	tenant := WeekSchedule{"monday": {Start: "09:00", End: "18:00"}}

	got, err := ResolveDayHours(monday, nil, tenant)
	require.NoError(t, err)
	assert.Equal(t, 540, got.StartMinute)
}

func TestResolveDayHours_RejectsBadTimes(t *testing.T) {
	tenant := WeekSchedule{"monday": {Start: "9am", End: "18:00"}}

	_, err := ResolveDayHours(monday, tenant)
	assert.ErrorIs(t, err, ErrBadTimeOfDay)
}

func TestParseMinuteOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:00", want: 540},
		{in: "23:59", want: 1439},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "1200", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseMinuteOfDay(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestFormatMinuteOfDay(t *testing.T) {
	assert.Equal(t, "09:00", FormatMinuteOfDay(540))
	assert.Equal(t, "17:30", FormatMinuteOfDay(1050))
	assert.Equal(t, "00:05", FormatMinuteOfDay(5))
}
