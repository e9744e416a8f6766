package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrBadTimeOfDay = errors.New("invalid HH:MM time of day")

// Default hours applied when neither staff nor tenant configured the weekday.
const (
	DefaultOpenMinute  = 9 * 60  // 09:00
	DefaultCloseMinute = 18 * 60 // 18:00
)

// DayEntry is one weekday's configured hours as stored. A weekday with no
// entry at all is "unset" and falls through to the next provider.
type DayEntry struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Closed bool   `json:"closed"`
}

// DayHours is the effective schedule for a staff member on a concrete date,
// after the provider chain has been resolved.
type DayHours struct {
	Closed      bool
	StartMinute int
	EndMinute   int
}

// HoursProvider yields a weekday's configured hours, or ok=false when the
// provider has nothing set for that weekday.
type HoursProvider interface {
	Hours(day time.Weekday) (DayEntry, bool)
}

// WeekSchedule maps lowercase weekday names ("monday"...) to entries. It is
// the JSON shape persisted on tenants and, optionally, staff.
type WeekSchedule map[string]DayEntry

func (w WeekSchedule) Hours(day time.Weekday) (DayEntry, bool) {
	if w == nil {
		return DayEntry{}, false
	}
	e, ok := w[WeekdayKey(day)]
	return e, ok
}

// WeekdayKey returns the schedule map key for a weekday.
func WeekdayKey(day time.Weekday) string {
	return strings.ToLower(day.String())
}

// ResolveDayHours walks the providers in priority order (staff override first,
// then tenant hours) and returns the first weekday entry found. An entry
// marked closed short-circuits: no later provider can reopen the day. When no
// provider has the weekday set, the 09:00-18:00 default applies.
func ResolveDayHours(date time.Time, providers ...HoursProvider) (DayHours, error) {
	day := date.Weekday()

	for _, p := range providers {
		if p == nil {
			continue
		}
		entry, ok := p.Hours(day)
		if !ok {
			continue
		}
		if entry.Closed {
			return DayHours{Closed: true}, nil
		}
		start, err := ParseMinuteOfDay(entry.Start)
		if err != nil {
			return DayHours{}, fmt.Errorf("start time for %s: %w", WeekdayKey(day), err)
		}
		end, err := ParseMinuteOfDay(entry.End)
		if err != nil {
			return DayHours{}, fmt.Errorf("end time for %s: %w", WeekdayKey(day), err)
		}
		return DayHours{StartMinute: start, EndMinute: end}, nil
	}

	return DayHours{StartMinute: DefaultOpenMinute, EndMinute: DefaultCloseMinute}, nil
}

// ParseMinuteOfDay converts "HH:MM" into a minute-of-day integer.
func ParseMinuteOfDay(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
	}
	return h*60 + m, nil
}

// FormatMinuteOfDay renders a minute-of-day integer back to "HH:MM".
func FormatMinuteOfDay(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
