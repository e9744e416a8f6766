package schedule

import "time"

// Slot is one candidate start time within the working-hours window.
type Slot struct {
	Minute    int
	Available bool
}

// Busy is an occupied interval taken from a non-cancelled appointment.
type Busy struct {
	StartMinute int
	DurationMin int
}

// GenerateSlots produces the ordered availability grid for one staff member
// and date. Candidates step by intervalMin from the open minute while the
// start stays before the close minute; a candidate whose computed end runs
// past closing is still listed, matching the product's booking behavior.
//
// A candidate is unavailable when its wall-clock instant is already behind
// now (only possible when date is today) or when [start, start+duration)
// overlaps any busy interval, both half-open.
func GenerateSlots(hours DayHours, durationMin, intervalMin int, date time.Time, now time.Time, busy []Busy) []Slot {
	if hours.Closed {
		return nil
	}
	if intervalMin <= 0 || durationMin <= 0 {
		return nil
	}

	var slots []Slot
	for start := hours.StartMinute; start < hours.EndMinute; start += intervalMin {
		slots = append(slots, Slot{
			Minute:    start,
			Available: slotAvailable(start, durationMin, date, now, busy),
		})
	}
	return slots
}

func slotAvailable(start, durationMin int, date, now time.Time, busy []Busy) bool {
	instant := time.Date(date.Year(), date.Month(), date.Day(), start/60, start%60, 0, 0, date.Location())
	if instant.Before(now) {
		return false
	}

	end := start + durationMin
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff
		// start < b.End && b.Start < end.
		if start < b.StartMinute+b.DurationMin && b.StartMinute < end {
			return false
		}
	}
	return true
}
