// Package scheduling derives bookable time slots from availability settings
// and marks them against existing sessions. Everything here is pure: callers
// pass the day, the settings snapshot, the booked intervals, and the current
// instant, and get the same answer every time.
package scheduling

import (
	"time"

	"github.com/wellspring-health/practice-scheduler/internal/availability"
)

// Slot is a candidate appointment window. Never persisted; recomputed on
// every query from current settings and sessions.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// Booked is an occupied interval on the calendar, half-open [Start, End).
type Booked struct {
	Start time.Time
	End   time.Time
}

// BookedFrom builds an interval from a session start and duration.
func BookedFrom(start time.Time, durationMinutes int) Booked {
	return Booked{Start: start, End: start.Add(time.Duration(durationMinutes) * time.Minute)}
}

// GenerateSlots enumerates candidate slots for one calendar day, interpreted
// in the practice timezone. Non-working days yield no slots. Windows step by
// the appointment duration from day start; a trailing window that would run
// past day end is dropped. Windows crossing a break are dropped. If the day
// is today, windows whose start has already passed are dropped.
func GenerateSlots(day time.Time, settings *availability.Settings, now time.Time) ([]Slot, error) {
	loc, err := settings.Location()
	if err != nil {
		return nil, err
	}
	dayStart, err := availability.ParseClock(settings.DayStart)
	if err != nil {
		return nil, err
	}
	dayEnd, err := availability.ParseClock(settings.DayEnd)
	if err != nil {
		return nil, err
	}
	if dayStart >= dayEnd {
		return nil, availability.ErrInvalidDayBounds
	}
	duration := settings.AppointmentDurationMinutes
	if duration <= 0 {
		return nil, availability.ErrInvalidDuration
	}

	year, month, dom := day.In(loc).Date()
	weekday := time.Date(year, month, dom, 0, 0, 0, 0, loc).Weekday()
	if !settings.IsWorkingDay(weekday) {
		return nil, nil
	}

	type span struct{ start, end int }
	breaks := make([]span, 0, len(settings.Breaks))
	for _, b := range settings.Breaks {
		start, err := availability.ParseClock(b.Start)
		if err != nil {
			return nil, err
		}
		end, err := availability.ParseClock(b.End)
		if err != nil {
			return nil, err
		}
		breaks = append(breaks, span{start: start, end: end})
	}

	nowLocal := now.In(loc)
	sameDay := nowLocal.Year() == year && nowLocal.Month() == month && nowLocal.Day() == dom

	var slots []Slot
	for startMin := dayStart; startMin+duration <= dayEnd; startMin += duration {
		endMin := startMin + duration

		crossesBreak := false
		for _, b := range breaks {
			if startMin < b.end && b.start < endMin {
				crossesBreak = true
				break
			}
		}
		if crossesBreak {
			continue
		}

		start := time.Date(year, month, dom, startMin/60, startMin%60, 0, 0, loc)
		if sameDay && !start.After(now) {
			continue
		}
		end := time.Date(year, month, dom, endMin/60, endMin%60, 0, 0, loc)
		slots = append(slots, Slot{Start: start, End: end, Available: true})
	}
	return slots, nil
}

// MarkConflicts flags each slot unavailable when it overlaps a booked
// interval. Overlap is half-open: touching endpoints do not conflict.
func MarkConflicts(slots []Slot, booked []Booked) []Slot {
	marked := make([]Slot, len(slots))
	copy(marked, slots)
	for i := range marked {
		for _, b := range booked {
			if Overlaps(marked[i].Start, marked[i].End, b.Start, b.End) {
				marked[i].Available = false
				break
			}
		}
	}
	return marked
}

// AvailableSlots generates candidates for the day and marks conflicts
// against the booked intervals in one pass.
func AvailableSlots(day time.Time, settings *availability.Settings, booked []Booked, now time.Time) ([]Slot, error) {
	slots, err := GenerateSlots(day, settings, now)
	if err != nil {
		return nil, err
	}
	return MarkConflicts(slots, booked), nil
}

// OnlyAvailable filters a marked slot list down to the open windows.
func OnlyAvailable(slots []Slot) []Slot {
	var open []Slot
	for _, s := range slots {
		if s.Available {
			open = append(open, s)
		}
	}
	return open
}

// Overlaps reports whether [a0,a1) and [b0,b1) share at least one instant.
func Overlaps(a0, a1, b0, b1 time.Time) bool {
	return a0.Before(b1) && b0.Before(a1)
}
