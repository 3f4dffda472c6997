// Package availability holds per-practice working-hours configuration used to
// derive bookable appointment slots.
package availability

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidClock is returned when a time of day is not "HH:MM" 24-hour format
	ErrInvalidClock = errors.New("time of day must be HH:MM in 24-hour format")

	// ErrInvalidDayBounds is returned when day_start is not before day_end
	ErrInvalidDayBounds = errors.New("day start must be before day end")

	// ErrInvalidDuration is returned when the appointment duration is not positive
	ErrInvalidDuration = errors.New("appointment duration must be greater than zero")

	// ErrBreakOutOfBounds is returned when a break window falls outside working hours
	ErrBreakOutOfBounds = errors.New("break window must fall within working hours")

	// ErrBreaksOverlap is returned when two break windows overlap
	ErrBreaksOverlap = errors.New("break windows must not overlap")

	// ErrInvalidTimezone is returned when the timezone is not a loadable IANA name
	ErrInvalidTimezone = errors.New("timezone must be a valid IANA zone name")

	// ErrNoWorkingDays is returned when no working day is configured
	ErrNoWorkingDays = errors.New("at least one working day is required")
)

// Window is a break inside the working day, half-open [Start, End).
type Window struct {
	Start string `json:"start"` // "12:00" in 24-hour format
	End   string `json:"end"`   // "13:00" in 24-hour format
}

// Settings describes when a practice accepts appointments.
type Settings struct {
	PracticeID                 string         `json:"practice_id"`
	WorkingDays                []time.Weekday `json:"working_days"`
	DayStart                   string         `json:"day_start"` // "08:00"
	DayEnd                     string         `json:"day_end"`   // "18:00"
	AppointmentDurationMinutes int            `json:"appointment_duration_minutes"`
	Breaks                     []Window       `json:"breaks,omitempty"`
	Timezone                   string         `json:"timezone"`
	UpdatedAt                  time.Time      `json:"updated_at,omitempty"`
}

// DefaultSettings returns the configuration applied before a practice saves its own:
// weekday mornings-to-evenings with the classic 50-minute therapy hour.
func DefaultSettings(practiceID, timezone string) *Settings {
	if timezone == "" {
		timezone = "UTC"
	}
	return &Settings{
		PracticeID: practiceID,
		WorkingDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		DayStart:                   "09:00",
		DayEnd:                     "17:00",
		AppointmentDurationMinutes: 50,
		Timezone:                   timezone,
	}
}

// Validate checks the structural invariants. It does not touch the clock.
func (s *Settings) Validate() error {
	if len(s.WorkingDays) == 0 {
		return ErrNoWorkingDays
	}
	dayStart, err := ParseClock(s.DayStart)
	if err != nil {
		return fmt.Errorf("day_start %q: %w", s.DayStart, err)
	}
	dayEnd, err := ParseClock(s.DayEnd)
	if err != nil {
		return fmt.Errorf("day_end %q: %w", s.DayEnd, err)
	}
	if dayStart >= dayEnd {
		return ErrInvalidDayBounds
	}
	if s.AppointmentDurationMinutes <= 0 {
		return ErrInvalidDuration
	}

	type span struct{ start, end int }
	spans := make([]span, 0, len(s.Breaks))
	for _, b := range s.Breaks {
		start, err := ParseClock(b.Start)
		if err != nil {
			return fmt.Errorf("break start %q: %w", b.Start, err)
		}
		end, err := ParseClock(b.End)
		if err != nil {
			return fmt.Errorf("break end %q: %w", b.End, err)
		}
		if start >= end {
			return ErrBreakOutOfBounds
		}
		if start < dayStart || end > dayEnd {
			return ErrBreakOutOfBounds
		}
		spans = append(spans, span{start: start, end: end})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			return ErrBreaksOverlap
		}
	}

	if _, err := s.Location(); err != nil {
		return err
	}
	return nil
}

// IsWorkingDay reports whether the practice accepts appointments on the weekday.
func (s *Settings) IsWorkingDay(day time.Weekday) bool {
	for _, d := range s.WorkingDays {
		if d == day {
			return true
		}
	}
	return false
}

// Location resolves the practice timezone.
func (s *Settings) Location() (*time.Location, error) {
	name := s.Timezone
	if name == "" {
		name = "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	return loc, nil
}

// ParseClock converts "HH:MM" to a minute-of-day offset.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, ErrInvalidClock
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, ErrInvalidClock
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, ErrInvalidClock
	}
	return hour*60 + minute, nil
}

// FormatClock renders a minute-of-day offset back to "HH:MM".
func FormatClock(minuteOfDay int) string {
	return fmt.Sprintf("%02d:%02d", minuteOfDay/60, minuteOfDay%60)
}
