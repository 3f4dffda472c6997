// Package sessions owns the therapy session record and its status lifecycle.
package sessions

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a session. The set is closed; transitions
// go through the table below, never through ad-hoc string comparisons.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
	StatusNoShow     Status = "no_show"
)

// transitions lists the permitted next states per current state. Terminal
// states have no entries.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusConfirmed, StatusCanceled, StatusNoShow},
	StatusConfirmed:  {StatusInProgress, StatusCanceled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusNoShow},
	StatusCompleted:  {},
	StatusCanceled:   {},
	StatusNoShow:     {},
}

// ParseStatus maps a wire string onto the closed enum.
func ParseStatus(s string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	_, ok := transitions[status]
	return status, ok
}

// Valid reports whether the status is a member of the closed set.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo consults the transition table.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// BlocksCalendar reports whether a session in this status still occupies its
// slot. Canceled and no-show sessions free the time for rebooking.
func (s Status) BlocksCalendar() bool {
	return s != StatusCanceled && s != StatusNoShow
}

// Session is a scheduled appointment between therapist and patient.
// ScheduledAt is an absolute instant; local-day bucketing happens at the
// presentation boundary only.
type Session struct {
	ID              uuid.UUID `json:"id"`
	PracticeID      string    `json:"practice_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	SessionType     string    `json:"session_type"`
	Status          Status    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	PriceCents      int       `json:"price_cents,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// End returns the instant the session finishes.
func (s *Session) End() time.Time {
	return s.ScheduledAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// NewSessionRequest carries the fields needed to put a session on the books.
type NewSessionRequest struct {
	PracticeID      string    `json:"-"`
	PatientID       uuid.UUID `json:"patient_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	SessionType     string    `json:"session_type"`
	Notes           string    `json:"notes"`
	PriceCents      int       `json:"price_cents"`
}

// Validate checks the request invariants.
func (r *NewSessionRequest) Validate() error {
	if strings.TrimSpace(r.PracticeID) == "" {
		return ErrMissingPractice
	}
	if r.PatientID == uuid.Nil {
		return ErrMissingPatient
	}
	if r.ScheduledAt.IsZero() {
		return ErrMissingStart
	}
	if r.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	return nil
}
