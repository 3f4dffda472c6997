// Package notify delivers session lifecycle messages to patients. Delivery is
// best-effort: the scheduling engine has already committed its state change
// by the time anything here runs, and a failed send only produces a log line.
package notify

import (
	"context"
	"fmt"

	"github.com/wellspring-health/practice-scheduler/internal/patients"
	"github.com/wellspring-health/practice-scheduler/internal/sessions"
	"github.com/wellspring-health/practice-scheduler/pkg/logging"
)

// Service implements the session lifecycle notifier over email.
type Service struct {
	email    EmailSender
	patients patients.Repository
	logger   *logging.Logger
}

// NewService constructs a notification service.
func NewService(email EmailSender, repo patients.Repository, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = NewStubSender(logger)
	}
	return &Service{email: email, patients: repo, logger: logger}
}

// SessionScheduled sends a booking confirmation.
func (s *Service) SessionScheduled(ctx context.Context, session *sessions.Session) {
	patient, ok := s.lookup(ctx, session)
	if !ok || patient.Email == "" {
		return
	}
	msg := EmailMessage{
		To:      patient.Email,
		ToName:  patient.Name,
		Subject: "Your session is booked",
		Body: fmt.Sprintf("Hi %s,\n\nYour session is booked for %s.\n\nSee you then.",
			patient.Name, session.ScheduledAt.Format("Monday, January 2 at 3:04 PM MST")),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("booking confirmation failed", "error", err, "session_id", session.ID)
	}
}

// SessionStatusChanged sends a status update where one makes sense to the
// patient. Internal bookkeeping states stay internal.
func (s *Service) SessionStatusChanged(ctx context.Context, session *sessions.Session, previous sessions.Status) {
	var subject, body string
	switch session.Status {
	case sessions.StatusConfirmed:
		subject = "Your session is confirmed"
		body = fmt.Sprintf("Your session on %s is confirmed.",
			session.ScheduledAt.Format("Monday, January 2 at 3:04 PM MST"))
	case sessions.StatusCanceled:
		subject = "Your session was canceled"
		body = fmt.Sprintf("Your session on %s has been canceled. Reach out to rebook.",
			session.ScheduledAt.Format("Monday, January 2 at 3:04 PM MST"))
	default:
		return
	}

	patient, ok := s.lookup(ctx, session)
	if !ok || patient.Email == "" {
		return
	}
	msg := EmailMessage{To: patient.Email, ToName: patient.Name, Subject: subject, Body: body}
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("status notification failed", "error", err,
			"session_id", session.ID, "status", session.Status)
	}
}

func (s *Service) lookup(ctx context.Context, session *sessions.Session) (*patients.Patient, bool) {
	if s.patients == nil {
		return nil, false
	}
	patient, err := s.patients.GetByID(ctx, session.PracticeID, session.PatientID.String())
	if err != nil {
		s.logger.Error("patient lookup for notification failed", "error", err, "session_id", session.ID)
		return nil, false
	}
	return patient, true
}
