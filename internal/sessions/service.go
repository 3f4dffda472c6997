package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wellspring-health/practice-scheduler/internal/observability/metrics"
	"github.com/wellspring-health/practice-scheduler/pkg/logging"
)

var sessionsTracer = otel.Tracer("wellspring.internal.sessions")

// Notifier receives lifecycle side effects. Implementations deliver
// reminders/confirmations; failures are the notifier's problem, never the
// caller's.
type Notifier interface {
	SessionScheduled(ctx context.Context, session *Session)
	SessionStatusChanged(ctx context.Context, session *Session, previous Status)
}

// Service drives the session lifecycle on top of the store.
type Service struct {
	store    *Store
	notifier Notifier
	logger   *logging.Logger
	metrics  *metrics.SchedulingMetrics
}

// NewService constructs a session lifecycle service.
func NewService(store *Store, notifier Notifier, logger *logging.Logger, m *metrics.SchedulingMetrics) *Service {
	if store == nil {
		panic("sessions: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, notifier: notifier, logger: logger, metrics: m}
}

// Schedule puts a therapist-created session on the books, rejecting times
// that conflict with an existing session.
func (s *Service) Schedule(ctx context.Context, req *NewSessionRequest) (*Session, error) {
	ctx, span := sessionsTracer.Start(ctx, "sessions.schedule")
	defer span.End()
	span.SetAttributes(attribute.String("wellspring.practice_id", req.PracticeID))

	session, err := s.store.Create(ctx, req)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("rejected")
		return nil, err
	}
	s.metrics.ObserveBooking("created")
	s.logger.Info("session scheduled",
		"practice_id", session.PracticeID,
		"session_id", session.ID,
		"scheduled_at", session.ScheduledAt,
	)
	s.dispatchScheduled(ctx, session)
	return session, nil
}

// Transition moves a session to the requested status, enforcing the
// transition table. Terminal states reject everything. The conditional
// update in the store catches two callers racing on the same session.
func (s *Service) Transition(ctx context.Context, practiceID string, id uuid.UUID, next Status) (*Session, error) {
	ctx, span := sessionsTracer.Start(ctx, "sessions.transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("wellspring.session_id", id.String()),
		attribute.String("wellspring.next_status", string(next)),
	)

	if !next.Valid() {
		s.metrics.ObserveTransition(string(next), "unknown_status")
		return nil, ErrUnknownStatus
	}

	session, err := s.store.GetForPractice(ctx, practiceID, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	previous := session.Status
	if !previous.CanTransitionTo(next) {
		s.metrics.ObserveTransition(string(next), "invalid_transition")
		return nil, ErrInvalidTransition
	}

	ok, err := s.store.UpdateStatus(ctx, id, previous, next)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !ok {
		// Someone else moved the session between our read and write.
		s.metrics.ObserveTransition(string(next), "lost_race")
		if _, err := s.store.GetForPractice(ctx, practiceID, id); err != nil {
			return nil, err
		}
		return nil, ErrInvalidTransition
	}

	session.Status = next
	s.metrics.ObserveTransition(string(next), "ok")
	s.logger.Info("session status changed",
		"session_id", session.ID,
		"from", previous,
		"to", next,
	)
	s.dispatchStatusChanged(ctx, session, previous)
	return session, nil
}

// ListByRange returns the practice's sessions in [from, to).
func (s *Service) ListByRange(ctx context.Context, practiceID string, from, to time.Time) ([]Session, error) {
	return s.store.ListByRange(ctx, practiceID, from, to)
}

// Side effects are fire-and-forget: the status change is already committed
// and a notification failure must not undo it.
func (s *Service) dispatchScheduled(ctx context.Context, session *Session) {
	if s.notifier == nil {
		return
	}
	s.notifier.SessionScheduled(context.WithoutCancel(ctx), session)
}

func (s *Service) dispatchStatusChanged(ctx context.Context, session *Session, previous Status) {
	if s.notifier == nil {
		return
	}
	s.notifier.SessionStatusChanged(context.WithoutCancel(ctx), session, previous)
}
