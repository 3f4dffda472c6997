package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wellspring-health/practice-scheduler/internal/availability"
	"github.com/wellspring-health/practice-scheduler/internal/observability/metrics"
	"github.com/wellspring-health/practice-scheduler/internal/scheduling"
	"github.com/wellspring-health/practice-scheduler/internal/sessions"
	"github.com/wellspring-health/practice-scheduler/pkg/logging"
)

var bookingTracer = otel.Tracer("wellspring.internal.booking")

// Pool is the write-side database handle. The redemption path needs a real
// transaction; everything else runs on the plain query interface.
type Pool interface {
	DB
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SettingsSource exposes the current availability settings for a practice.
type SettingsSource interface {
	Get(ctx context.Context, practiceID string) (*availability.Settings, error)
}

// Service issues, validates, and redeems booking links.
type Service struct {
	pool     Pool
	settings SettingsSource
	logger   *logging.Logger
	metrics  *metrics.SchedulingMetrics
}

// NewService constructs a booking service.
func NewService(pool Pool, settings SettingsSource, logger *logging.Logger, m *metrics.SchedulingMetrics) *Service {
	if pool == nil {
		panic("booking: database pool required")
	}
	if settings == nil {
		panic("booking: settings source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{pool: pool, settings: settings, logger: logger, metrics: m}
}

// Issue creates a single-use booking link for the patient.
func (s *Service) Issue(ctx context.Context, practiceID string, patientID uuid.UUID, issuedBy string, ttl time.Duration) (*Token, error) {
	token, err := NewStore(s.pool).Issue(ctx, practiceID, patientID, issuedBy, ttl)
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking link issued",
		"practice_id", practiceID,
		"patient_id", patientID,
		"expires_at", token.ExpiresAt,
	)
	return token, nil
}

// Validate checks a link without consuming it, so a booking page can load the
// patient context before the patient commits to a slot.
func (s *Service) Validate(ctx context.Context, value string) (*Token, error) {
	token, err := NewStore(s.pool).Get(ctx, value)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if token.Expired(now) {
		return nil, ErrTokenExpired
	}
	if token.Used {
		return nil, ErrTokenAlreadyUsed
	}
	return token, nil
}

// Request is the public booking payload: which slot, in the practice's
// local calendar, and what kind of session.
type Request struct {
	Date        string `json:"date"` // "2026-01-06"
	Time        string `json:"time"` // "14:00"
	SessionType string `json:"session_type"`
	Notes       string `json:"notes"`
}

// RedeemAndBook atomically consumes a booking link and creates the session.
// The whole exchange runs in one transaction: re-validate the token under a
// row lock, insert the session behind the overlap guard, and flip used
// false→true as a compare-and-swap. Two racing redeemers serialize on the
// row; exactly one commits, the other sees the swap fail.
func (s *Service) RedeemAndBook(ctx context.Context, value string, req Request) (*sessions.Session, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.redeem")
	defer span.End()

	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: begin redeem: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tokens := NewStore(tx)
	token, err := tokens.GetForUpdate(ctx, value)
	if err != nil {
		// Only a genuinely unknown token counts as not-found; an
		// infrastructure failure must not skew the redemption stats.
		if errors.Is(err, ErrTokenNotFound) {
			s.metrics.ObserveRedemption("token_not_found")
		}
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("wellspring.practice_id", token.PracticeID))

	// Expiry wins over used: an expired link reports expired even if it was
	// somehow redeemed first.
	if token.Expired(now) {
		s.metrics.ObserveRedemption("token_expired")
		return nil, ErrTokenExpired
	}
	if token.Used {
		s.metrics.ObserveRedemption("token_already_used")
		return nil, ErrTokenAlreadyUsed
	}

	settings, err := s.settings.Get(ctx, token.PracticeID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: load settings: %w", err)
	}

	start, err := s.resolveSlot(req, settings, now)
	if err != nil {
		s.metrics.ObserveRedemption("slot_unavailable")
		return nil, err
	}

	session, err := sessions.NewStore(tx).Create(ctx, &sessions.NewSessionRequest{
		PracticeID:      token.PracticeID,
		PatientID:       token.PatientID,
		ScheduledAt:     start,
		DurationMinutes: settings.AppointmentDurationMinutes,
		SessionType:     req.SessionType,
		Notes:           req.Notes,
	})
	if err != nil {
		s.metrics.ObserveRedemption("slot_unavailable")
		span.RecordError(err)
		return nil, err
	}

	swapped, err := tokens.MarkUsed(ctx, token.Token, now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !swapped {
		s.metrics.ObserveRedemption("token_already_used")
		return nil, ErrTokenAlreadyUsed
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: commit redeem: %w", err)
	}

	s.metrics.ObserveRedemption("ok")
	s.logger.Info("booking link redeemed",
		"practice_id", token.PracticeID,
		"patient_id", token.PatientID,
		"session_id", session.ID,
		"scheduled_at", session.ScheduledAt,
	)
	return session, nil
}

// resolveSlot maps the requested local date and time onto a generated
// candidate slot. Anything outside the candidate set (closed day, break,
// misaligned start, a start already in the past) is simply not a slot.
func (s *Service) resolveSlot(req Request, settings *availability.Settings, now time.Time) (time.Time, error) {
	loc, err := settings.Location()
	if err != nil {
		return time.Time{}, err
	}
	day, err := time.ParseInLocation("2006-01-02", req.Date, loc)
	if err != nil {
		return time.Time{}, ErrMalformedSlot
	}
	minute, err := availability.ParseClock(req.Time)
	if err != nil {
		return time.Time{}, ErrMalformedSlot
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), minute/60, minute%60, 0, 0, loc)

	candidates, err := scheduling.GenerateSlots(day, settings, now)
	if err != nil {
		return time.Time{}, err
	}
	for _, slot := range candidates {
		if slot.Start.Equal(start) {
			return start, nil
		}
	}
	return time.Time{}, sessions.ErrSlotUnavailable
}
