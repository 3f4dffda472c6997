package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing. Both *pgxpool.Pool and
// pgx.Tx satisfy it, so the same store runs standalone or inside a booking
// transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides persistence for sessions.
type Store struct {
	db DB
}

// NewStore creates a new session store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const sessionColumns = `id, practice_id, patient_id, scheduled_at, duration_minutes, session_type, status, notes, price_cents, created_at, updated_at`

// Create inserts a session unless it would overlap one already on the books.
// The guard is half-open, so back-to-back sessions touch without conflict,
// and canceled/no-show sessions do not hold their slot. The sessions_no_overlap
// exclusion constraint backs this up against writers racing past the guard.
func (s *Store) Create(ctx context.Context, req *NewSessionRequest) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	session := &Session{
		ID:              uuid.New(),
		PracticeID:      req.PracticeID,
		PatientID:       req.PatientID,
		ScheduledAt:     req.ScheduledAt.UTC(),
		DurationMinutes: req.DurationMinutes,
		SessionType:     req.SessionType,
		Status:          StatusScheduled,
		Notes:           req.Notes,
		PriceCents:      req.PriceCents,
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	tag, err := s.db.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10
		WHERE NOT EXISTS (
			SELECT 1 FROM sessions
			WHERE practice_id = $2
			  AND status NOT IN ('canceled', 'no_show')
			  AND scheduled_at < $4::timestamptz + make_interval(mins => $5)
			  AND scheduled_at + make_interval(mins => duration_minutes) > $4::timestamptz
		)`,
		session.ID, session.PracticeID, session.PatientID, session.ScheduledAt,
		session.DurationMinutes, session.SessionType, string(session.Status),
		session.Notes, session.PriceCents, now,
	)
	if err != nil {
		if isOverlapViolation(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("sessions: insert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrSlotUnavailable
	}
	return session, nil
}

// GetForPractice returns a session scoped to the practice.
func (s *Store) GetForPractice(ctx context.Context, practiceID string, id uuid.UUID) (*Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = $1 AND practice_id = $2`, id, practiceID)
	return scanSession(row)
}

// ListByRange returns the practice's sessions with scheduled_at in [from, to),
// ordered by start time.
func (s *Store) ListByRange(ctx context.Context, practiceID string, from, to time.Time) ([]Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE practice_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at ASC`, practiceID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("sessions: list by range: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var session Session
		var status string
		if err := rows.Scan(
			&session.ID, &session.PracticeID, &session.PatientID, &session.ScheduledAt,
			&session.DurationMinutes, &session.SessionType, &status,
			&session.Notes, &session.PriceCents, &session.CreatedAt, &session.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sessions: scan: %w", err)
		}
		session.Status = Status(status)
		out = append(out, session)
	}
	return out, rows.Err()
}

// UpdateStatus flips a session from one status to another as a conditional
// update. It reports false when zero rows matched, either because the session
// does not exist or because its status moved underneath the caller.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE sessions
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to), time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("sessions: update status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var session Session
	var status string
	if err := row.Scan(
		&session.ID, &session.PracticeID, &session.PatientID, &session.ScheduledAt,
		&session.DurationMinutes, &session.SessionType, &status,
		&session.Notes, &session.PriceCents, &session.CreatedAt, &session.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("sessions: select: %w", err)
	}
	session.Status = Status(status)
	return &session, nil
}

// Postgres codes for the exclusion-constraint backstop and unique violations.
func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23P01" || pgErr.Code == "23505"
}
