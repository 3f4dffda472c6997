package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface so the store runs against a pool, a
// transaction, or a mock.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides persistence for booking tokens.
type Store struct {
	db DB
}

// NewStore creates a new booking token store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const tokenColumns = `token, practice_id, patient_id, issued_by, expires_at, used, used_at, created_at`

// Issue persists a fresh unused token expiring after ttl.
func (s *Store) Issue(ctx context.Context, practiceID string, patientID uuid.UUID, issuedBy string, ttl time.Duration) (*Token, error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	value, err := newTokenString()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	token := &Token{
		Token:      value,
		PracticeID: practiceID,
		PatientID:  patientID,
		IssuedBy:   issuedBy,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO booking_tokens (`+tokenColumns+`)
		VALUES ($1, $2, $3, $4, $5, FALSE, NULL, $6)`,
		token.Token, token.PracticeID, token.PatientID, token.IssuedBy,
		token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("booking: insert token: %w", err)
	}
	return token, nil
}

// Get loads a token row.
func (s *Store) Get(ctx context.Context, value string) (*Token, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM booking_tokens
		WHERE token = $1`, value)
	return scanToken(row)
}

// GetForUpdate loads a token row with a row lock; used inside the redemption
// transaction so two redeemers serialize on the row.
func (s *Store) GetForUpdate(ctx context.Context, value string) (*Token, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM booking_tokens
		WHERE token = $1
		FOR UPDATE`, value)
	return scanToken(row)
}

// MarkUsed flips used from false to true as a compare-and-swap. When two
// redemptions race, exactly one sees rows affected; the other gets false.
func (s *Store) MarkUsed(ctx context.Context, value string, now time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE booking_tokens
		SET used = TRUE, used_at = $2
		WHERE token = $1 AND used = FALSE AND expires_at > $2`,
		value, now.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("booking: mark used: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanToken(row pgx.Row) (*Token, error) {
	var t Token
	if err := row.Scan(
		&t.Token, &t.PracticeID, &t.PatientID, &t.IssuedBy,
		&t.ExpiresAt, &t.Used, &t.UsedAt, &t.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("booking: select token: %w", err)
	}
	return &t, nil
}
