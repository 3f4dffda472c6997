package patients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores patients in the relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreatePatientRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO patients (id, practice_id, name, email, phone, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		req.PracticeID,
		req.Name,
		req.Email,
		req.Phone,
		req.Notes,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("patients: insert failed: %w", err)
	}

	return &Patient{
		ID:         id.String(),
		PracticeID: req.PracticeID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Notes:      req.Notes,
		CreatedAt:  createdAt,
	}, nil
}

// GetByID fetches a patient scoped to the practice.
func (r *PostgresRepository) GetByID(ctx context.Context, practiceID, id string) (*Patient, error) {
	query := `
		SELECT id, practice_id, name, email, phone, notes, created_at
		FROM patients
		WHERE id = $1 AND practice_id = $2
	`
	row := r.pool.QueryRow(ctx, query, id, practiceID)
	var patient Patient
	if err := row.Scan(
		&patient.ID,
		&patient.PracticeID,
		&patient.Name,
		&patient.Email,
		&patient.Phone,
		&patient.Notes,
		&patient.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: select failed: %w", err)
	}
	return &patient, nil
}
