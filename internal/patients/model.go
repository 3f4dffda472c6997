package patients

import (
	"strings"
	"time"
)

// Patient represents a patient record owned by a practice
type Patient struct {
	ID         string    `json:"id"`
	PracticeID string    `json:"practice_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreatePatientRequest represents the request body for creating a patient
type CreatePatientRequest struct {
	PracticeID string `json:"-"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Notes      string `json:"notes"`
}

// Validate validates the create patient request
func (r *CreatePatientRequest) Validate() error {
	if strings.TrimSpace(r.PracticeID) == "" {
		return ErrMissingPractice
	}
	if r.Name == "" {
		return ErrInvalidName
	}
	if r.Email == "" && r.Phone == "" {
		return ErrMissingContact
	}
	return nil
}
