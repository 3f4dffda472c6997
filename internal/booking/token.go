// Package booking issues and redeems single-use, time-limited booking links
// that let an unauthenticated patient create exactly one session.
package booking

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// tokenBytes of entropy go into each link; base64url keeps the result
// copy-paste safe in a URL path.
const tokenBytes = 32

// Token is a single-use booking credential. The Token string is the only
// thing the patient ever sees.
type Token struct {
	Token      string     `json:"token"`
	PracticeID string     `json:"practice_id"`
	PatientID  uuid.UUID  `json:"patient_id"`
	IssuedBy   string     `json:"issued_by"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Used       bool       `json:"used"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Expired reports whether the link is past its window at the given instant.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// newTokenString draws an unpredictable opaque identifier.
func newTokenString() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("booking: token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
