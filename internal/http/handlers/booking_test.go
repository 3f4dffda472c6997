package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellspring-health/practice-scheduler/internal/booking"
	"github.com/wellspring-health/practice-scheduler/internal/sessions"
	"github.com/wellspring-health/practice-scheduler/internal/tenancy"
)

type stubBookingService struct {
	issueToken  *booking.Token
	issueErr    error
	validateErr error
	redeemSess  *sessions.Session
	redeemErr   error

	gotIssueTTL time.Duration
	gotRedeem   booking.Request
}

func (s *stubBookingService) Issue(_ context.Context, practiceID string, patientID uuid.UUID, issuedBy string, ttl time.Duration) (*booking.Token, error) {
	s.gotIssueTTL = ttl
	return s.issueToken, s.issueErr
}

func (s *stubBookingService) Validate(_ context.Context, value string) (*booking.Token, error) {
	if s.validateErr != nil {
		return nil, s.validateErr
	}
	return &booking.Token{Token: value, PatientID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *stubBookingService) RedeemAndBook(_ context.Context, value string, req booking.Request) (*sessions.Session, error) {
	s.gotRedeem = req
	return s.redeemSess, s.redeemErr
}

func postBook(t *testing.T, h *BookingHandler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/book", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h.Book(rec, req)
	return rec
}

func TestBookCreatesSession(t *testing.T) {
	sess := &sessions.Session{ID: uuid.New(), ScheduledAt: time.Date(2030, 6, 11, 14, 0, 0, 0, time.UTC)}
	svc := &stubBookingService{redeemSess: sess}
	h := NewBookingHandler(svc, nil, "", 72*time.Hour)

	rec := postBook(t, h, map[string]string{
		"token": "tok-1", "date": "2030-06-11", "time": "14:00", "session_type": "initial",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp publicBookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, sess.ID.String(), resp.SessionID)
	assert.Equal(t, "2030-06-11", svc.gotRedeem.Date)
	assert.Equal(t, "14:00", svc.gotRedeem.Time)
}

func TestBookErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"token not found", booking.ErrTokenNotFound, http.StatusNotFound},
		{"token expired", booking.ErrTokenExpired, http.StatusGone},
		{"token already used", booking.ErrTokenAlreadyUsed, http.StatusConflict},
		{"slot taken", sessions.ErrSlotUnavailable, http.StatusConflict},
		{"malformed slot", booking.ErrMalformedSlot, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewBookingHandler(&stubBookingService{redeemErr: tc.err}, nil, "", 72*time.Hour)
			rec := postBook(t, h, map[string]string{"token": "tok-1", "date": "2030-06-11", "time": "14:00"})
			assert.Equal(t, tc.code, rec.Code)
			// Patient-facing messages never leak internals.
			assert.NotContains(t, rec.Body.String(), "sql")
			assert.NotContains(t, rec.Body.String(), "pgx")
		})
	}
}

func TestBookRequiresToken(t *testing.T) {
	h := NewBookingHandler(&stubBookingService{}, nil, "", 72*time.Hour)
	rec := postBook(t, h, map[string]string{"date": "2030-06-11", "time": "14:00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateLinkMapsExpired(t *testing.T) {
	h := NewBookingHandler(&stubBookingService{validateErr: booking.ErrTokenExpired}, nil, "", 72*time.Hour)

	r := chi.NewRouter()
	r.Get("/book/{token}", h.ValidateLink)
	req := httptest.NewRequest(http.MethodGet, "/book/tok-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestIssueLinkBuildsPublicURL(t *testing.T) {
	expires := time.Now().Add(72 * time.Hour)
	svc := &stubBookingService{issueToken: &booking.Token{Token: "tok-abc", ExpiresAt: expires}}
	h := NewBookingHandler(svc, nil, "https://book.example.com", 72*time.Hour)

	body, _ := json.Marshal(map[string]any{"patient_id": uuid.New().String()})
	req := httptest.NewRequest(http.MethodPost, "/api/booking-links", bytes.NewReader(body))
	req = req.WithContext(tenancy.WithPracticeID(req.Context(), "prac-1"))
	rec := httptest.NewRecorder()
	h.IssueLink(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp issueLinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "tok-abc", resp.Token)
	assert.Equal(t, "https://book.example.com/book/tok-abc", resp.URL)
	assert.Equal(t, 72*time.Hour, svc.gotIssueTTL)
}

func TestIssueLinkCustomTTL(t *testing.T) {
	svc := &stubBookingService{issueToken: &booking.Token{Token: "tok-abc"}}
	h := NewBookingHandler(svc, nil, "", 72*time.Hour)

	body, _ := json.Marshal(map[string]any{"patient_id": uuid.New().String(), "ttl_hours": 24})
	req := httptest.NewRequest(http.MethodPost, "/api/booking-links", bytes.NewReader(body))
	req = req.WithContext(tenancy.WithPracticeID(req.Context(), "prac-1"))
	rec := httptest.NewRecorder()
	h.IssueLink(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 24*time.Hour, svc.gotIssueTTL)
}

func TestIssueLinkRequiresPracticeContext(t *testing.T) {
	h := NewBookingHandler(&stubBookingService{}, nil, "", 72*time.Hour)
	body, _ := json.Marshal(map[string]any{"patient_id": uuid.New().String()})
	req := httptest.NewRequest(http.MethodPost, "/api/booking-links", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.IssueLink(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
