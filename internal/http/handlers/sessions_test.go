package handlers

import (
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

	"github.com/wellspring-health/practice-scheduler/internal/calendar"
	"github.com/wellspring-health/practice-scheduler/internal/sessions"
)

type stubLifecycle struct {
	scheduled     *sessions.Session
	scheduleErr   error
	transitioned  *sessions.Session
	transitionErr error
	listed        []sessions.Session
	listErr       error

	gotSchedule   *sessions.NewSessionRequest
	gotTransition sessions.Status
	gotFrom       time.Time
	gotTo         time.Time
}

func (s *stubLifecycle) Schedule(_ context.Context, req *sessions.NewSessionRequest) (*sessions.Session, error) {
	s.gotSchedule = req
	return s.scheduled, s.scheduleErr
}

func (s *stubLifecycle) Transition(_ context.Context, _ string, _ uuid.UUID, next sessions.Status) (*sessions.Session, error) {
	s.gotTransition = next
	return s.transitioned, s.transitionErr
}

func (s *stubLifecycle) ListByRange(_ context.Context, _ string, from, to time.Time) ([]sessions.Session, error) {
	s.gotFrom, s.gotTo = from, to
	return s.listed, s.listErr
}

func TestCreateSessionSchedules(t *testing.T) {
	patientID := uuid.New()
	start := time.Date(2030, 6, 11, 14, 0, 0, 0, time.UTC)
	lc := &stubLifecycle{scheduled: &sessions.Session{ID: uuid.New(), PatientID: patientID, ScheduledAt: start}}
	h := NewSessionsHandler(lc, &stubSettingsStore{}, nil)

	body, _ := json.Marshal(map[string]any{
		"patient_id":       patientID.String(),
		"scheduled_at":     start,
		"duration_minutes": 50,
		"session_type":     "follow_up",
		"price_cents":      15000,
	})
	rec := httptest.NewRecorder()
	h.Create(rec, authedRequest(http.MethodPost, "/api/sessions", body))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, lc.gotSchedule)
	assert.Equal(t, "prac-1", lc.gotSchedule.PracticeID)
	assert.Equal(t, 50, lc.gotSchedule.DurationMinutes)
	assert.Equal(t, 15000, lc.gotSchedule.PriceCents)
}

func TestCreateSessionConflictMapsTo409(t *testing.T) {
	lc := &stubLifecycle{scheduleErr: sessions.ErrSlotUnavailable}
	h := NewSessionsHandler(lc, &stubSettingsStore{}, nil)

	body, _ := json.Marshal(map[string]any{
		"patient_id":       uuid.New().String(),
		"scheduled_at":     time.Date(2030, 6, 11, 14, 0, 0, 0, time.UTC),
		"duration_minutes": 50,
	})
	rec := httptest.NewRecorder()
	h.Create(rec, authedRequest(http.MethodPost, "/api/sessions", body))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateSessionRejectsBadPatient(t *testing.T) {
	h := NewSessionsHandler(&stubLifecycle{}, &stubSettingsStore{}, nil)
	body, _ := json.Marshal(map[string]any{"patient_id": "not-a-uuid"})
	rec := httptest.NewRecorder()
	h.Create(rec, authedRequest(http.MethodPost, "/api/sessions", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSessionsWeekView(t *testing.T) {
	sess := sessions.Session{
		ID: uuid.New(), PracticeID: "prac-1", PatientID: uuid.New(),
		ScheduledAt: time.Date(2030, 6, 11, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 50, Status: sessions.StatusScheduled,
	}
	lc := &stubLifecycle{listed: []sessions.Session{sess}}
	h := NewSessionsHandler(lc, &stubSettingsStore{settings: tuesdaySettings(t)}, nil)

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(http.MethodGet, "/api/sessions?from=2030-06-11&view=week", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var view calendar.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, calendar.ViewWeek, view.Mode)
	// A week view always carries seven day buckets, Monday first.
	require.Len(t, view.Days, 7)
	assert.Equal(t, "2030-06-10", view.Days[0].Date)

	loc, _ := time.LoadLocation("America/New_York")
	assert.Equal(t, time.Date(2030, 6, 10, 0, 0, 0, 0, loc), lc.gotFrom)
}

func TestListSessionsExplicitRange(t *testing.T) {
	lc := &stubLifecycle{}
	h := NewSessionsHandler(lc, &stubSettingsStore{settings: tuesdaySettings(t)}, nil)

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(http.MethodGet, "/api/sessions?from=2030-06-11&to=2030-06-13&view=day", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	loc, _ := time.LoadLocation("America/New_York")
	assert.Equal(t, time.Date(2030, 6, 11, 0, 0, 0, 0, loc), lc.gotFrom)
	// "to" is inclusive of the named day.
	assert.Equal(t, time.Date(2030, 6, 14, 0, 0, 0, 0, loc), lc.gotTo)
}

func TestListSessionsRejectsInvertedRange(t *testing.T) {
	h := NewSessionsHandler(&stubLifecycle{}, &stubSettingsStore{settings: tuesdaySettings(t)}, nil)
	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(http.MethodGet, "/api/sessions?from=2030-06-13&to=2030-06-11", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func statusRoute(h *SessionsHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/sessions/{sessionID}/status", h.UpdateStatus)
	return r
}

func TestUpdateStatusTransitions(t *testing.T) {
	id := uuid.New()
	lc := &stubLifecycle{transitioned: &sessions.Session{ID: id, Status: sessions.StatusConfirmed}}
	h := NewSessionsHandler(lc, &stubSettingsStore{}, nil)

	body, _ := json.Marshal(map[string]string{"status": "confirmed"})
	req := authedRequest(http.MethodPost, "/api/sessions/"+id.String()+"/status", body)
	rec := httptest.NewRecorder()
	statusRoute(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sessions.StatusConfirmed, lc.gotTransition)
}

func TestUpdateStatusInvalidTransitionMapsTo409(t *testing.T) {
	id := uuid.New()
	lc := &stubLifecycle{transitionErr: sessions.ErrInvalidTransition}
	h := NewSessionsHandler(lc, &stubSettingsStore{}, nil)

	body, _ := json.Marshal(map[string]string{"status": "scheduled"})
	req := authedRequest(http.MethodPost, "/api/sessions/"+id.String()+"/status", body)
	rec := httptest.NewRecorder()
	statusRoute(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateStatusUnknownStatusRejected(t *testing.T) {
	id := uuid.New()
	h := NewSessionsHandler(&stubLifecycle{}, &stubSettingsStore{}, nil)

	body, _ := json.Marshal(map[string]string{"status": "vanished"})
	req := authedRequest(http.MethodPost, "/api/sessions/"+id.String()+"/status", body)
	rec := httptest.NewRecorder()
	statusRoute(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusNotFoundMapsTo404(t *testing.T) {
	id := uuid.New()
	lc := &stubLifecycle{transitionErr: sessions.ErrSessionNotFound}
	h := NewSessionsHandler(lc, &stubSettingsStore{}, nil)

	body, _ := json.Marshal(map[string]string{"status": "confirmed"})
	req := authedRequest(http.MethodPost, "/api/sessions/"+id.String()+"/status", body)
	rec := httptest.NewRecorder()
	statusRoute(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
