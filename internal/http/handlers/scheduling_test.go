package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellspring-health/practice-scheduler/internal/availability"
	"github.com/wellspring-health/practice-scheduler/internal/sessions"
	"github.com/wellspring-health/practice-scheduler/internal/tenancy"
)

type stubSettingsStore struct {
	settings *availability.Settings
	getErr   error
	saved    *availability.Settings
}

func (s *stubSettingsStore) Get(_ context.Context, practiceID string) (*availability.Settings, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.settings != nil {
		return s.settings, nil
	}
	return availability.DefaultSettings(practiceID, "UTC"), nil
}

func (s *stubSettingsStore) Set(_ context.Context, settings *availability.Settings) error {
	s.saved = settings
	return nil
}

type stubSessionReader struct {
	sessions []sessions.Session
	err      error
	gotFrom  time.Time
	gotTo    time.Time
}

func (s *stubSessionReader) ListByRange(_ context.Context, _ string, from, to time.Time) ([]sessions.Session, error) {
	s.gotFrom, s.gotTo = from, to
	return s.sessions, s.err
}

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(tenancy.WithPracticeID(req.Context(), "prac-1"))
}

func tuesdaySettings(t *testing.T) *availability.Settings {
	t.Helper()
	s := &availability.Settings{
		PracticeID:                 "prac-1",
		WorkingDays:                []time.Weekday{time.Tuesday},
		DayStart:                   "08:00",
		DayEnd:                     "18:00",
		AppointmentDurationMinutes: 60,
		Breaks:                     []availability.Window{{Start: "12:00", End: "13:00"}},
		Timezone:                   "America/New_York",
	}
	require.NoError(t, s.Validate())
	return s
}

func TestGetAvailabilityReturnsSettings(t *testing.T) {
	store := &stubSettingsStore{settings: tuesdaySettings(t)}
	h := NewSchedulingHandler(store, &stubSessionReader{}, nil, nil)

	rec := httptest.NewRecorder()
	h.GetAvailability(rec, authedRequest(http.MethodGet, "/api/availability", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got availability.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "08:00", got.DayStart)
	assert.Equal(t, "America/New_York", got.Timezone)
}

func TestPutAvailabilityValidatesAndSaves(t *testing.T) {
	store := &stubSettingsStore{}
	h := NewSchedulingHandler(store, &stubSessionReader{}, nil, nil)

	body, _ := json.Marshal(tuesdaySettings(t))
	rec := httptest.NewRecorder()
	h.PutAvailability(rec, authedRequest(http.MethodPut, "/api/availability", body))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, store.saved)
	assert.Equal(t, "prac-1", store.saved.PracticeID)
}

func TestPutAvailabilityRejectsInvalid(t *testing.T) {
	store := &stubSettingsStore{}
	h := NewSchedulingHandler(store, &stubSessionReader{}, nil, nil)

	bad := tuesdaySettings(t)
	bad.DayStart = "18:00"
	bad.DayEnd = "08:00"
	body, _ := json.Marshal(bad)
	rec := httptest.NewRecorder()
	h.PutAvailability(rec, authedRequest(http.MethodPut, "/api/availability", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, store.saved)
}

func TestGetSlotsFiltersBookedAndCanceled(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	booked := sessions.Session{
		ID: uuid.New(), PracticeID: "prac-1", PatientID: uuid.New(),
		ScheduledAt: time.Date(2030, 6, 11, 10, 0, 0, 0, loc), DurationMinutes: 60,
		Status: sessions.StatusScheduled,
	}
	canceled := booked
	canceled.ID = uuid.New()
	canceled.ScheduledAt = time.Date(2030, 6, 11, 14, 0, 0, 0, loc)
	canceled.Status = sessions.StatusCanceled

	store := &stubSettingsStore{settings: tuesdaySettings(t)}
	reader := &stubSessionReader{sessions: []sessions.Session{booked, canceled}}
	h := NewSchedulingHandler(store, reader, nil, nil)
	h.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	rec := httptest.NewRecorder()
	h.GetSlots(rec, authedRequest(http.MethodGet, "/api/slots?date=2030-06-11", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp slotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2030-06-11", resp.Date)

	starts := make([]string, 0, len(resp.Slots))
	for _, s := range resp.Slots {
		starts = append(starts, s.Start.In(loc).Format("15:04"))
	}
	// 10:00 is held by the scheduled session; 14:00 was canceled so it is
	// offered again; 12:00 is the break.
	assert.Equal(t, []string{"08:00", "09:00", "11:00", "13:00", "14:00", "15:00", "16:00", "17:00"}, starts)

	// The day range handed to the store covers the local calendar day.
	assert.Equal(t, time.Date(2030, 6, 11, 0, 0, 0, 0, loc), reader.gotFrom)
	assert.Equal(t, time.Date(2030, 6, 12, 0, 0, 0, 0, loc), reader.gotTo)
}

func TestGetSlotsRequiresDate(t *testing.T) {
	h := NewSchedulingHandler(&stubSettingsStore{}, &stubSessionReader{}, nil, nil)
	rec := httptest.NewRecorder()
	h.GetSlots(rec, authedRequest(http.MethodGet, "/api/slots", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSlotsRejectsBadDate(t *testing.T) {
	h := NewSchedulingHandler(&stubSettingsStore{}, &stubSessionReader{}, nil, nil)
	rec := httptest.NewRecorder()
	h.GetSlots(rec, authedRequest(http.MethodGet, "/api/slots?date=June+11", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSlotsNonWorkingDayReturnsEmpty(t *testing.T) {
	store := &stubSettingsStore{settings: tuesdaySettings(t)}
	h := NewSchedulingHandler(store, &stubSessionReader{}, nil, nil)
	h.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	rec := httptest.NewRecorder()
	// 2030-06-12 is a Wednesday; the practice only works Tuesdays.
	h.GetSlots(rec, authedRequest(http.MethodGet, "/api/slots?date=2030-06-12", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp slotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Slots)
}
