package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wellspring-health/practice-scheduler/internal/calendar"
	"github.com/wellspring-health/practice-scheduler/internal/sessions"
	"github.com/wellspring-health/practice-scheduler/internal/tenancy"
	"github.com/wellspring-health/practice-scheduler/pkg/logging"
)

// SessionLifecycle is the slice of the sessions service the HTTP layer needs.
type SessionLifecycle interface {
	Schedule(ctx context.Context, req *sessions.NewSessionRequest) (*sessions.Session, error)
	Transition(ctx context.Context, practiceID string, id uuid.UUID, next sessions.Status) (*sessions.Session, error)
	ListByRange(ctx context.Context, practiceID string, from, to time.Time) ([]sessions.Session, error)
}

// SessionsHandler serves therapist-side session management.
type SessionsHandler struct {
	lifecycle SessionLifecycle
	settings  SettingsStore
	logger    *logging.Logger
}

// NewSessionsHandler creates a sessions handler.
func NewSessionsHandler(lifecycle SessionLifecycle, settings SettingsStore, logger *logging.Logger) *SessionsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionsHandler{lifecycle: lifecycle, settings: settings, logger: logger}
}

type createSessionRequest struct {
	PatientID       string    `json:"patient_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	SessionType     string    `json:"session_type"`
	Notes           string    `json:"notes"`
	PriceCents      int       `json:"price_cents"`
}

// Create handles POST /api/sessions: a therapist books a session directly.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	practiceID, ok := tenancy.PracticeIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing practice context", http.StatusBadRequest)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		http.Error(w, "A patient is required", http.StatusBadRequest)
		return
	}

	session, err := h.lifecycle.Schedule(r.Context(), &sessions.NewSessionRequest{
		PracticeID:      practiceID,
		PatientID:       patientID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		SessionType:     req.SessionType,
		Notes:           req.Notes,
		PriceCents:      req.PriceCents,
	})
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session)
}

// List handles GET /api/sessions?from=&to=&view=. When from/to are absent the
// range is derived from the view mode anchored at today.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	practiceID, ok := tenancy.PracticeIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing practice context", http.StatusBadRequest)
		return
	}

	settings, err := h.settings.Get(r.Context(), practiceID)
	if err != nil {
		h.logger.Error("failed to load availability settings", "error", err)
		http.Error(w, "failed to load calendar", http.StatusInternalServerError)
		return
	}
	loc, err := settings.Location()
	if err != nil {
		h.logger.Error("invalid practice timezone", "error", err)
		http.Error(w, "failed to resolve practice timezone", http.StatusInternalServerError)
		return
	}

	mode, ok := calendar.ParseViewMode(r.URL.Query().Get("view"))
	if !ok {
		http.Error(w, "view must be day, week, or month", http.StatusBadRequest)
		return
	}
	anchor := time.Now().In(loc)
	fromStr := r.URL.Query().Get("from")
	if fromStr != "" {
		anchor, err = time.ParseInLocation("2006-01-02", fromStr, loc)
		if err != nil {
			http.Error(w, "from must be formatted as YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}
	from, to := calendar.Range(anchor, mode, loc)
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", toStr, loc)
		if err != nil {
			http.Error(w, "to must be formatted as YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		// An explicit range is taken literally; "to" names its last day.
		to = parsed.AddDate(0, 0, 1)
		if fromStr != "" {
			from = anchor
		}
	}
	if !to.After(from) {
		http.Error(w, "to must fall after from", http.StatusBadRequest)
		return
	}

	listed, err := h.lifecycle.ListByRange(r.Context(), practiceID, from, to)
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		http.Error(w, "failed to load calendar", http.StatusInternalServerError)
		return
	}

	view := calendar.View{
		Mode: mode,
		From: from,
		To:   to,
		Days: calendar.Bucket(listed, from, to, loc),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles POST /api/sessions/{sessionID}/status.
func (h *SessionsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	practiceID, ok := tenancy.PracticeIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing practice context", http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	next, valid := sessions.ParseStatus(req.Status)
	if !valid {
		http.Error(w, "unknown session status", http.StatusBadRequest)
		return
	}

	session, err := h.lifecycle.Transition(r.Context(), practiceID, id, next)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

func (h *SessionsHandler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessions.ErrSessionNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	case errors.Is(err, sessions.ErrInvalidTransition):
		http.Error(w, "that status change is not allowed", http.StatusConflict)
	case errors.Is(err, sessions.ErrSlotUnavailable):
		http.Error(w, "That time is no longer available. Please choose another slot.", http.StatusConflict)
	case errors.Is(err, sessions.ErrInvalidDuration),
		errors.Is(err, sessions.ErrMissingPatient),
		errors.Is(err, sessions.ErrMissingPractice),
		errors.Is(err, sessions.ErrMissingStart),
		errors.Is(err, sessions.ErrUnknownStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("session operation failed", "error", err)
		http.Error(w, "something went wrong", http.StatusInternalServerError)
	}
}
