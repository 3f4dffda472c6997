package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wellspring-health/practice-scheduler/internal/availability"
	"github.com/wellspring-health/practice-scheduler/internal/observability/metrics"
	"github.com/wellspring-health/practice-scheduler/internal/scheduling"
	"github.com/wellspring-health/practice-scheduler/internal/sessions"
	"github.com/wellspring-health/practice-scheduler/internal/tenancy"
	"github.com/wellspring-health/practice-scheduler/pkg/logging"
)

// SettingsStore reads and writes per-practice availability settings.
type SettingsStore interface {
	Get(ctx context.Context, practiceID string) (*availability.Settings, error)
	Set(ctx context.Context, settings *availability.Settings) error
}

// SessionReader lists sessions inside a time range for a practice.
type SessionReader interface {
	ListByRange(ctx context.Context, practiceID string, from, to time.Time) ([]sessions.Session, error)
}

// SchedulingHandler serves availability settings and slot queries.
type SchedulingHandler struct {
	settings SettingsStore
	reader   SessionReader
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// NewSchedulingHandler creates a scheduling handler.
func NewSchedulingHandler(settings SettingsStore, reader SessionReader, m *metrics.SchedulingMetrics, logger *logging.Logger) *SchedulingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SchedulingHandler{settings: settings, reader: reader, metrics: m, logger: logger, now: time.Now}
}

// GetAvailability handles GET /api/availability.
func (h *SchedulingHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	practiceID, ok := tenancy.PracticeIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing practice context", http.StatusBadRequest)
		return
	}

	settings, err := h.settings.Get(r.Context(), practiceID)
	if err != nil {
		h.logger.Error("failed to load availability settings", "error", err)
		http.Error(w, "failed to load availability settings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

// PutAvailability handles PUT /api/availability. The whole document is
// replaced; partial updates are not supported.
func (h *SchedulingHandler) PutAvailability(w http.ResponseWriter, r *http.Request) {
	practiceID, ok := tenancy.PracticeIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing practice context", http.StatusBadRequest)
		return
	}

	var settings availability.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	settings.PracticeID = practiceID

	if err := settings.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.settings.Set(r.Context(), &settings); err != nil {
		h.logger.Error("failed to save availability settings", "error", err)
		http.Error(w, "failed to save availability settings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&settings)
}

type slotsResponse struct {
	Date  string            `json:"date"`
	Slots []scheduling.Slot `json:"slots"`
}

// GetSlots handles GET /api/slots?date=2006-01-02. It returns the open
// slots for that calendar day in the practice's timezone.
func (h *SchedulingHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	practiceID, ok := tenancy.PracticeIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing practice context", http.StatusBadRequest)
		return
	}

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		http.Error(w, "date query parameter is required", http.StatusBadRequest)
		return
	}

	settings, err := h.settings.Get(r.Context(), practiceID)
	if err != nil {
		h.logger.Error("failed to load availability settings", "error", err)
		http.Error(w, "failed to load availability settings", http.StatusInternalServerError)
		return
	}
	loc, err := settings.Location()
	if err != nil {
		h.logger.Error("invalid practice timezone", "error", err)
		http.Error(w, "failed to resolve practice timezone", http.StatusInternalServerError)
		return
	}

	day, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		http.Error(w, "date must be formatted as YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	booked, err := h.bookedFor(r.Context(), practiceID, day, loc)
	if err != nil {
		h.logger.Error("failed to list sessions for day", "error", err)
		http.Error(w, "failed to compute slots", http.StatusInternalServerError)
		return
	}

	marked, err := scheduling.AvailableSlots(day, settings, booked, h.now())
	if err != nil {
		h.logger.Error("failed to generate slots", "error", err)
		http.Error(w, "failed to compute slots", http.StatusInternalServerError)
		return
	}
	slots := scheduling.OnlyAvailable(marked)
	if slots == nil {
		slots = []scheduling.Slot{}
	}
	h.metrics.ObserveSlotQueryLatency(time.Since(start).Seconds())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(slotsResponse{Date: dateStr, Slots: slots})
}

// bookedFor collects the busy intervals for one local calendar day.
// Canceled and no-show sessions do not hold their slot.
func (h *SchedulingHandler) bookedFor(ctx context.Context, practiceID string, day time.Time, loc *time.Location) ([]scheduling.Booked, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	existing, err := h.reader.ListByRange(ctx, practiceID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	booked := make([]scheduling.Booked, 0, len(existing))
	for _, s := range existing {
		if !s.Status.BlocksCalendar() {
			continue
		}
		booked = append(booked, scheduling.BookedFrom(s.ScheduledAt, s.DurationMinutes))
	}
	return booked, nil
}
