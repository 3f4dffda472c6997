// Package handlers wires the scheduling engine to its HTTP surface.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wellspring-health/practice-scheduler/internal/booking"
	"github.com/wellspring-health/practice-scheduler/internal/sessions"
	"github.com/wellspring-health/practice-scheduler/internal/tenancy"
	"github.com/wellspring-health/practice-scheduler/pkg/logging"
)

// BookingService is the slice of the booking service the HTTP layer needs.
type BookingService interface {
	Issue(ctx context.Context, practiceID string, patientID uuid.UUID, issuedBy string, ttl time.Duration) (*booking.Token, error)
	Validate(ctx context.Context, value string) (*booking.Token, error)
	RedeemAndBook(ctx context.Context, value string, req booking.Request) (*sessions.Session, error)
}

// BookingHandler serves the public booking surface and link issuing.
type BookingHandler struct {
	svc           BookingService
	logger        *logging.Logger
	publicBaseURL string
	defaultTTL    time.Duration
}

// NewBookingHandler creates a booking handler.
func NewBookingHandler(svc BookingService, logger *logging.Logger, publicBaseURL string, defaultTTL time.Duration) *BookingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{svc: svc, logger: logger, publicBaseURL: publicBaseURL, defaultTTL: defaultTTL}
}

type publicBookingRequest struct {
	Token       string `json:"token"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	SessionType string `json:"session_type"`
	Notes       string `json:"notes"`
}

type publicBookingResponse struct {
	SessionID   string    `json:"session_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Book handles POST /book: the unauthenticated patient redeems their link.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req publicBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		http.Error(w, "A booking link is required", http.StatusBadRequest)
		return
	}

	session, err := h.svc.RedeemAndBook(r.Context(), req.Token, booking.Request{
		Date:        req.Date,
		Time:        req.Time,
		SessionType: req.SessionType,
		Notes:       req.Notes,
	})
	if err != nil {
		h.writeBookingError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(publicBookingResponse{
		SessionID:   session.ID.String(),
		ScheduledAt: session.ScheduledAt,
	})
}

// ValidateLink handles GET /book/{token}: the booking page checks the link
// before showing slots.
func (h *BookingHandler) ValidateLink(w http.ResponseWriter, r *http.Request) {
	value := chi.URLParam(r, "token")
	token, err := h.svc.Validate(r.Context(), value)
	if err != nil {
		h.writeBookingError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"valid":      true,
		"patient_id": token.PatientID,
		"expires_at": token.ExpiresAt,
	})
}

type issueLinkRequest struct {
	PatientID string `json:"patient_id"`
	TTLHours  int    `json:"ttl_hours"`
}

type issueLinkResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueLink handles POST /api/booking-links: a therapist mints a single-use
// link for a patient.
func (h *BookingHandler) IssueLink(w http.ResponseWriter, r *http.Request) {
	practiceID, ok := tenancy.PracticeIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing practice context", http.StatusBadRequest)
		return
	}

	var req issueLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		http.Error(w, "A patient is required", http.StatusBadRequest)
		return
	}

	ttl := h.defaultTTL
	if req.TTLHours > 0 {
		ttl = time.Duration(req.TTLHours) * time.Hour
	}

	token, err := h.svc.Issue(r.Context(), practiceID, patientID, practiceID, ttl)
	if err != nil {
		h.logger.Error("failed to issue booking link", "error", err)
		http.Error(w, "failed to issue booking link", http.StatusInternalServerError)
		return
	}

	resp := issueLinkResponse{Token: token.Token, ExpiresAt: token.ExpiresAt}
	if h.publicBaseURL != "" {
		resp.URL = h.publicBaseURL + "/book/" + token.Token
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// writeBookingError maps engine errors onto user-safe responses. Messages
// never carry internal identifiers.
func (h *BookingHandler) writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrTokenNotFound):
		http.Error(w, "This booking link is not valid.", http.StatusNotFound)
	case errors.Is(err, booking.ErrTokenExpired):
		http.Error(w, "This booking link has expired. Please request a new one.", http.StatusGone)
	case errors.Is(err, booking.ErrTokenAlreadyUsed):
		http.Error(w, "This booking link has already been used.", http.StatusConflict)
	case errors.Is(err, sessions.ErrSlotUnavailable):
		http.Error(w, "That time is no longer available. Please choose another slot.", http.StatusConflict)
	case errors.Is(err, booking.ErrMalformedSlot):
		http.Error(w, "Please pick a date and time from the offered slots.", http.StatusBadRequest)
	default:
		h.logger.Error("booking failed", "error", err)
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
	}
}
