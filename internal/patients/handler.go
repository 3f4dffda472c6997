package patients

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wellspring-health/practice-scheduler/internal/tenancy"
	"github.com/wellspring-health/practice-scheduler/pkg/logging"
)

// Handler handles HTTP requests for patients
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new patients handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// Create handles POST /api/patients requests
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	practiceID, ok := tenancy.PracticeIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing practice context", http.StatusBadRequest)
		return
	}
	req.PracticeID = practiceID

	patient, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create patient", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("patient created", "id", patient.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(patient)
}

// Get handles GET /api/patients/{patientID} requests
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	practiceID, ok := tenancy.PracticeIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing practice context", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "patientID")
	patient, err := h.repo.GetByID(r.Context(), practiceID, id)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load patient", "error", err)
		http.Error(w, "failed to load patient", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(patient)
}
