package visit

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reprocare/reprocare/pkg/logging"
)

// Handler handles HTTP requests for the visit lifecycle.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new visit handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateVisit handles POST /visit requests
func (h *Handler) CreateVisit(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.CreateVisit(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"visit_id": v.ID})
}

// GetVisit handles GET /visit/{visitID} requests
func (h *Handler) GetVisit(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetVisit(r.Context(), chi.URLParam(r, "visitID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type intakeRequest struct {
	VisitID string `json:"visit_id"`
	QA      []QA   `json:"qa"`
}

type intakeResponse struct {
	IntakeStructured map[string]any `json:"intake_structured"`
	ProviderNote     string         `json:"provider_note"`
	PatientSummary   string         `json:"patient_summary"`
	EventsAdded      []string       `json:"events_added"`
}

// SubmitIntake handles POST /intake_to_json requests
func (h *Handler) SubmitIntake(w http.ResponseWriter, r *http.Request) {
	var req intakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}

	result, err := h.service.SubmitIntake(r.Context(), req.VisitID, req.QA)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, intakeResponse{
		IntakeStructured: result.Structured,
		ProviderNote:     result.ProviderNote,
		PatientSummary:   result.PatientSummary,
		EventsAdded:      result.EventsAdded,
	})
}

type roomRequest struct {
	VisitID string `json:"visit_id"`
}

// CreateRoom handles POST /create_room requests
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}

	room, err := h.service.CreateRoom(r.Context(), req.VisitID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

type postVisitRequest struct {
	VisitID          string         `json:"visit_id"`
	ProviderNote     string         `json:"provider_note"`
	IntakeStructured map[string]any `json:"intake_structured"`
}

type postVisitResponse struct {
	PatientSummary map[string]any `json:"patient_summary"`
	PlainText      string         `json:"plain_text"`
}

// PostVisitExplain handles POST /post_visit_explain requests
func (h *Handler) PostVisitExplain(w http.ResponseWriter, r *http.Request) {
	var req postVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}

	result, err := h.service.GenerateSummary(r.Context(), req.VisitID, req.ProviderNote, req.IntakeStructured)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, postVisitResponse{
		PatientSummary: result.Structured,
		PlainText:      result.PlainText,
	})
}

type pharmacyRequest struct {
	VisitID  string            `json:"visit_id"`
	Shipping map[string]string `json:"shipping"`
	Plan     string            `json:"plan"`
}

type pharmacyResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// PharmacyOrder handles POST /pharmacy_order requests
func (h *Handler) PharmacyOrder(w http.ResponseWriter, r *http.Request) {
	var req pharmacyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}

	order, err := h.service.PlacePharmacyOrder(r.Context(), req.VisitID, req.Shipping, req.Plan)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pharmacyResponse{
		OrderID: order.OrderID,
		Status:  "created",
	})
}

// writeError maps controller errors to the wire taxonomy: validation 400,
// unknown visit 404, anything else a logged generic 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Visit not found"})
	case errors.Is(err, ErrMissingVisitID), errors.Is(err, ErrMissingQA):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("visit operation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *Handler) writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
