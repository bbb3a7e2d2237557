package sessions

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/JaimeStill/adherence/intervention"
	"github.com/JaimeStill/adherence/pkg/handlers"
	"github.com/JaimeStill/adherence/pkg/pagination"
	"github.com/JaimeStill/adherence/pkg/routes"
)

// Handler provides HTTP endpoints for session persistence.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
	location   *time.Location
	now        func() time.Time
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler. Sessions posted without an id are assigned
// one from their creation time in loc.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
	loc *time.Location,
) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "sessions"),
		pagination: pagination,
		location:   loc,
		now:        time.Now,
	}
}

// Routes returns the session endpoints and the patient-scoped session routes.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Children: []routes.Group{
			{
				Prefix: "/sessions",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: h.List},
					{Method: "POST", Pattern: "", Handler: h.Save},
					{Method: "GET", Pattern: "/{id}", Handler: h.Find},
					{Method: "GET", Pattern: "/{id}/archive", Handler: h.Archive},
					{Method: "POST", Pattern: "/search", Handler: h.Search},
				},
			},
			{
				Prefix: "/patients/{patient_id}/sessions",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: h.ListForPatient},
					{Method: "DELETE", Pattern: "", Handler: h.DeleteForPatient},
				},
			},
		},
	}
}

// Save stores a session wire record from a JSON body.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var s intervention.Session
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if s.PatientID == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrPatientRequired)
		return
	}

	if s.CreatedAt.IsZero() {
		s.CreatedAt = h.now().In(h.location)
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	if s.SessionID == "" {
		s.SessionID = intervention.SessionID(s.PatientID, s.CreatedAt.In(h.location))
	}
	if s.MedicationAdministration == nil {
		s.MedicationAdministration = []intervention.AdministrationRecord{}
	}

	if err := Validate(&s); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if err := h.sys.Save(r.Context(), &s); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, SaveResult{
		SessionID:            s.SessionID,
		PatientID:            s.PatientID,
		Administrations:      len(s.MedicationAdministration),
		NurseContactRequired: s.NurseContactRequired(),
	})
}

// Find returns a stored session with its administration records.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	s, err := h.sys.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, s)
}

// Archive streams the archived wire record of a session.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	rc, err := h.sys.Archive(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("stream archive failed", "session_id", r.PathValue("id"), "error", err)
	}
}

// List returns a paginated list of session summaries.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Search accepts a JSON body with pagination and filter criteria.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// ListForPatient returns the patient's sessions newest first.
func (h *Handler) ListForPatient(w http.ResponseWriter, r *http.Request) {
	list, err := h.sys.ListForPatient(r.Context(), r.PathValue("patient_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if list == nil {
		list = []intervention.Session{}
	}

	handlers.RespondJSON(w, http.StatusOK, list)
}

// DeleteForPatient removes every session of the patient.
func (h *Handler) DeleteForPatient(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("patient_id")

	n, err := h.sys.DeleteForPatient(r.Context(), patientID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, DeleteResult{
		PatientID:       patientID,
		DeletedSessions: n,
	})
}
