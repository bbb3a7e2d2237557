package medications

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/adherence/pkg/handlers"
	"github.com/JaimeStill/adherence/pkg/pagination"
	"github.com/JaimeStill/adherence/pkg/routes"
)

// Handler provides HTTP endpoints for medication operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "medications"),
		pagination: pagination,
	}
}

// Routes returns the medication endpoints. Creation and deletion are scoped
// under the owning patient.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Children: []routes.Group{
			{
				Prefix: "/medications",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: h.List},
					{Method: "GET", Pattern: "/{id}", Handler: h.Find},
					{Method: "PUT", Pattern: "/{id}", Handler: h.Update},
					{Method: "POST", Pattern: "/search", Handler: h.Search},
				},
			},
			{
				Prefix: "/patients/{patient_id}/medications",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: h.ListForPatient},
					{Method: "POST", Pattern: "", Handler: h.Create},
					{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
				},
			},
		},
	}
}

// List returns a paginated list of all medications.
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

// ListForPatient returns the patient's medications in creation order.
func (h *Handler) ListForPatient(w http.ResponseWriter, r *http.Request) {
	meds, err := h.sys.ListForPatient(r.Context(), r.PathValue("patient_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if meds == nil {
		meds = []Medication{}
	}

	handlers.RespondJSON(w, http.StatusOK, meds)
}

// Find returns a medication by id.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	m, err := h.sys.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, m)
}

// Create prescribes a medication to the patient in the path.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd CreateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	m, err := h.sys.Create(r.Context(), r.PathValue("patient_id"), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, m)
}

// Update replaces a medication's name, dose, and frequency.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var cmd UpdateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	m, err := h.sys.Update(r.Context(), r.PathValue("id"), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, m)
}

// Delete removes a medication owned by the patient in the path.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.sys.Delete(r.Context(), r.PathValue("patient_id"), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
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
