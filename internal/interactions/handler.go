package interactions

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/adherence/intervention"
	"github.com/JaimeStill/adherence/pkg/handlers"
	"github.com/JaimeStill/adherence/pkg/routes"
)

// Handler provides HTTP endpoints for driving dialogues.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "interactions"),
	}
}

// Routes returns the route group definition for interaction endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/interactions",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Begin},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Abandon},
			{Method: "POST", Pattern: "/{id}/responses", Handler: h.Respond},
			{Method: "POST", Pattern: "/{id}/save", Handler: h.Save},
		},
	}
}

// Begin starts a dialogue and returns its first prompt.
func (h *Handler) Begin(w http.ResponseWriter, r *http.Request) {
	v, err := h.sys.Begin(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, v)
}

// Find returns the current state and prompt of a dialogue.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid id: %w", err))
		return
	}

	v, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, v)
}

// Respond submits one answer. Rejected answers return 200 with the rejection
// reason in the turn.
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid id: %w", err))
		return
	}

	var in intervention.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	resp, err := h.sys.Respond(r.Context(), id, in)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, resp)
}

// Save retries persistence of a finalized dialogue.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid id: %w", err))
		return
	}

	v, err := h.sys.Save(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, v)
}

// Abandon discards a dialogue without persisting it.
func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid id: %w", err))
		return
	}

	if err := h.sys.Abandon(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
