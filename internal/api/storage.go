package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/JaimeStill/adherence/pkg/handlers"
	"github.com/JaimeStill/adherence/pkg/routes"
	"github.com/JaimeStill/adherence/pkg/storage"
)

const archiveRoot = "sessions/"

// archiveList is one page of archived session keys.
type archiveList struct {
	Prefix    string   `json:"prefix"`
	Keys      []string `json:"keys"`
	Truncated bool     `json:"truncated"`
}

type storageHandler struct {
	store       storage.System
	logger      *slog.Logger
	maxListSize int32
}

func newStorageHandler(
	store storage.System,
	logger *slog.Logger,
	maxListSize int32,
) *storageHandler {
	return &storageHandler{
		store:       store,
		logger:      logger.With("handler", "storage"),
		maxListSize: maxListSize,
	}
}

func (h *storageHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/storage",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.list},
			{Method: "GET", Pattern: "/download/{key...}", Handler: h.download},
		},
	}
}

// list returns archived session keys under prefix, which must lie within the
// session archive.
func (h *storageHandler) list(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = archiveRoot
	}
	if err := storage.ValidateKey(prefix); err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	if !strings.HasPrefix(prefix, archiveRoot) {
		handlers.RespondError(
			w, h.logger,
			http.StatusBadRequest,
			fmt.Errorf("prefix must begin with %q", archiveRoot),
		)
		return
	}

	keys, err := h.store.List(r.Context(), prefix)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			http.StatusInternalServerError, err,
		)
		return
	}

	result := archiveList{Prefix: prefix, Keys: keys}
	if result.Keys == nil {
		result.Keys = []string{}
	}
	if h.maxListSize > 0 && len(result.Keys) > int(h.maxListSize) {
		result.Keys = result.Keys[:h.maxListSize]
		result.Truncated = true
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *storageHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := storage.ValidateKey(key); err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	if !strings.HasPrefix(key, archiveRoot) {
		handlers.RespondError(w, h.logger, http.StatusNotFound, storage.ErrNotFound)
		return
	}

	body, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			storage.MapHTTPStatus(err), err,
		)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}
