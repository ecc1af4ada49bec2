package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/marmos91/dittodrive/pkg/drive"
)

// FileHandler serves file mutations and shared file lookups.
type FileHandler struct {
	service *drive.Service
}

// NewFileHandler creates a file handler.
func NewFileHandler(service *drive.Service) *FileHandler {
	return &FileHandler{service: service}
}

// Update handles PATCH /api/v1/files/{id}.
//
// A request carrying both name and parentId is applied as a move, then a
// rename, in two commits. Both inputs are checked first, so a rejected
// request changes nothing. Only a failure between the two commits, such as
// a concurrent delete, can leave the move applied without the rename.
func (h *FileHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Name == nil && req.ParentID == nil {
		BadRequest(w, "Nothing to update")
		return
	}

	file, ok := loadOwnedFile(w, r, h.service, id)
	if !ok {
		return
	}

	if !checkUpdate(w, r, h.service, req) {
		return
	}

	var err error
	if req.ParentID != nil {
		if file, err = h.service.MoveFile(r.Context(), id, *req.ParentID); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.Name != nil {
		if file, err = h.service.RenameFile(r.Context(), id, *req.Name); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, file)
}

// Delete handles DELETE /api/v1/files/{id}.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := loadOwnedFile(w, r, h.service, id); !ok {
		return
	}

	if err := h.service.DeleteFile(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Shared handles GET /api/v1/share/{fileId}. It needs no session; the
// service's share policy decides.
func (h *FileHandler) Shared(w http.ResponseWriter, r *http.Request) {
	file, err := h.service.GetSharedFile(r.Context(), chi.URLParam(r, "fileId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}
