package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/drive"
	drerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
)

// FolderHandler serves folder navigation and mutations.
type FolderHandler struct {
	service *drive.Service
}

// NewFolderHandler creates a folder handler.
func NewFolderHandler(service *drive.Service) *FolderHandler {
	return &FolderHandler{service: service}
}

// CreateFolderRequest is the body of POST /api/v1/folders.
type CreateFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

// UpdateRequest is the body of PATCH on folders and files. Name renames,
// ParentID moves; both may be set.
type UpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	ParentID *string `json:"parentId,omitempty"`
}

// Navigate handles GET /api/v1/folders/{id}.
func (h *FolderHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := currentUser(r)

	nav, err := h.service.Navigate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if !nav.Redirected && nav.FolderID != drive.RootFolderID {
		folder, err := h.service.GetFolder(r.Context(), nav.FolderID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !ownsFolder(user, folder) {
			writeError(w, r, drerrors.NewPermissionDeniedError(id, "folder belongs to another user"))
			return
		}
	}

	nav.Contents = ownedContents(user, nav.Contents)
	writeJSON(w, http.StatusOK, nav)
}

// Breadcrumbs handles GET /api/v1/folders/{id}/breadcrumbs.
func (h *FolderHandler) Breadcrumbs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := loadOwnedFolder(w, r, h.service, id); !ok {
		return
	}

	crumbs, err := h.service.GetBreadcrumbs(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, crumbs)
}

// Create handles POST /api/v1/folders.
func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.ParentID == "" {
		req.ParentID = drive.RootFolderID
	}
	if !checkTarget(w, r, h.service, req.ParentID) {
		return
	}

	folder, err := h.service.CreateFolder(r.Context(), req.Name, req.ParentID, currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

// Update handles PATCH /api/v1/folders/{id}.
//
// A request carrying both name and parentId is applied as a move, then a
// rename, in two commits. Both inputs are checked first, so a rejected
// request changes nothing. Only a failure between the two commits, such as
// a concurrent delete, can leave the move applied without the rename.
func (h *FolderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Name == nil && req.ParentID == nil {
		BadRequest(w, "Nothing to update")
		return
	}

	folder, ok := loadOwnedFolder(w, r, h.service, id)
	if !ok {
		return
	}

	if !checkUpdate(w, r, h.service, req) {
		return
	}

	var err error
	if req.ParentID != nil {
		if folder, err = h.service.MoveFolder(r.Context(), id, *req.ParentID); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.Name != nil {
		if folder, err = h.service.RenameFolder(r.Context(), id, *req.Name); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, folder)
}

// Delete handles DELETE /api/v1/folders/{id}.
func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := loadOwnedFolder(w, r, h.service, id); !ok {
		return
	}

	result, err := h.service.DeleteFolder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.InfoCtx(r.Context(), "Folder deleted",
		logger.KeyFolderID, id, "folders", result.Folders, "files", result.Files)
	writeJSON(w, http.StatusOK, result)
}

// checkUpdate validates a PATCH before anything is written: the new name
// must be non-empty and the destination must belong to the caller.
func checkUpdate(w http.ResponseWriter, r *http.Request, svc *drive.Service, req UpdateRequest) bool {
	if req.Name != nil && drive.NormalizeName(*req.Name) == "" {
		writeError(w, r, drerrors.NewInvalidNameError(*req.Name))
		return false
	}
	if req.ParentID != nil {
		return checkTarget(w, r, svc, *req.ParentID)
	}
	return true
}

// checkTarget rejects destinations owned by someone else. A missing
// target is left to the service, which reports it in its own terms.
func checkTarget(w http.ResponseWriter, r *http.Request, svc *drive.Service, id string) bool {
	folder, err := svc.GetFolder(r.Context(), id)
	if err != nil {
		if drerrors.IsNotFoundError(err) {
			return true
		}
		writeError(w, r, err)
		return false
	}
	if !ownsFolder(currentUser(r), folder) {
		writeError(w, r, drerrors.NewPermissionDeniedError(id, "destination belongs to another user"))
		return false
	}
	return true
}
