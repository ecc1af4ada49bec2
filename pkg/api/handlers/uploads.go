package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/drive"
	drerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
)

// multipartOverhead is the slack allowed on top of the file size for the
// multipart framing around it.
const multipartOverhead = 1 << 20

// UploadHandler starts and tracks uploads.
type UploadHandler struct {
	service *drive.Service
	uploads *drive.UploadManager
	maxSize int64
}

// NewUploadHandler creates an upload handler. maxSize bounds the request
// body; zero means no limit.
func NewUploadHandler(service *drive.Service, uploads *drive.UploadManager, maxSize int64) *UploadHandler {
	return &UploadHandler{service: service, uploads: uploads, maxSize: maxSize}
}

// Start handles POST /api/v1/folders/{id}/files. The file travels in the
// multipart field "file". The response is the task snapshot; the transfer
// continues after the response is written.
func (h *UploadHandler) Start(w http.ResponseWriter, r *http.Request) {
	parentID := chi.URLParam(r, "id")
	if _, ok := loadOwnedFolder(w, r, h.service, parentID); !ok {
		return
	}

	if h.maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+multipartOverhead)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, drive.ErrUploadTooLarge)
			return
		}
		BadRequest(w, "Multipart field \"file\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, drive.ErrUploadTooLarge)
			return
		}
		BadRequest(w, "Failed to read upload")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(mimeType); err != nil || mt == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	upload, err := h.uploads.Start(r.Context(), drive.UploadRequest{
		Name:     header.Filename,
		ParentID: parentID,
		OwnerID:  currentUser(r).ID,
		MimeType: mimeType,
		Data:     data,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.DebugCtx(r.Context(), "Upload accepted",
		logger.KeyUploadID, upload.ID(), logger.KeyFolderID, parentID)

	w.Header().Set("Location", "/api/v1/uploads/"+url.PathEscape(upload.ID()))
	writeJSON(w, http.StatusAccepted, upload.Snapshot())
}

// List handles GET /api/v1/uploads.
func (h *UploadHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.uploads.ListByOwner(currentUser(r).ID))
}

// Get handles GET /api/v1/uploads/{id}.
func (h *UploadHandler) Get(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.ownedUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, upload.Snapshot())
}

// Delete handles DELETE /api/v1/uploads/{id}. A running task is cancelled
// and stays listed with its error; a finished task is dismissed.
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.ownedUpload(w, r)
	if !ok {
		return
	}

	if !upload.Snapshot().Finished() {
		upload.Cancel()
		<-upload.Done()
		writeJSON(w, http.StatusOK, upload.Snapshot())
		return
	}

	if err := h.uploads.Dismiss(upload.ID()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedUpload looks up the task named in the path. Tasks of other users
// are reported as missing.
func (h *UploadHandler) ownedUpload(w http.ResponseWriter, r *http.Request) (*drive.Upload, bool) {
	id := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}

	upload, ok := h.uploads.Get(id)
	if !ok || upload.Snapshot().OwnerID != currentUser(r).ID {
		writeError(w, r, drerrors.NewNotFoundError(id, "upload"))
		return nil, false
	}
	return upload, true
}
