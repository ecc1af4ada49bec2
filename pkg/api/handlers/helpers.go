// Package handlers implements the HTTP handlers of the dittodrive API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/telemetry"
	"github.com/marmos91/dittodrive/pkg/api/middleware"
	"github.com/marmos91/dittodrive/pkg/drive"
	drerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
	"github.com/marmos91/dittodrive/pkg/identity"
)

// healthResponse is the body of the health endpoints.
type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func healthyResponse(data any) healthResponse {
	return healthResponse{Status: "healthy", Timestamp: time.Now().UTC(), Data: data}
}

func unhealthyResponse(errMsg string) healthResponse {
	return healthResponse{Status: "unhealthy", Timestamp: time.Now().UTC(), Error: errMsg}
}

// writeJSON writes data as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Debug("Failed to encode response", logger.KeyError, err)
	}
}

// decodeJSONBody decodes a JSON request body into v.
// Returns false after writing a 400 when decoding fails.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// statusOf maps a drive error code to an HTTP status.
func statusOf(code drerrors.ErrorCode) int {
	switch code {
	case drerrors.ErrNotFound:
		return http.StatusNotFound
	case drerrors.ErrInvalidName:
		return http.StatusBadRequest
	case drerrors.ErrInvalidMove, drerrors.ErrAlreadyExists, drerrors.ErrNotEmpty:
		return http.StatusConflict
	case drerrors.ErrUpstreamFailure:
		return http.StatusBadGateway
	case drerrors.ErrPermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError converts err into a problem response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	telemetry.RecordError(r.Context(), err)

	if code, ok := drerrors.CodeOf(err); ok {
		status := statusOf(code)
		detail := err.Error()
		if status == http.StatusInternalServerError {
			detail = "Internal error"
		}
		WriteProblem(w, Problem{
			Status:   status,
			Detail:   detail,
			Instance: r.URL.Path,
			Code:     code.String(),
		})
		return
	}

	switch {
	case errors.Is(err, drive.ErrUploadTooLarge):
		problem(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, drive.ErrUploadRunning):
		Conflict(w, err.Error())
	case errors.Is(err, drive.ErrUploadsClosed), errors.Is(err, drive.ErrNoBlobStore):
		problem(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.ErrorCtx(r.Context(), "Unhandled API error", logger.KeyError, err)
		InternalServerError(w, "Internal error")
	}
}

// currentUser returns the authenticated caller. The auth middleware
// guarantees it is set on protected routes.
func currentUser(r *http.Request) *identity.User {
	return middleware.UserFromContext(r.Context())
}

// ownsFolder reports whether user may list or change folder.
// Everyone shares the root.
func ownsFolder(user *identity.User, folder *drive.Folder) bool {
	return folder.IsRoot() || (user != nil && folder.OwnerID == user.ID)
}

func ownsFile(user *identity.User, file *drive.File) bool {
	return user != nil && file.OwnerID == user.ID
}

// loadOwnedFolder fetches folder id and checks ownership.
// Returns false after writing the error response.
func loadOwnedFolder(w http.ResponseWriter, r *http.Request, svc *drive.Service, id string) (*drive.Folder, bool) {
	folder, err := svc.GetFolder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if !ownsFolder(currentUser(r), folder) {
		writeError(w, r, drerrors.NewPermissionDeniedError(id, "folder belongs to another user"))
		return nil, false
	}
	return folder, true
}

func loadOwnedFile(w http.ResponseWriter, r *http.Request, svc *drive.Service, id string) (*drive.File, bool) {
	file, err := svc.GetFile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if !ownsFile(currentUser(r), file) {
		writeError(w, r, drerrors.NewPermissionDeniedError(id, "file belongs to another user"))
		return nil, false
	}
	return file, true
}

// ownedContents drops children that belong to other users.
func ownedContents(user *identity.User, c *drive.Contents) *drive.Contents {
	out := &drive.Contents{Folders: []*drive.Folder{}, Files: []*drive.File{}}
	if c == nil {
		return out
	}
	for _, f := range c.Folders {
		if ownsFolder(user, f) {
			out.Folders = append(out.Folders, f)
		}
	}
	for _, f := range c.Files {
		if ownsFile(user, f) {
			out.Files = append(out.Files, f)
		}
	}
	return out
}
