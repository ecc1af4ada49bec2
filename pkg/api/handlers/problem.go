package handlers

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 problem details body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Code     string `json:"code,omitempty"`
}

// WriteProblem writes p as application/problem+json.
func WriteProblem(w http.ResponseWriter, p Problem) {
	if p.Type == "" {
		p.Type = "about:blank"
	}
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func problem(w http.ResponseWriter, status int, detail string) {
	WriteProblem(w, Problem{Status: status, Detail: detail})
}

// BadRequest writes a 400 problem.
func BadRequest(w http.ResponseWriter, detail string) {
	problem(w, http.StatusBadRequest, detail)
}

// Unauthorized writes a 401 problem.
func Unauthorized(w http.ResponseWriter, detail string) {
	problem(w, http.StatusUnauthorized, detail)
}

// Forbidden writes a 403 problem.
func Forbidden(w http.ResponseWriter, detail string) {
	problem(w, http.StatusForbidden, detail)
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, detail string) {
	problem(w, http.StatusNotFound, detail)
}

// Conflict writes a 409 problem.
func Conflict(w http.ResponseWriter, detail string) {
	problem(w, http.StatusConflict, detail)
}

// InternalServerError writes a 500 problem.
func InternalServerError(w http.ResponseWriter, detail string) {
	problem(w, http.StatusInternalServerError, detail)
}
