// Package handlers provides HTTP handlers for the DittoBox API.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/marmos91/dittobox/internal/logger"
	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
)

// Problem represents an RFC 7807 "problem details" response.
// https://tools.ietf.org/html/rfc7807
type Problem struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type,omitempty"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`

	// Kind is the stable storage error kind, when the problem has one.
	Kind string `json:"kind,omitempty"`
}

// ContentTypeProblemJSON is the Content-Type for RFC 7807 problem responses.
const ContentTypeProblemJSON = "application/problem+json"

// RetryAfterSeconds is advertised on LockTimeout responses.
const RetryAfterSeconds = 1

// WriteProblem writes an RFC 7807 problem response.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblem(w, &Problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func writeProblem(w http.ResponseWriter, problem *Problem) {
	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}

// BadRequest writes a 400 Bad Request problem response.
func BadRequest(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Bad Request", detail)
}

// Unauthorized writes a 401 Unauthorized problem response.
func Unauthorized(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusUnauthorized, "Unauthorized", detail)
}

// Forbidden writes a 403 Forbidden problem response.
func Forbidden(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusForbidden, "Forbidden", detail)
}

// NotFound writes a 404 Not Found problem response.
func NotFound(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusNotFound, "Not Found", detail)
}

// InternalServerError writes a 500 Internal Server Error problem response.
func InternalServerError(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// StatusForCode maps a storage error code to its HTTP status.
func StatusForCode(code storeerrors.ErrorCode) int {
	switch code {
	case storeerrors.ErrNotFound:
		return http.StatusNotFound
	case storeerrors.ErrNotDirectory, storeerrors.ErrIsDirectory,
		storeerrors.ErrAlreadyExists, storeerrors.ErrNotEmpty:
		return http.StatusConflict
	case storeerrors.ErrAccessDenied, storeerrors.ErrNotWritable:
		return http.StatusForbidden
	case storeerrors.ErrLockTimeout:
		return http.StatusServiceUnavailable
	case storeerrors.ErrValidation:
		return http.StatusBadRequest
	case storeerrors.ErrService:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as a problem response. Storage errors keep their
// message and kind; anything else is reported as an opaque 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code := storeerrors.Code(err)
	status := StatusForCode(code)

	if status == http.StatusInternalServerError {
		logger.ErrorCtx(r.Context(), "API request failed", logger.Err(err))
	}
	if code == 0 {
		InternalServerError(w, "Internal error")
		return
	}
	if code.Retryable() {
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}

	writeProblem(w, &Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: err.Error(),
		Kind:   code.String(),
	})
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteJSONOK writes a 200 OK JSON response.
func WriteJSONOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteJSONCreated writes a 201 Created JSON response.
func WriteJSONCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// decodeJSONBody decodes a JSON request body into v, writing a 400 on
// failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	return true
}
