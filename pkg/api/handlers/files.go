package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/bufpool"
	"github.com/marmos91/dittobox/pkg/storage"
)

// uploadField is the multipart form field carrying the file.
const uploadField = "file"

// FilesHandler serves the file operations of the authenticated actor.
type FilesHandler struct {
	svc *storage.Service
}

// NewFilesHandler creates a new FilesHandler.
func NewFilesHandler(svc *storage.Service) *FilesHandler {
	return &FilesHandler{svc: svc}
}

// MkdirRequest is the request body for POST /api/v1/files/mkdir.
type MkdirRequest struct {
	Parent string `json:"parent"`
	Name   string `json:"name"`
}

// RenameRequest is the request body for POST /api/v1/files/rename.
type RenameRequest struct {
	Path    string `json:"path"`
	NewName string `json:"new_name"`
}

// List handles GET /api/v1/files?path=. An empty path lists the root.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrError(w, r, h.svc)
	if !ok {
		return
	}

	children, err := h.svc.List(r.Context(), actor, r.URL.Query().Get("path"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSONOK(w, children)
}

// Stat handles GET /api/v1/files/stat?path=.
func (h *FilesHandler) Stat(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrError(w, r, h.svc)
	if !ok {
		return
	}

	desc, err := h.svc.Stat(r.Context(), actor, r.URL.Query().Get("path"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSONOK(w, desc)
}

// Content handles GET /api/v1/files/content?path= and streams the file.
func (h *FilesHandler) Content(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrError(w, r, h.svc)
	if !ok {
		return
	}
	p, ok := requireQuery(w, r, "path")
	if !ok {
		return
	}

	rc, mimeType, err := h.svc.Read(r.Context(), actor, p)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": path.Base(p),
	}))
	if n, err := bufpool.Copy(w, rc); err != nil {
		logger.WarnCtx(r.Context(), "download interrupted", logger.KeyPath, p, logger.Size(n), logger.Err(err))
	}
}

// Mkdir handles POST /api/v1/files/mkdir.
func (h *FilesHandler) Mkdir(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrError(w, r, h.svc)
	if !ok {
		return
	}
	var req MkdirRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	p, err := h.svc.Mkdir(r.Context(), actor, req.Parent, req.Name)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSONCreated(w, PathResponse{Path: p})
}

// Upload handles POST /api/v1/files/upload?dir=. The body is a multipart
// form whose "file" part is streamed to storage without buffering.
func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrError(w, r, h.svc)
	if !ok {
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		BadRequest(w, "Expected a multipart/form-data body")
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			BadRequest(w, "Missing '"+uploadField+"' form field")
			return
		}
		if err != nil {
			BadRequest(w, "Malformed multipart body")
			return
		}
		if part.FormName() != uploadField {
			_ = part.Close()
			continue
		}

		p, err := h.svc.Upload(r.Context(), actor, r.URL.Query().Get("dir"), part, part.FileName())
		_ = part.Close()
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSONCreated(w, PathResponse{Path: p})
		return
	}
}

// Rename handles POST /api/v1/files/rename.
func (h *FilesHandler) Rename(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrError(w, r, h.svc)
	if !ok {
		return
	}
	var req RenameRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	p, err := h.svc.Rename(r.Context(), actor, req.Path, req.NewName)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSONOK(w, PathResponse{Path: p})
}

// Delete handles DELETE /api/v1/files?path=.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrError(w, r, h.svc)
	if !ok {
		return
	}
	p, ok := requireQuery(w, r, "path")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), actor, p); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteNoContent(w)
}

// Home handles POST /api/v1/home, creating the actor's namespace
// directory when missing.
func (h *FilesHandler) Home(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrError(w, r, h.svc)
	if !ok {
		return
	}

	p, err := h.svc.EnsureHome(r.Context(), actor)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSONOK(w, PathResponse{Path: p})
}

func parseBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}
