package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"dressline/internal/attachment"
	"dressline/internal/config"
	models "dressline/internal/domain/models/ebook"
	ebookSvc "dressline/internal/domain/services/ebook"
	"dressline/internal/httputil"
)

// SnapshotHandler handles export, import and persisted snapshot requests
type SnapshotHandler struct {
	snapshotService ebookSvc.SnapshotService
	logger          *slog.Logger
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(snapshotService ebookSvc.SnapshotService, logger *slog.Logger) *SnapshotHandler {
	return &SnapshotHandler{
		snapshotService: snapshotService,
		logger:          logger,
	}
}

// SnapshotRequest is the body of PUT /api/snapshot
type SnapshotRequest struct {
	Books   []models.Book   `json:"books"`
	Modules []models.Module `json:"modules"`
}

// SnapshotResponse summarises a stored snapshot
type SnapshotResponse struct {
	Books   int `json:"books"`
	Modules int `json:"modules"`
}

func summarize(snapshot *models.Snapshot) SnapshotResponse {
	return SnapshotResponse{Books: len(snapshot.Books), Modules: len(snapshot.Modules)}
}

// Export downloads the whole store as JSON
// GET /api/export?filename=
func (h *SnapshotHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.snapshotService.Export(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.SetAttachmentHeaders(w, "application/json", exportFilename(r.URL.Query().Get("filename"), models.DefaultSnapshotFilename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ExportMarkdown downloads the active book as Markdown
// GET /api/export/markdown
func (h *SnapshotHandler) ExportMarkdown(w http.ResponseWriter, r *http.Request) {
	md, err := h.snapshotService.ExportMarkdown(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.SetAttachmentHeaders(w, "text/markdown; charset=utf-8", exportFilename(r.URL.Query().Get("filename"), "dressline.md"))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(md))
}

// Import replaces the store with an uploaded snapshot. The body is either raw
// JSON or a multipart form with the file in field "file".
// POST /api/import?mode=preserve|reassign
func (h *SnapshotHandler) Import(w http.ResponseWriter, r *http.Request) {
	mode := models.ImportMode(r.URL.Query().Get("mode"))
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxSnapshotBytes+multipartOverhead)

	body := r.Body
	if httputil.IsMultipart(r) {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				httputil.RespondError(w, http.StatusRequestEntityTooLarge, "Snapshot exceeds the maximum size of "+attachment.FormatSize(config.MaxSnapshotBytes))
				return
			}
			httputil.RespondError(w, http.StatusBadRequest, "Failed to parse multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, _, err := r.FormFile(attachmentField)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "No file provided")
			return
		}
		defer file.Close()
		body = file
	}

	snapshot, err := h.snapshotService.ImportSnapshot(r.Context(), body, mode)
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("snapshot imported",
		"mode", mode,
		"books", len(snapshot.Books),
		"modules", len(snapshot.Modules),
	)
	httputil.RespondJSON(w, http.StatusOK, summarize(snapshot))
}

// PersistSnapshot replaces the store with the given collections
// PUT /api/snapshot
func (h *SnapshotHandler) PersistSnapshot(w http.ResponseWriter, r *http.Request) {
	var req SnapshotRequest
	if err := httputil.ParseJSONLimit(w, r, &req, config.MaxSnapshotBytes); err != nil {
		httputil.RespondError(w, statusFromBodyError(err), err.Error())
		return
	}

	if _, err := h.snapshotService.PersistSnapshot(r.Context(), req.Books, req.Modules); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, SnapshotResponse{Books: len(req.Books), Modules: len(req.Modules)})
}

// ReloadSnapshot re-applies the snapshot mirrored in the backup medium
// POST /api/snapshot/reload
func (h *SnapshotHandler) ReloadSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.snapshotService.LoadPersistedSnapshot(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	if snapshot == nil {
		httputil.RespondError(w, http.StatusNotFound, "no persisted snapshot")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, summarize(snapshot))
}

// exportFilename keeps only the base name of a client supplied filename
func exportFilename(requested, fallback string) string {
	name := strings.TrimSpace(filepath.Base(requested))
	if name == "" || name == "." || name == "/" {
		return fallback
	}
	return name
}
