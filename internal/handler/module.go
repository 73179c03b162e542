package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"dressline/internal/attachment"
	"dressline/internal/config"
	"dressline/internal/domain"
	models "dressline/internal/domain/models/ebook"
	ebookSvc "dressline/internal/domain/services/ebook"
	"dressline/internal/httputil"
)

const (
	// multipartOverhead leaves room for boundaries and part headers around the PDF
	multipartOverhead = 1 << 20
	// multipartMemory is held in memory before parts spill to temp files
	multipartMemory = 4 << 20
	// attachmentField is the form field carrying the uploaded PDF
	attachmentField = "file"
)

// ModuleHandler handles module and attachment HTTP requests
type ModuleHandler struct {
	moduleService ebookSvc.ModuleService
	handles       *attachment.Handles
	logger        *slog.Logger
}

// NewModuleHandler creates a new module handler
func NewModuleHandler(moduleService ebookSvc.ModuleService, handles *attachment.Handles, logger *slog.Logger) *ModuleHandler {
	return &ModuleHandler{
		moduleService: moduleService,
		handles:       handles,
		logger:        logger,
	}
}

// GetModule retrieves a module by ID
// GET /api/modules/{id}
func (h *ModuleHandler) GetModule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	module, err := h.moduleService.GetModule(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, module)
}

// UpdateModule applies a partial update
// PATCH /api/modules/{id}
func (h *ModuleHandler) UpdateModule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ebookSvc.UpdateModuleRequest
	if !parseBody(w, r, &req) {
		return
	}

	module, err := h.moduleService.UpdateModule(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, module)
}

// DeleteModule deletes a module and closes the gap in its book's order
// DELETE /api/modules/{id}
func (h *ModuleHandler) DeleteModule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.moduleService.DeleteModule(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondNoContent(w)
}

// AttachPDF stores an uploaded PDF on the module
// PUT /api/modules/{id}/attachment (multipart/form-data, field "file")
func (h *ModuleHandler) AttachPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !httputil.IsMultipart(r) {
		httputil.RespondError(w, http.StatusBadRequest, "expected multipart/form-data upload")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxPDFBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, "PDF exceeds the maximum size of "+attachment.FormatSize(config.MaxPDFBytes))
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, "Failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(attachmentField)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	result, err := h.moduleService.AttachPDF(r.Context(), id, &ebookSvc.AttachPDFRequest{
		FileName: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("pdf attached",
		"module_id", id,
		"name", header.Filename,
		"size", result.DisplaySize,
	)
	httputil.RespondJSON(w, http.StatusOK, result)
}

// DownloadAttachment streams the decoded PDF
// GET /api/modules/{id}/attachment
func (h *ModuleHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	module, ok := h.inlineAttachment(w, r)
	if !ok {
		return
	}

	blob, err := attachment.Decode(module.PDFAttachment.Data, models.PDFMimeType)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.SetAttachmentHeaders(w, blob.MIMEType, filepath.Base(module.PDFAttachment.Name))
	w.Header().Set("Content-Length", strconv.Itoa(blob.Size()))
	w.WriteHeader(http.StatusOK)
	w.Write(blob.Data)
}

// ClearAttachment removes the module's PDF
// DELETE /api/modules/{id}/attachment
func (h *ModuleHandler) ClearAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.moduleService.ClearAttachment(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondNoContent(w)
}

// CreateHandle decodes the module's PDF into a process-local handle
// POST /api/modules/{id}/attachment/handle
func (h *ModuleHandler) CreateHandle(w http.ResponseWriter, r *http.Request) {
	module, ok := h.inlineAttachment(w, r)
	if !ok {
		return
	}

	handle, err := h.handles.Create(module.PDFAttachment.Data, models.PDFMimeType)
	if err != nil {
		handleError(w, err)
		return
	}
	h.logger.Debug("attachment handle created", "module_id", module.ID, "token", handle.Token, "live", h.handles.Len())
	httputil.RespondJSON(w, http.StatusCreated, handle)
}

// GetHandle serves the payload behind a handle
// GET /api/handles/{token}
func (h *ModuleHandler) GetHandle(w http.ResponseWriter, r *http.Request) {
	blob, ok := h.handles.Open(r.PathValue("token"))
	if !ok {
		httputil.RespondError(w, http.StatusNotFound, "handle not found")
		return
	}

	w.Header().Set("Content-Type", blob.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(blob.Size()))
	w.WriteHeader(http.StatusOK)
	w.Write(blob.Data)
}

// ReleaseHandle frees a handle
// DELETE /api/handles/{token}
func (h *ModuleHandler) ReleaseHandle(w http.ResponseWriter, r *http.Request) {
	if !h.handles.Release(r.PathValue("token")) {
		httputil.RespondError(w, http.StatusNotFound, "handle not found")
		return
	}
	httputil.RespondNoContent(w)
}

// inlineAttachment loads the module named in the path and checks it carries inline PDF data
func (h *ModuleHandler) inlineAttachment(w http.ResponseWriter, r *http.Request) (*models.Module, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}

	module, err := h.moduleService.GetModule(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return nil, false
	}

	a := module.PDFAttachment
	switch {
	case a == nil:
		handleError(w, &domain.NotFoundError{Message: "module has no attachment"})
		return nil, false
	case a.Kind != models.AttachmentInline:
		handleError(w, &domain.ValidationError{Message: "legacy attachment reference has no stored data"})
		return nil, false
	}
	return module, true
}
